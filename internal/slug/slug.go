package slug

import (
	"regexp"
	"strings"
)

var (
	disallowed      = regexp.MustCompile(`[^a-z0-9\s-]`)
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate строит URL-слаг из названия: "Home & Garden" -> "home-garden".
// Для названий без латиницы и цифр возвращает пустую строку.
func Generate(s string) string {
	result := disallowed.ReplaceAllString(strings.ToLower(s), "")
	result = strings.Join(strings.Fields(result), "-")
	result = repeatedHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}
