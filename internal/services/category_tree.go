package services

import (
	"eshop/internal/models"

	"github.com/google/uuid"
)

// BuildCategoryTree собирает лес категорий из плоского списка.
// Порядок корней и дочерних узлов совпадает с порядком входа.
// Категория с неизвестным родителем становится корнем. Циклы не проверяются.
func BuildCategoryTree(categories []models.Category) []*models.CategoryNode {
	nodes := make(map[uuid.UUID]*models.CategoryNode, len(categories))
	ordered := make([]*models.CategoryNode, len(categories))
	for i, c := range categories {
		node := &models.CategoryNode{Category: c, Children: []*models.CategoryNode{}}
		nodes[c.ID] = node
		ordered[i] = node
	}

	roots := make([]*models.CategoryNode, 0)
	for i, c := range categories {
		node := ordered[i]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}
