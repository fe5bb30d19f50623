package handlers

import (
	"context"
	"net/http"
	"strings"

	"eshop/internal/logger"
	"eshop/internal/models"
)

type contextKey int

const currentUserKey contextKey = iota

// withUser кладет пользователя в контекст запроса
func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// CurrentUser возвращает аутентифицированного пользователя из контекста
func CurrentUser(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*models.User)
	return user, ok && user != nil
}

// tokenFromRequest читает токен из x-auth-token или Authorization: Bearer
func tokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("x-auth-token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// AuthMiddleware проверяет токены доступа и роли
type AuthMiddleware struct {
	auth AuthService
	log  *logger.Logger
}

// NewAuthMiddleware создает middleware аутентификации
func NewAuthMiddleware(auth AuthService, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
		log:  log,
	}
}

// Authenticate требует действительный токен и загружает пользователя
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.auth.UserFromToken(r.Context(), tokenFromRequest(r))
		if err != nil {
			writeServiceError(w, m.log, err, "Failed to authenticate request")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// OptionalAuth загружает пользователя, если токен передан и действителен
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.auth.UserFromToken(r.Context(), token)
		if err != nil {
			m.log.WithError(err).Debug("Optional auth skipped")
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RequireAdmin пропускает только администраторов; ставится после Authenticate
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r.Context())
		if !ok {
			writeErrorResponse(w, http.StatusUnauthorized, "no auth token, access denied")
			return
		}
		if !user.IsAdmin() {
			writeErrorResponse(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireUser достает пользователя или отвечает 401
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "no auth token, access denied")
		return nil, false
	}
	return user, true
}
