package handlers

import (
	"net/http"

	"eshop/internal/logger"
	"eshop/internal/models"
)

// AuthHandler обслуживает регистрацию и вход
type AuthHandler struct {
	auth AuthService
	log  *logger.Logger
}

// NewAuthHandler создает обработчик аутентификации
func NewAuthHandler(auth AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log,
	}
}

// Register создает учетную запись
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to register user")
		return
	}

	writeSuccess(w, http.StatusCreated, "User registered", user)
}

// Login выдает токен доступа
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to login")
		return
	}

	writeSuccess(w, http.StatusOK, "Logged in", resp)
}

// TokenIsValid отвечает true, если токен действителен и пользователь существует
func (h *AuthHandler) TokenIsValid(w http.ResponseWriter, r *http.Request) {
	valid, err := h.auth.TokenIsValid(r.Context(), tokenFromRequest(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to check token")
		return
	}

	writeSuccess(w, http.StatusOK, "", valid)
}
