package handlers

import (
	"context"
	"net/http"

	"eshop/internal/logger"
	"eshop/internal/models"
)

// avatarFolder задает каталог для аватаров в хранилище
const avatarFolder = "avatars"

// UserHandler обслуживает профиль текущего пользователя
type UserHandler struct {
	users UserService
	media MediaService
	log   *logger.Logger
}

// NewUserHandler создает обработчик профиля
func NewUserHandler(users UserService, media MediaService, log *logger.Logger) *UserHandler {
	return &UserHandler{
		users: users,
		media: media,
		log:   log,
	}
}

// Me возвращает профиль текущего пользователя
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "", user)
}

// UpdateProfile полностью заменяет имя, адрес и телефон
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update profile")
		return
	}

	writeSuccess(w, http.StatusOK, "Profile updated", updated)
}

// UpdateShipping меняет только переданные поля доставки
func (h *UserHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateShippingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.users.UpdateShipping(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update shipping details")
		return
	}

	writeSuccess(w, http.StatusOK, "Shipping details updated", updated)
}

// UploadAvatar загружает поле image и заменяет аватар
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := parseMultipart(w, r, h.media); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := readImageFiles(r, "image", h.media.MaxBytes())
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) != 1 {
		writeErrorResponse(w, http.StatusBadRequest, "exactly one image is required")
		return
	}

	images, err := h.media.UploadImages(r.Context(), avatarFolder, files)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to upload avatar")
		return
	}

	updated, previous, err := h.users.UpdateAvatar(r.Context(), user.ID, images[0])
	if err != nil {
		h.media.DeleteImages(context.WithoutCancel(r.Context()), []string{images[0].PublicID})
		writeServiceError(w, h.log, err, "Failed to update avatar")
		return
	}

	if previous != "" {
		h.media.DeleteImages(context.WithoutCancel(r.Context()), []string{previous})
	}

	h.log.WithField("user_id", user.ID).Info("Avatar updated")
	writeSuccess(w, http.StatusOK, "Avatar updated", updated)
}
