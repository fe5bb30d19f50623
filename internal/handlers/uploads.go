package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"eshop/internal/logger"
	"eshop/internal/services"
)

// multipartMemory задает объем формы, который держится в памяти
const multipartMemory = 32 << 20

// parseMultipart ограничивает тело запроса и разбирает multipart форму
func parseMultipart(w http.ResponseWriter, r *http.Request, media MediaService) error {
	limit := media.MaxBytes()*int64(media.MaxFiles()) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", limit)
		}
		return fmt.Errorf("invalid multipart form")
	}
	return nil
}

// readImageFiles читает файлы поля field из разобранной формы
func readImageFiles(r *http.Request, field string, maxBytes int64) ([]services.ImageFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	headers := r.MultipartForm.File[field]
	files := make([]services.ImageFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh, maxBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, services.ImageFile{Filename: fh.Filename, Data: data})
	}
	return files, nil
}

func readFormFile(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s", fh.Filename)
	}
	defer f.Close()

	// лишний байт позволяет сервису отклонить слишком большой файл
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s", fh.Filename)
	}
	return data, nil
}

// UploadHandler загружает и удаляет произвольные изображения
type UploadHandler struct {
	media MediaService
	log   *logger.Logger
}

// NewUploadHandler создает обработчик загрузок
func NewUploadHandler(media MediaService, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		media: media,
		log:   log,
	}
}

// UploadImages принимает поле images и необязательный folder
func (h *UploadHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if !h.media.Enabled() {
		writeServiceError(w, h.log, services.ErrMediaUnavailable, "Failed to upload images")
		return
	}
	if err := parseMultipart(w, r, h.media); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := readImageFiles(r, "images", h.media.MaxBytes())
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	images, err := h.media.UploadImages(r.Context(), strings.TrimSpace(r.FormValue("folder")), files)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to upload images")
		return
	}

	writeSuccess(w, http.StatusCreated, "Images uploaded", images)
}

// DeleteImage удаляет объект по public_id
func (h *UploadHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	publicID := strings.TrimSpace(r.URL.Query().Get("public_id"))
	if err := h.media.DeleteImage(r.Context(), publicID); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete image")
		return
	}

	h.log.WithField("public_id", publicID).Info("Image deleted")
	writeSuccess(w, http.StatusOK, "Image deleted", nil)
}
