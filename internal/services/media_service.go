package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"eshop/internal/apperror"
	"eshop/internal/config"
	"eshop/internal/logger"
	"eshop/internal/models"
	"eshop/internal/slug"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxImageBytes = 50 << 20
	defaultMaxImageFiles = 5
	defaultMediaFolder   = "uploads"
)

// ErrMediaUnavailable возвращается, когда хранилище изображений не настроено
var ErrMediaUnavailable = apperror.Unavailable("media storage is not configured", nil)

// allowedImageTypes сопоставляет допустимые MIME-типы и расширения файлов
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaStorage описывает хранилище загруженных файлов
type MediaStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	FileURL(key string) string
}

// ImageFile содержит прочитанный из multipart файл
type ImageFile struct {
	Filename string
	Data     []byte
}

// MediaService проверяет и загружает изображения в хранилище
type MediaService struct {
	storage  MediaStorage
	log      *logger.Logger
	maxBytes int64
	maxFiles int
}

// NewMediaService создает сервис медиа. storage может быть nil.
func NewMediaService(storage MediaStorage, log *logger.Logger, cfg *config.MediaConfig) *MediaService {
	maxBytes := int64(defaultMaxImageBytes)
	maxFiles := defaultMaxImageFiles
	if cfg != nil {
		if cfg.MaxImageBytes > 0 {
			maxBytes = cfg.MaxImageBytes
		}
		if cfg.MaxFiles > 0 {
			maxFiles = cfg.MaxFiles
		}
	}

	return &MediaService{
		storage:  storage,
		log:      log,
		maxBytes: maxBytes,
		maxFiles: maxFiles,
	}
}

// Enabled сообщает, настроено ли хранилище
func (s *MediaService) Enabled() bool {
	return s != nil && s.storage != nil
}

// MaxBytes возвращает лимит размера одного изображения
func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

// MaxFiles возвращает лимит количества файлов в одном запросе
func (s *MediaService) MaxFiles() int {
	return s.maxFiles
}

// UploadImages проверяет файлы и загружает их параллельно в каталог folder.
// При ошибке любой загрузки уже загруженные файлы удаляются.
func (s *MediaService) UploadImages(ctx context.Context, folder string, files []ImageFile) ([]models.Image, error) {
	if !s.Enabled() {
		return nil, ErrMediaUnavailable
	}
	if len(files) == 0 {
		return nil, apperror.Validation("at least one image is required", nil)
	}
	if len(files) > s.maxFiles {
		return nil, apperror.Validation(fmt.Sprintf("at most %d images are allowed", s.maxFiles), nil)
	}

	contentTypes := make([]string, len(files))
	for i, f := range files {
		contentType, err := s.validateImage(f)
		if err != nil {
			return nil, err
		}
		contentTypes[i] = contentType
	}

	dir := slug.Generate(folder)
	if dir == "" {
		dir = defaultMediaFolder
	}

	images := make([]models.Image, len(files))
	uploaded := make([]bool, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		i := i
		key := dir + "/" + uuid.NewString() + allowedImageTypes[contentTypes[i]]
		g.Go(func() error {
			data := files[i].Data
			if err := s.storage.Upload(gctx, key, contentTypes[i], bytes.NewReader(data), int64(len(data))); err != nil {
				return fmt.Errorf("failed to upload %s: %w", files[i].Filename, err)
			}
			mu.Lock()
			images[i] = models.Image{PublicID: key, URL: s.storage.FileURL(key)}
			uploaded[i] = true
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		cleanup := make([]string, 0, len(files))
		for i, ok := range uploaded {
			if ok {
				cleanup = append(cleanup, images[i].PublicID)
			}
		}
		s.DeleteImages(context.WithoutCancel(ctx), cleanup)
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"folder": dir,
		"count":  len(images),
	}).Info("Images uploaded")

	return images, nil
}

// DeleteImage удаляет один объект из хранилища
func (s *MediaService) DeleteImage(ctx context.Context, publicID string) error {
	if !s.Enabled() {
		return ErrMediaUnavailable
	}
	if publicID == "" {
		return apperror.Validation("public_id is required", nil)
	}
	if err := s.storage.Delete(ctx, publicID); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// DeleteImages удаляет объекты по возможности: ошибки логируются, цикл продолжается
func (s *MediaService) DeleteImages(ctx context.Context, publicIDs []string) {
	if !s.Enabled() {
		return
	}
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		if err := s.storage.Delete(ctx, id); err != nil {
			s.log.WithError(err).WithField("public_id", id).Warn("Failed to delete image")
		}
	}
}

func (s *MediaService) validateImage(f ImageFile) (string, error) {
	if len(f.Data) == 0 {
		return "", apperror.Validation(fmt.Sprintf("file %q is empty", f.Filename), nil)
	}
	if int64(len(f.Data)) > s.maxBytes {
		return "", apperror.Validation(fmt.Sprintf("file %q exceeds %d MB", f.Filename, s.maxBytes>>20), nil)
	}
	contentType := http.DetectContentType(f.Data)
	if _, ok := allowedImageTypes[contentType]; !ok {
		return "", apperror.Validation(fmt.Sprintf("file %q has unsupported type %s", f.Filename, contentType), nil)
	}
	return contentType, nil
}
