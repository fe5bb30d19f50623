package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eshop/internal/apperror"
	"eshop/internal/database"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, address, phone, role, avatar_public_id, avatar_url, created_at, updated_at`

// UserService управляет профилем пользователя
type UserService struct {
	db  *database.DB
	log *logger.Logger
}

// NewUserService создает новый экземпляр сервиса пользователей
func NewUserService(db *database.DB, log *logger.Logger) *UserService {
	return &UserService{
		db:  db,
		log: log,
	}
}

// GetByID возвращает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

// GetByEmail возвращает пользователя по email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UpdateProfile полностью заменяет имя, адрес и телефон
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("name is required", nil)
	}

	query := `
		UPDATE users
		SET name = $1, address = $2, phone = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + userColumns
	row := s.db.QueryRowContext(ctx, query, strings.TrimSpace(req.Name), strings.TrimSpace(req.Address),
		strings.TrimSpace(req.Phone), time.Now(), userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Info("Profile updated")
	return user, nil
}

// UpdateShipping меняет только непустые поля доставки
func (s *UserService) UpdateShipping(ctx context.Context, userID uuid.UUID, req *models.UpdateShippingRequest) (*models.User, error) {
	if req == nil {
		return nil, apperror.Validation("request body is required", nil)
	}

	query := `
		UPDATE users
		SET name = COALESCE(NULLIF($1, ''), name),
		    phone = COALESCE(NULLIF($2, ''), phone),
		    address = COALESCE(NULLIF($3, ''), address),
		    updated_at = $4
		WHERE id = $5
		RETURNING ` + userColumns
	row := s.db.QueryRowContext(ctx, query, strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone),
		strings.TrimSpace(req.Address), time.Now(), userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", userID).Info("Shipping details updated")
	return user, nil
}

// UpdateAvatar сохраняет новый аватар и возвращает идентификатор прежнего
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatar models.Image) (*models.User, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous string
	if err := tx.QueryRowContext(ctx, `SELECT avatar_public_id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&previous); err != nil {
		if isNoRows(err) {
			return nil, "", apperror.NotFound("user not found", err)
		}
		return nil, "", fmt.Errorf("failed to lock user: %w", err)
	}

	query := `
		UPDATE users
		SET avatar_public_id = $1, avatar_url = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + userColumns
	user, err := scanUser(tx.QueryRowContext(ctx, query, avatar.PublicID, avatar.URL, time.Now(), userID))
	if err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"user_id":   userID,
		"public_id": avatar.PublicID,
	}).Info("Avatar updated")

	return user, previous, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Address, &user.Phone,
		&user.Role, &user.AvatarPublicID, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user not found", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
