package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eshop/internal/apperror"
	"eshop/internal/database"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// AuthService отвечает за регистрацию, вход и проверку токенов
type AuthService struct {
	db     *database.DB
	log    *logger.Logger
	tokens *TokenManager
	users  *UserService
}

// NewAuthService создает новый экземпляр сервиса аутентификации
func NewAuthService(db *database.DB, log *logger.Logger, tokens *TokenManager, users *UserService) *AuthService {
	return &AuthService{
		db:     db,
		log:    log,
		tokens: tokens,
		users:  users,
	}
}

// Register создает пользователя с bcrypt-хешем пароля
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if req == nil {
		return nil, apperror.Validation("request body is required", nil)
	}

	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperror.Validation("name, email and password are required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperror.Validation("email is invalid", nil)
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength), nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		AvatarURL:    models.DefaultAvatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, role, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash,
		user.Role, user.AvatarURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("user with this email already exists", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return user, nil
}

// Login проверяет учетные данные и выпускает токен
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req == nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, apperror.Validation("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Validation("user with this email does not exist", err)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Validation("incorrect password", nil)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("User logged in")

	return &models.AuthResponse{Token: token, User: user}, nil
}

// UserFromToken возвращает владельца действительного токена
func (s *AuthService) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.Unauthorized("no auth token, access denied", nil)
	}

	_, userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperror.Unauthorized("token verification failed, authorization denied", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Unauthorized("user no longer exists", err)
		}
		return nil, err
	}

	return user, nil
}

// TokenIsValid сообщает, подписан ли токен и существует ли его владелец
func (s *AuthService) TokenIsValid(ctx context.Context, token string) (bool, error) {
	_, err := s.UserFromToken(ctx, token)
	if err == nil {
		return true, nil
	}
	if apperror.Is(err, apperror.KindUnauthorized) {
		return false, nil
	}
	return false, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
