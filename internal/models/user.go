package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole представляет роль пользователя
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// DefaultAvatarURL выдается новым пользователям до загрузки собственного аватара
const DefaultAvatarURL = "https://www.gravatar.com/avatar/?d=mp&s=256"

// User представляет покупателя или администратора магазина
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Address        string    `json:"address" db:"address"`
	Phone          string    `json:"phone" db:"phone"`
	Role           UserRole  `json:"role" db:"role"`
	AvatarPublicID string    `json:"avatar_public_id,omitempty" db:"avatar_public_id"`
	AvatarURL      string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin сообщает, есть ли у пользователя права администратора
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse возвращается после успешного входа
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// UpdateProfileRequest полностью заменяет данные профиля
type UpdateProfileRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// UpdateShippingRequest меняет только непустые поля доставки
type UpdateShippingRequest struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// SearchHistoryRequest представляет поисковый запрос для истории
type SearchHistoryRequest struct {
	Query string `json:"query"`
}
