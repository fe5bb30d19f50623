package models

import (
	"time"

	"github.com/google/uuid"
)

// Category представляет категорию каталога
type Category struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description string     `json:"description" db:"description"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	Parent      *Category  `json:"parent,omitempty"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// CategoryNode представляет категорию вместе с дочерними узлами
type CategoryNode struct {
	Category
	Children []*CategoryNode `json:"children"`
}

// CreateCategoryRequest представляет запрос на создание категории
type CreateCategoryRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
}
