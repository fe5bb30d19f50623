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
	"eshop/internal/slug"

	"github.com/google/uuid"
)

// CategoryService управляет категориями каталога
type CategoryService struct {
	db  *database.DB
	log *logger.Logger
}

// NewCategoryService создает новый экземпляр сервиса категорий
func NewCategoryService(db *database.DB, log *logger.Logger) *CategoryService {
	return &CategoryService{
		db:  db,
		log: log,
	}
}

// ListCategories возвращает плоский список категорий с родителями
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	query := `
		SELECT id, name, slug, description, parent_id, created_at, updated_at
		FROM categories
		ORDER BY created_at, name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	byID := make(map[uuid.UUID]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	for i := range categories {
		if categories[i].ParentID == nil {
			continue
		}
		if parent, ok := byID[*categories[i].ParentID]; ok {
			parent.Parent = nil
			categories[i].Parent = &parent
		}
	}

	return categories, nil
}

// CategoryTree возвращает категории в виде дерева
func (s *CategoryService) CategoryTree(ctx context.Context) ([]*models.CategoryNode, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return BuildCategoryTree(categories), nil
}

// CreateCategory создает категорию со сгенерированным слагом
func (s *CategoryService) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	if req == nil || strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("name is required", nil)
	}

	name := strings.TrimSpace(req.Name)
	categoryID := uuid.New()
	categorySlug := slug.Generate(name)
	if categorySlug == "" {
		categorySlug = "category-" + categoryID.String()[:8]
	}

	if req.ParentID != nil {
		exists, err := categoryExists(ctx, s.db, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperror.NotFound("parent category not found", nil)
		}
	}

	now := time.Now()
	category := &models.Category{
		ID:          categoryID,
		Name:        name,
		Slug:        categorySlug,
		Description: strings.TrimSpace(req.Description),
		ParentID:    req.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO categories (id, name, slug, description, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query, category.ID, category.Name, category.Slug, category.Description,
		category.ParentID, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("category with this name or slug already exists", err)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"category_id": category.ID,
		"slug":        category.Slug,
	}).Info("Category created")

	return category, nil
}
