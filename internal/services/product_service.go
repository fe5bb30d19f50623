package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eshop/internal/apperror"
	"eshop/internal/database"
	"eshop/internal/logger"
	"eshop/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const productSelect = `
	SELECT p.id, p.name, p.description, p.brand_name, p.stock, p.price, p.category_id, p.created_at, p.updated_at,
	       c.id, c.name, c.slug, c.description, c.parent_id,
	       pc.id, pc.name, pc.slug,
	       COALESCE(r.rating_avg, 0), COALESCE(r.rating_count, 0)
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN categories pc ON pc.id = c.parent_id
	LEFT JOIN (
		SELECT product_id, AVG(rating)::float8 AS rating_avg, COUNT(*) AS rating_count, SUM(rating) AS rating_sum
		FROM ratings
		GROUP BY product_id
	) r ON r.product_id = p.id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ProductService представляет сервис каталога товаров
type ProductService struct {
	db  *database.DB
	log *logger.Logger
}

// NewProductService создает новый экземпляр сервиса товаров
func NewProductService(db *database.DB, log *logger.Logger) *ProductService {
	return &ProductService{
		db:  db,
		log: log,
	}
}

// ListProducts возвращает все товары или товары категории с указанным слагом
func (s *ProductService) ListProducts(ctx context.Context, categorySlug string) ([]*models.Product, error) {
	categorySlug = strings.TrimSpace(categorySlug)
	if categorySlug == "" {
		return s.findProducts(ctx, "", "p.created_at DESC")
	}

	var categoryID uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE slug = $1`, categorySlug).Scan(&categoryID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category not found", err)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return s.findProducts(ctx, "WHERE p.category_id = $1", "p.created_at DESC", categoryID)
}

// SearchProducts ищет товары по названию, бренду или категории без учета регистра
func (s *ProductService) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Validation("search query is required", nil)
	}

	return s.findProducts(ctx,
		"WHERE p.name ILIKE $1 OR p.brand_name ILIKE $1 OR c.name ILIKE $1",
		"p.name",
		likePattern(query))
}

// ListProductNames возвращает названия всех товаров
func (s *ProductService) ListProductNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get product names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan product name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product names: %w", err)
	}

	return names, nil
}

// DealOfTheDay возвращает товар с наибольшей суммой оценок
func (s *ProductService) DealOfTheDay(ctx context.Context) (*models.Product, error) {
	products, err := s.findProducts(ctx, "", "COALESCE(r.rating_sum, 0) DESC, p.created_at ASC LIMIT 1")
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, apperror.NotFound("no products available", nil)
	}
	return products[0], nil
}

// SimilarProducts возвращает товары той же категории
func (s *ProductService) SimilarProducts(ctx context.Context, categoryID uuid.UUID) ([]*models.Product, error) {
	return s.findProducts(ctx, "WHERE p.category_id = $1", "p.created_at DESC", categoryID)
}

// GetProduct возвращает товар вместе с оценками
func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	ratings, err := queryProductRatings(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	product.Ratings = ratings

	return product, nil
}

// ProductRaters возвращает пользователей, оценивших товар
func (s *ProductService) ProductRaters(ctx context.Context, productID uuid.UUID) ([]models.ProductRater, error) {
	exists, err := productExists(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("product not found", nil)
	}

	query := `
		SELECT u.id, u.name, r.rating, r.created_at
		FROM ratings r
		JOIN users u ON u.id = r.user_id
		WHERE r.product_id = $1
		ORDER BY r.created_at
	`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product raters: %w", err)
	}
	defer rows.Close()

	raters := make([]models.ProductRater, 0)
	for rows.Next() {
		var rater models.ProductRater
		if err := rows.Scan(&rater.UserID, &rater.Name, &rater.Rating, &rater.RatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product rater: %w", err)
		}
		raters = append(raters, rater)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product raters: %w", err)
	}

	return raters, nil
}

// CreateProduct создает товар вместе с уже загруженными изображениями
func (s *ProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if err := validateCreateProduct(req); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := categoryExists(ctx, tx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("category not found", nil)
	}

	now := time.Now()
	product := &models.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		BrandName:   strings.TrimSpace(req.BrandName),
		Images:      req.Images,
		Stock:       req.Stock,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO products (id, name, description, brand_name, stock, price, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, query, product.ID, product.Name, product.Description, product.BrandName,
		product.Stock, product.Price, product.CategoryID, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	for i, img := range product.Images {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO product_images (public_id, product_id, url, position) VALUES ($1, $2, $3, $4)`,
			img.PublicID, product.ID, img.URL, i)
		if err != nil {
			return nil, fmt.Errorf("failed to create product image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"product_id":  product.ID,
		"name":        product.Name,
		"category_id": product.CategoryID,
		"images":      len(product.Images),
	}).Info("Product created successfully")

	return product, nil
}

// UpdateProduct частично обновляет товар и возвращает удаленные изображения
func (s *ProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, req *models.UpdateProductRequest) (*models.Product, []models.Image, error) {
	if req == nil {
		return nil, nil, apperror.Validation("request body is required", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lockedID uuid.UUID
	if err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&lockedID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, apperror.NotFound("product not found", err)
		}
		return nil, nil, fmt.Errorf("failed to lock product: %w", err)
	}

	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)
	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, nil, apperror.Validation("name must not be empty", nil)
		}
		addSet("name", name)
	}
	if req.Description != nil {
		addSet("description", *req.Description)
	}
	if req.BrandName != nil {
		addSet("brand_name", strings.TrimSpace(*req.BrandName))
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, nil, apperror.Validation("stock must not be negative", nil)
		}
		addSet("stock", *req.Stock)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, nil, apperror.Validation("price must not be negative", nil)
		}
		addSet("price", *req.Price)
	}
	if req.CategoryID != nil {
		exists, err := categoryExists(ctx, tx, *req.CategoryID)
		if err != nil {
			return nil, nil, err
		}
		if !exists {
			return nil, nil, apperror.NotFound("category not found", nil)
		}
		addSet("category_id", *req.CategoryID)
	}

	if len(sets) > 0 {
		addSet("updated_at", time.Now())
		args = append(args, productID)
		query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	removed := make([]models.Image, 0, len(req.ImagesToDelete))
	if len(req.ImagesToDelete) > 0 {
		rows, err := tx.QueryContext(ctx,
			`DELETE FROM product_images WHERE product_id = $1 AND public_id = ANY($2) RETURNING public_id, url`,
			productID, pq.Array(req.ImagesToDelete))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to delete product images: %w", err)
		}
		for rows.Next() {
			var img models.Image
			if err := rows.Scan(&img.PublicID, &img.URL); err != nil {
				rows.Close()
				return nil, nil, fmt.Errorf("failed to scan deleted image: %w", err)
			}
			removed = append(removed, img)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to iterate deleted images: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"product_id":     productID,
		"fields":         len(sets),
		"removed_images": len(removed),
	}).Info("Product updated")

	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, removed, err
	}
	return product, removed, nil
}

// DeleteProduct удаляет товар и возвращает его изображения для очистки хранилища
func (s *ProductService) DeleteProduct(ctx context.Context, productID uuid.UUID) ([]models.Image, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT public_id, url FROM product_images WHERE product_id = $1 ORDER BY position`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product images: %w", err)
	}
	images := make([]models.Image, 0)
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.PublicID, &img.URL); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product image: %w", err)
		}
		images = append(images, img)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product images: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("product not found", nil)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"product_id": productID,
		"images":     len(images),
	}).Info("Product deleted")

	return images, nil
}

// ProductsByIDs возвращает товары по списку идентификаторов
func (s *ProductService) ProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	result := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	products, err := s.findProducts(ctx, "WHERE p.id = ANY($1::uuid[])", "p.created_at", pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (s *ProductService) findProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	products, err := s.findProducts(ctx, "WHERE p.id = $1", "p.created_at", productID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, apperror.NotFound("product not found", nil)
	}
	return products[0], nil
}

func (s *ProductService) findProducts(ctx context.Context, where, orderBy string, args ...interface{}) ([]*models.Product, error) {
	query := productSelect + where + " ORDER BY " + orderBy

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	if err := s.attachImages(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *ProductService) attachImages(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(products))
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i, p := range products {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, public_id, url FROM product_images WHERE product_id = ANY($1::uuid[]) ORDER BY product_id, position`,
		pq.Array(uuidStrings(ids)))
	if err != nil {
		return fmt.Errorf("failed to get product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID uuid.UUID
		var img models.Image
		if err := rows.Scan(&productID, &img.PublicID, &img.URL); err != nil {
			return fmt.Errorf("failed to scan product image: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Images = append(p.Images, img)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate product images: %w", err)
	}

	return nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		product    models.Product
		cat        models.Category
		parentID   *uuid.UUID
		parentName sql.NullString
		parentSlug sql.NullString
	)

	err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.BrandName, &product.Stock, &product.Price,
		&product.CategoryID, &product.CreatedAt, &product.UpdatedAt,
		&cat.ID, &cat.Name, &cat.Slug, &cat.Description, &cat.ParentID,
		&parentID, &parentName, &parentSlug,
		&product.RatingAverage, &product.RatingCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if parentID != nil {
		cat.Parent = &models.Category{ID: *parentID, Name: parentName.String, Slug: parentSlug.String}
	}
	product.Category = &cat
	product.Images = []models.Image{}

	return &product, nil
}

func validateCreateProduct(req *models.CreateProductRequest) error {
	if req == nil {
		return apperror.Validation("request body is required", nil)
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperror.Validation("name is required", nil)
	}
	if req.CategoryID == uuid.Nil {
		return apperror.Validation("category_id is required", nil)
	}
	if req.Stock < 0 {
		return apperror.Validation("stock must not be negative", nil)
	}
	if req.Price.IsNegative() {
		return apperror.Validation("price must not be negative", nil)
	}
	if len(req.Images) == 0 {
		return apperror.Validation("at least one image is required", nil)
	}
	return nil
}

func productExists(ctx context.Context, q queryRower, productID uuid.UUID) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check product: %w", err)
	}
	return exists, nil
}

func categoryExists(ctx context.Context, q queryRower, categoryID uuid.UUID) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, categoryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return exists, nil
}
