package handlers

import (
	"net/http"

	"eshop/internal/logger"
	"eshop/internal/models"
)

// CategoryHandler обслуживает категории каталога
type CategoryHandler struct {
	categories CategoryService
	log        *logger.Logger
}

// NewCategoryHandler создает обработчик категорий
func NewCategoryHandler(categories CategoryService, log *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		log:        log,
	}
}

// ListCategories возвращает плоский список
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get categories")
		return
	}

	writeSuccess(w, http.StatusOK, "", categories)
}

// CategoryTree возвращает дерево категорий
func (h *CategoryHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categories.CategoryTree(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build category tree")
		return
	}

	writeSuccess(w, http.StatusOK, "", tree)
}

// CreateCategory создает категорию
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCategoryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.categories.CreateCategory(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create category")
		return
	}

	writeSuccess(w, http.StatusCreated, "Category created", category)
}
