package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"eshop/internal/logger"
	"eshop/internal/models"
	"eshop/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const productFolder = "products"

// ProductHandler обслуживает каталог товаров
type ProductHandler struct {
	products ProductService
	history  SearchHistoryService
	media    MediaService
	producer EventProducer
	log      *logger.Logger
}

// NewProductHandler создает обработчик каталога. history может быть nil.
func NewProductHandler(products ProductService, history SearchHistoryService, media MediaService, producer EventProducer, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		history:  history,
		media:    media,
		producer: producer,
		log:      log,
	}
}

// ListProducts возвращает все товары или товары категории ?category=<slug>
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get products")
		return
	}

	writeSuccess(w, http.StatusOK, "", products)
}

// SearchProducts ищет товары и сохраняет запрос в истории аутентифицированного пользователя
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	products, err := h.products.SearchProducts(r.Context(), query)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to search products")
		return
	}

	if user, ok := CurrentUser(r.Context()); ok && h.history != nil {
		if err := h.history.Add(r.Context(), user.ID, query); err != nil {
			h.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to record search query")
		}
	}

	writeSuccess(w, http.StatusOK, "", products)
}

// ListProductNames возвращает названия всех товаров
func (h *ProductHandler) ListProductNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.products.ListProductNames(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get product names")
		return
	}

	writeSuccess(w, http.StatusOK, "", names)
}

// DealOfTheDay возвращает товар с наибольшей суммой оценок
func (h *ProductHandler) DealOfTheDay(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.DealOfTheDay(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get deal of the day")
		return
	}

	writeSuccess(w, http.StatusOK, "", product)
}

// SimilarProducts возвращает товары той же категории
func (h *ProductHandler) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuidParam(r, "categoryId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := h.products.SimilarProducts(r.Context(), categoryID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get similar products")
		return
	}

	writeSuccess(w, http.StatusOK, "", products)
}

// GetProduct возвращает товар с оценками
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.products.GetProduct(r.Context(), productID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get product")
		return
	}

	writeSuccess(w, http.StatusOK, "", product)
}

// ProductRaters возвращает пользователей, оценивших товар
func (h *ProductHandler) ProductRaters(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	raters, err := h.products.ProductRaters(r.Context(), productID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get product raters")
		return
	}

	writeSuccess(w, http.StatusOK, "", raters)
}

// ----- Admin -----

// AdminListProducts возвращает все товары
func (h *ProductHandler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context(), "")
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get products")
		return
	}

	writeSuccess(w, http.StatusOK, "", products)
}

// CreateProduct принимает multipart форму с полями товара и изображениями
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.media.Enabled() {
		writeServiceError(w, h.log, services.ErrMediaUnavailable, "Failed to create product")
		return
	}
	if err := parseMultipart(w, r, h.media); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseCreateProductForm(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	files, err := readImageFiles(r, "images", h.media.MaxBytes())
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	images, err := h.media.UploadImages(r.Context(), productFolder, files)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to upload product images")
		return
	}
	req.Images = images

	product, err := h.products.CreateProduct(r.Context(), req)
	if err != nil {
		h.media.DeleteImages(context.WithoutCancel(r.Context()), imageIDs(images))
		writeServiceError(w, h.log, err, "Failed to create product")
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishProductCreated(product); err != nil {
			h.log.WithError(err).Warn("Failed to publish product created event")
		}
	}

	h.log.WithField("product_id", product.ID).Info("Product created successfully")
	writeSuccess(w, http.StatusCreated, "Product created", product)
}

// UpdateProduct частично обновляет товар и удаляет отмеченные изображения
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateProductRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	product, removed, err := h.products.UpdateProduct(r.Context(), productID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update product")
		return
	}

	if len(removed) > 0 {
		h.media.DeleteImages(context.WithoutCancel(r.Context()), imageIDs(removed))
	}

	if h.producer != nil {
		if err := h.producer.PublishProductUpdated(product); err != nil {
			h.log.WithError(err).Warn("Failed to publish product updated event")
		}
	}

	writeSuccess(w, http.StatusOK, "Product updated", product)
}

// DeleteProduct удаляет товар и затем его изображения
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	images, err := h.products.DeleteProduct(r.Context(), productID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to delete product")
		return
	}

	h.media.DeleteImages(context.WithoutCancel(r.Context()), imageIDs(images))

	if h.producer != nil {
		if err := h.producer.PublishProductDeleted(productID); err != nil {
			h.log.WithError(err).Warn("Failed to publish product deleted event")
		}
	}

	h.log.WithField("product_id", productID).Info("Product deleted successfully")
	writeSuccess(w, http.StatusOK, "Product deleted", nil)
}

func parseCreateProductForm(r *http.Request) (*models.CreateProductRequest, error) {
	req := &models.CreateProductRequest{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		BrandName:   strings.TrimSpace(r.FormValue("brand_name")),
	}

	if raw := strings.TrimSpace(r.FormValue("stock")); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("stock must be an integer")
		}
		req.Stock = stock
	}

	rawPrice := strings.TrimSpace(r.FormValue("price"))
	if rawPrice == "" {
		return nil, fmt.Errorf("price is required")
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return nil, fmt.Errorf("price must be a number")
	}
	req.Price = price

	rawCategory := strings.TrimSpace(r.FormValue("category_id"))
	if rawCategory == "" {
		return nil, fmt.Errorf("category_id is required")
	}
	categoryID, err := uuid.Parse(rawCategory)
	if err != nil {
		return nil, fmt.Errorf("invalid category_id: must be a UUID")
	}
	req.CategoryID = categoryID

	return req, nil
}

func imageIDs(images []models.Image) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.PublicID)
	}
	return ids
}
