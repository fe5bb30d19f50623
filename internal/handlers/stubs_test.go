package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"eshop/internal/config"
	"eshop/internal/logger"
	"eshop/internal/models"
	"eshop/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func testLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

func testUser(role models.UserRole) *models.User {
	return &models.User{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Role: role}
}

// asUser кладет пользователя в контекст запроса, как это делает Authenticate
func asUser(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(withUser(req.Context(), user))
}

// withURLParam добавляет параметр маршрута chi
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rr.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return env
}

// ----- Auth & users -----

type stubAuthService struct {
	user     *models.User
	resp     *models.AuthResponse
	valid    bool
	err      error
	tokenErr error
	tokens   []string
}

func (s *stubAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return s.user, s.err
}
func (s *stubAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	return s.resp, s.err
}
func (s *stubAuthService) UserFromToken(ctx context.Context, token string) (*models.User, error) {
	s.tokens = append(s.tokens, token)
	if s.tokenErr != nil {
		return nil, s.tokenErr
	}
	return s.user, nil
}
func (s *stubAuthService) TokenIsValid(ctx context.Context, token string) (bool, error) {
	s.tokens = append(s.tokens, token)
	return s.valid, s.err
}

type stubUserService struct {
	user     *models.User
	previous string
	err      error
	avatar   models.Image
	profile  *models.UpdateProfileRequest
	shipping *models.UpdateShippingRequest
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	s.profile = req
	return s.user, s.err
}
func (s *stubUserService) UpdateShipping(ctx context.Context, userID uuid.UUID, req *models.UpdateShippingRequest) (*models.User, error) {
	s.shipping = req
	return s.user, s.err
}
func (s *stubUserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatar models.Image) (*models.User, string, error) {
	s.avatar = avatar
	return s.user, s.previous, s.err
}

type stubCartService struct {
	cart     *models.Cart
	err      error
	quantity int
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.cart, s.err
}
func (s *stubCartService) SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	s.quantity = quantity
	return s.cart, s.err
}

type stubWishlistService struct {
	products []*models.Product
	result   *models.WishlistToggleResult
	err      error
}

func (s *stubWishlistService) GetWishlist(ctx context.Context, userID uuid.UUID) ([]*models.Product, error) {
	return s.products, s.err
}
func (s *stubWishlistService) Toggle(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistToggleResult, error) {
	return s.result, s.err
}

type stubHistoryService struct {
	added   []string
	history []string
	err     error
	cleared bool
	removed string
}

func (s *stubHistoryService) Add(ctx context.Context, userID uuid.UUID, query string) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, query)
	return nil
}
func (s *stubHistoryService) List(ctx context.Context, userID uuid.UUID) ([]string, error) {
	return s.history, s.err
}
func (s *stubHistoryService) Remove(ctx context.Context, userID uuid.UUID, query string) error {
	s.removed = query
	return s.err
}
func (s *stubHistoryService) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	return s.err
}

// ----- Catalog -----

type stubProductService struct {
	product   *models.Product
	products  []*models.Product
	names     []string
	raters    []models.ProductRater
	removed   []models.Image
	err       error
	createErr error
	created   *models.CreateProductRequest
	getCalls  int
	slug      string
}

func (s *stubProductService) ListProducts(ctx context.Context, categorySlug string) ([]*models.Product, error) {
	s.slug = categorySlug
	return s.products, s.err
}
func (s *stubProductService) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	return s.products, s.err
}
func (s *stubProductService) ListProductNames(ctx context.Context) ([]string, error) {
	return s.names, s.err
}
func (s *stubProductService) DealOfTheDay(ctx context.Context) (*models.Product, error) {
	return s.product, s.err
}
func (s *stubProductService) SimilarProducts(ctx context.Context, categoryID uuid.UUID) ([]*models.Product, error) {
	return s.products, s.err
}
func (s *stubProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	s.getCalls++
	return s.product, s.err
}
func (s *stubProductService) ProductRaters(ctx context.Context, productID uuid.UUID) ([]models.ProductRater, error) {
	return s.raters, s.err
}
func (s *stubProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	s.created = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.product, nil
}
func (s *stubProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, req *models.UpdateProductRequest) (*models.Product, []models.Image, error) {
	return s.product, s.removed, s.err
}
func (s *stubProductService) DeleteProduct(ctx context.Context, productID uuid.UUID) ([]models.Image, error) {
	return s.removed, s.err
}

type stubCategoryService struct {
	categories []models.Category
	tree       []*models.CategoryNode
	category   *models.Category
	err        error
}

func (s *stubCategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories, s.err
}
func (s *stubCategoryService) CategoryTree(ctx context.Context) ([]*models.CategoryNode, error) {
	return s.tree, s.err
}
func (s *stubCategoryService) CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	return s.category, s.err
}

type stubRatingService struct {
	rating    *models.Rating
	ratings   []models.Rating
	productID uuid.UUID
	err       error
}

func (s *stubRatingService) RateProduct(ctx context.Context, userID uuid.UUID, req *models.RatingRequest) (*models.Rating, error) {
	return s.rating, s.err
}
func (s *stubRatingService) ListProductRatings(ctx context.Context, productID uuid.UUID) ([]models.Rating, error) {
	return s.ratings, s.err
}
func (s *stubRatingService) UpdateRating(ctx context.Context, userID, ratingID uuid.UUID, req *models.UpdateRatingRequest) (*models.Rating, error) {
	return s.rating, s.err
}
func (s *stubRatingService) DeleteRating(ctx context.Context, userID, ratingID uuid.UUID) (uuid.UUID, error) {
	return s.productID, s.err
}

type stubMediaService struct {
	disabled  bool
	images    []models.Image
	err       error
	deleteErr error
	folders   []string
	files     [][]services.ImageFile
	deleted   []string
}

func (s *stubMediaService) Enabled() bool   { return !s.disabled }
func (s *stubMediaService) MaxBytes() int64 { return 1 << 20 }
func (s *stubMediaService) MaxFiles() int   { return 5 }
func (s *stubMediaService) UploadImages(ctx context.Context, folder string, files []services.ImageFile) ([]models.Image, error) {
	s.folders = append(s.folders, folder)
	s.files = append(s.files, files)
	return s.images, s.err
}
func (s *stubMediaService) DeleteImage(ctx context.Context, publicID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, publicID)
	return nil
}
func (s *stubMediaService) DeleteImages(ctx context.Context, publicIDs []string) {
	s.deleted = append(s.deleted, publicIDs...)
}

// ----- Orders & events -----

type stubOrderService struct {
	order    *models.Order
	orders   []*models.Order
	previous models.OrderStatus
	filter   models.OrderFilter
	err      error
}

func (s *stubOrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {
	return s.order, s.err
}
func (s *stubOrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error) {
	return s.orders, s.err
}
func (s *stubOrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	s.filter = filter
	return s.orders, s.err
}
func (s *stubOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, models.OrderStatus, error) {
	return s.order, s.previous, s.err
}

type stubProducer struct {
	mu     sync.Mutex
	events []models.EventType
	err    error
}

func (p *stubProducer) record(t models.EventType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, t)
	return p.err
}

func (p *stubProducer) PublishOrderPlaced(order *models.Order) error {
	return p.record(models.EventTypeOrderPlaced)
}
func (p *stubProducer) PublishOrderStatusChanged(orderID uuid.UUID, oldStatus, newStatus models.OrderStatus) error {
	return p.record(models.EventTypeOrderStatusChanged)
}
func (p *stubProducer) PublishProductCreated(product *models.Product) error {
	return p.record(models.EventTypeProductCreated)
}
func (p *stubProducer) PublishProductUpdated(product *models.Product) error {
	return p.record(models.EventTypeProductUpdated)
}
func (p *stubProducer) PublishProductDeleted(productID uuid.UUID) error {
	return p.record(models.EventTypeProductDeleted)
}
func (p *stubProducer) PublishRatingSubmitted(rating *models.Rating) error {
	return p.record(models.EventTypeRatingSubmitted)
}

var (
	_ EventProducer = (*stubProducer)(nil)
	_ MediaService  = (*stubMediaService)(nil)
)
