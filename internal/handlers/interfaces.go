package handlers

import (
	"context"

	"eshop/internal/models"
	"eshop/internal/services"

	"github.com/google/uuid"
)

// ----- Auth & users -----

type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	UserFromToken(ctx context.Context, token string) (*models.User, error)
	TokenIsValid(ctx context.Context, token string) (bool, error)
}

type UserService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error)
	UpdateShipping(ctx context.Context, userID uuid.UUID, req *models.UpdateShippingRequest) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, avatar models.Image) (*models.User, string, error)
}

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SetItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error)
}

type WishlistService interface {
	GetWishlist(ctx context.Context, userID uuid.UUID) ([]*models.Product, error)
	Toggle(ctx context.Context, userID, productID uuid.UUID) (*models.WishlistToggleResult, error)
}

type SearchHistoryService interface {
	Add(ctx context.Context, userID uuid.UUID, query string) error
	List(ctx context.Context, userID uuid.UUID) ([]string, error)
	Remove(ctx context.Context, userID uuid.UUID, query string) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// ----- Catalog -----

type ProductService interface {
	ListProducts(ctx context.Context, categorySlug string) ([]*models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]*models.Product, error)
	ListProductNames(ctx context.Context) ([]string, error)
	DealOfTheDay(ctx context.Context) (*models.Product, error)
	SimilarProducts(ctx context.Context, categoryID uuid.UUID) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	ProductRaters(ctx context.Context, productID uuid.UUID) ([]models.ProductRater, error)
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, req *models.UpdateProductRequest) (*models.Product, []models.Image, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) ([]models.Image, error)
}

type CategoryService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CategoryTree(ctx context.Context) ([]*models.CategoryNode, error)
	CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
}

type RatingService interface {
	RateProduct(ctx context.Context, userID uuid.UUID, req *models.RatingRequest) (*models.Rating, error)
	ListProductRatings(ctx context.Context, productID uuid.UUID) ([]models.Rating, error)
	UpdateRating(ctx context.Context, userID, ratingID uuid.UUID, req *models.UpdateRatingRequest) (*models.Rating, error)
	DeleteRating(ctx context.Context, userID, ratingID uuid.UUID) (uuid.UUID, error)
}

type MediaService interface {
	Enabled() bool
	MaxBytes() int64
	MaxFiles() int
	UploadImages(ctx context.Context, folder string, files []services.ImageFile) ([]models.Image, error)
	DeleteImage(ctx context.Context, publicID string) error
	DeleteImages(ctx context.Context, publicIDs []string)
}

// ----- Orders -----

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, models.OrderStatus, error)
}

type EventProducer interface {
	PublishOrderPlaced(order *models.Order) error
	PublishOrderStatusChanged(orderID uuid.UUID, oldStatus, newStatus models.OrderStatus) error
	PublishProductCreated(product *models.Product) error
	PublishProductUpdated(product *models.Product) error
	PublishProductDeleted(productID uuid.UUID) error
	PublishRatingSubmitted(rating *models.Rating) error
}

// ----- Analytics -----

type AnalyticsProvider interface {
	SalesAnalytics(ctx context.Context, filter models.SalesAnalyticsFilter) (*models.SalesAnalytics, error)
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
