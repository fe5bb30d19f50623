// Package router собирает HTTP маршруты магазина и цепочки middleware.
package router

import (
	"eshop/internal/handlers"
	"eshop/internal/logger"
	"eshop/internal/services"

	"github.com/go-chi/chi/v5"
)

// Handlers объединяет все HTTP обработчики приложения
type Handlers struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UserHandler
	Cart          *handlers.CartHandler
	SearchHistory *handlers.SearchHistoryHandler
	Products      *handlers.ProductHandler
	Categories    *handlers.CategoryHandler
	Ratings       *handlers.RatingHandler
	Orders        *handlers.OrderHandler
	Analytics     *handlers.AnalyticsHandler
	Uploads       *handlers.UploadHandler
	RateLimit     *handlers.RateLimitHandler
}

// New создает chi роутер со всеми маршрутами и middleware
func New(h Handlers, authMW *handlers.AuthMiddleware, limiter handlers.RateLimiter, log *logger.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(handlers.Recoverer(log))
	r.Use(handlers.RequestLogger(log))
	r.Use(handlers.CORS)

	// Health check endpoints без лимита
	r.Get("/health", h.Health.Health)
	r.Get("/health/readiness", h.Health.Readiness)
	r.Get("/health/liveness", h.Health.Liveness)

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.RateLimit(limiter, services.ScopeAPI, log))

		r.Get("/rate-limit/status", h.RateLimit.Status)

		// Auth
		r.Route("/auth", func(r chi.Router) {
			r.Use(handlers.RateLimit(limiter, services.ScopeAuth, log))

			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/token-is-valid", h.Auth.TokenIsValid)
		})

		// Профиль, корзина, список желаний и история поиска
		r.Route("/users/me", func(r chi.Router) {
			r.Use(authMW.Authenticate)

			r.Get("/", h.Users.Me)
			r.Put("/", h.Users.UpdateProfile)
			r.Patch("/shipping", h.Users.UpdateShipping)
			r.Post("/avatar", h.Users.UploadAvatar)

			r.Get("/cart", h.Cart.GetCart)
			r.Put("/cart/{productId}", h.Cart.SetCartItem)

			r.Get("/wishlist", h.Cart.GetWishlist)
			r.Post("/wishlist/{productId}", h.Cart.ToggleWishlist)

			r.Route("/search-history", func(r chi.Router) {
				r.Post("/", h.SearchHistory.Add)
				r.Get("/", h.SearchHistory.List)
				r.Delete("/", h.SearchHistory.Remove)
				r.Delete("/all", h.SearchHistory.Clear)
			})
		})

		// Каталог
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.ListProducts)
			r.With(authMW.OptionalAuth).Get("/search", h.Products.SearchProducts)
			r.Get("/names", h.Products.ListProductNames)
			r.Get("/deal-of-the-day", h.Products.DealOfTheDay)
			r.Get("/similar/{categoryId}", h.Products.SimilarProducts)
			r.Get("/{productId}", h.Products.GetProduct)
			r.With(authMW.Authenticate).Get("/{productId}/raters", h.Products.ProductRaters)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories.ListCategories)
			r.Get("/tree", h.Categories.CategoryTree)
		})

		// Оценки
		r.Route("/ratings", func(r chi.Router) {
			r.Get("/products/{productId}", h.Ratings.ListProductRatings)

			r.Group(func(r chi.Router) {
				r.Use(authMW.Authenticate)
				r.Post("/", h.Ratings.RateProduct)
				r.Put("/{ratingId}", h.Ratings.UpdateRating)
				r.Delete("/{ratingId}", h.Ratings.DeleteRating)
			})
		})

		// Заказы
		r.Route("/orders", func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Post("/", h.Orders.CreateOrder)
			r.Get("/me", h.Orders.MyOrders)
		})

		// Загрузка изображений
		r.Route("/uploads", func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Post("/", h.Uploads.UploadImages)
			r.Delete("/", h.Uploads.DeleteImage)
		})

		// Администрирование
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMW.Authenticate)
			r.Use(authMW.RequireAdmin)

			r.Post("/categories", h.Categories.CreateCategory)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.Products.AdminListProducts)
				r.Post("/", h.Products.CreateProduct)
				r.Put("/{productId}", h.Products.UpdateProduct)
				r.Delete("/{productId}", h.Products.DeleteProduct)
			})

			r.Get("/orders", h.Orders.ListOrders)
			r.Put("/orders/{orderId}/status", h.Orders.UpdateOrderStatus)

			r.Get("/analytics", h.Analytics.GetSalesAnalytics)
		})
	})

	return r
}
