package handlers

import (
	"net/http"

	"eshop/internal/logger"
	"eshop/internal/models"
)

// CartHandler обслуживает корзину и список желаний
type CartHandler struct {
	cart     CartService
	wishlist WishlistService
	log      *logger.Logger
}

// NewCartHandler создает обработчик корзины
func NewCartHandler(cart CartService, wishlist WishlistService, log *logger.Logger) *CartHandler {
	return &CartHandler{
		cart:     cart,
		wishlist: wishlist,
		log:      log,
	}
}

// GetCart возвращает корзину текущего пользователя
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	cart, err := h.cart.GetCart(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get cart")
		return
	}

	writeSuccess(w, http.StatusOK, "", cart)
}

// SetCartItem задает количество товара; ноль удаляет строку
func (h *CartHandler) SetCartItem(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	productID, err := uuidParam(r, "productId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateCartItemRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity == nil {
		writeErrorResponse(w, http.StatusBadRequest, "quantity is required")
		return
	}

	cart, err := h.cart.SetItem(r.Context(), user.ID, productID, *req.Quantity)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update cart")
		return
	}

	writeSuccess(w, http.StatusOK, "Cart updated", cart)
}

// GetWishlist возвращает товары из списка желаний
func (h *CartHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	products, err := h.wishlist.GetWishlist(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get wishlist")
		return
	}

	writeSuccess(w, http.StatusOK, "", products)
}

// ToggleWishlist добавляет или убирает товар из списка желаний
func (h *CartHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	productID, err := uuidParam(r, "productId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.wishlist.Toggle(r.Context(), user.ID, productID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update wishlist")
		return
	}

	message := "Removed from wishlist"
	if result.InWishlist {
		message = "Added to wishlist"
	}
	writeSuccess(w, http.StatusOK, message, result)
}
