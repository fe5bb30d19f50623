package handlers

import (
	"net/http"

	"eshop/internal/logger"
	"eshop/internal/models"
)

// RatingHandler обслуживает оценки товаров
type RatingHandler struct {
	ratings  RatingService
	producer EventProducer
	log      *logger.Logger
}

// NewRatingHandler создает обработчик оценок
func NewRatingHandler(ratings RatingService, producer EventProducer, log *logger.Logger) *RatingHandler {
	return &RatingHandler{
		ratings:  ratings,
		producer: producer,
		log:      log,
	}
}

// RateProduct создает или заменяет оценку текущего пользователя
func (h *RatingHandler) RateProduct(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.RatingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rating, err := h.ratings.RateProduct(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to rate product")
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishRatingSubmitted(rating); err != nil {
			h.log.WithError(err).Warn("Failed to publish rating submitted event")
		}
	}

	writeSuccess(w, http.StatusOK, "Rating saved", rating)
}

// ListProductRatings возвращает оценки товара, новые первыми
func (h *RatingHandler) ListProductRatings(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "productId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	ratings, err := h.ratings.ListProductRatings(r.Context(), productID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get ratings")
		return
	}

	writeSuccess(w, http.StatusOK, "", ratings)
}

// UpdateRating изменяет оценку владельца
func (h *RatingHandler) UpdateRating(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	ratingID, err := uuidParam(r, "ratingId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateRatingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rating, err := h.ratings.UpdateRating(r.Context(), user.ID, ratingID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update rating")
		return
	}

	writeSuccess(w, http.StatusOK, "Rating updated", rating)
}

// DeleteRating удаляет оценку владельца
func (h *RatingHandler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	ratingID, err := uuidParam(r, "ratingId")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	productID, err := h.ratings.DeleteRating(r.Context(), user.ID, ratingID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to delete rating")
		return
	}

	h.log.WithFields(map[string]interface{}{
		"rating_id":  ratingID,
		"product_id": productID,
	}).Debug("Rating removed by owner")
	writeSuccess(w, http.StatusOK, "Rating deleted", nil)
}
