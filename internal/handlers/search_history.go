package handlers

import (
	"net/http"

	"eshop/internal/logger"
	"eshop/internal/models"
)

// SearchHistoryHandler обслуживает историю поиска пользователя
type SearchHistoryHandler struct {
	history SearchHistoryService
	log     *logger.Logger
}

// NewSearchHistoryHandler создает обработчик истории поиска
func NewSearchHistoryHandler(history SearchHistoryService, log *logger.Logger) *SearchHistoryHandler {
	return &SearchHistoryHandler{
		history: history,
		log:     log,
	}
}

// Add сохраняет запрос
func (h *SearchHistoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.SearchHistoryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.history.Add(r.Context(), user.ID, req.Query); err != nil {
		writeServiceError(w, h.log, err, "Failed to save search query")
		return
	}

	writeSuccess(w, http.StatusCreated, "Search query saved", nil)
}

// List возвращает запросы в порядке добавления
func (h *SearchHistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	history, err := h.history.List(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get search history")
		return
	}

	writeSuccess(w, http.StatusOK, "", history)
}

// Remove удаляет самое раннее совпадение запроса
func (h *SearchHistoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.SearchHistoryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.history.Remove(r.Context(), user.ID, req.Query); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete search query")
		return
	}

	writeSuccess(w, http.StatusOK, "Search query deleted", nil)
}

// Clear удаляет всю историю
func (h *SearchHistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.history.Clear(r.Context(), user.ID); err != nil {
		writeServiceError(w, h.log, err, "Failed to clear search history")
		return
	}

	writeSuccess(w, http.StatusOK, "Search history cleared", nil)
}
