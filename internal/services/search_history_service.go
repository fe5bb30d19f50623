package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eshop/internal/apperror"
	"eshop/internal/database"
	"eshop/internal/logger"

	"github.com/google/uuid"
)

// SearchHistoryService хранит поисковые запросы пользователя
type SearchHistoryService struct {
	db  *database.DB
	log *logger.Logger
}

// NewSearchHistoryService создает новый экземпляр сервиса истории поиска
func NewSearchHistoryService(db *database.DB, log *logger.Logger) *SearchHistoryService {
	return &SearchHistoryService{
		db:  db,
		log: log,
	}
}

// Add сохраняет запрос в истории
func (s *SearchHistoryService) Add(ctx context.Context, userID uuid.UUID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return apperror.Validation("search query is required", nil)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (user_id, query, created_at) VALUES ($1, $2, $3)`,
		userID, query, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save search query: %w", err)
	}

	s.log.WithField("user_id", userID).Debug("Search query saved")
	return nil
}

// List возвращает запросы в порядке добавления
func (s *SearchHistoryService) List(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT query FROM search_history WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get search history: %w", err)
	}
	defer rows.Close()

	history := make([]string, 0)
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan search query: %w", err)
		}
		history = append(history, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search history: %w", err)
	}

	return history, nil
}

// Remove удаляет самое раннее совпадение запроса
func (s *SearchHistoryService) Remove(ctx context.Context, userID uuid.UUID, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return apperror.Validation("search query is required", nil)
	}

	deleteQuery := `
		DELETE FROM search_history
		WHERE id = (
			SELECT id FROM search_history
			WHERE user_id = $1 AND query = $2
			ORDER BY id
			LIMIT 1
		)
	`
	result, err := s.db.ExecContext(ctx, deleteQuery, userID, query)
	if err != nil {
		return fmt.Errorf("failed to delete search query: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("search query not found in history", nil)
	}

	return nil
}

// Clear удаляет всю историю пользователя
func (s *SearchHistoryService) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}

	s.log.WithField("user_id", userID).Info("Search history cleared")
	return nil
}
