package handlers

import (
	"net/http"

	"eshop/internal/apperror"
	"eshop/internal/logger"
)

var kindStatus = map[apperror.Kind]int{
	apperror.KindNotFound:     http.StatusNotFound,
	apperror.KindValidation:   http.StatusBadRequest,
	apperror.KindConflict:     http.StatusConflict,
	apperror.KindUnauthorized: http.StatusUnauthorized,
	apperror.KindForbidden:    http.StatusForbidden,
	apperror.KindUnavailable:  http.StatusServiceUnavailable,
}

// writeServiceError отдает клиенту сообщение типизированной ошибки.
// Нетипизированные ошибки логируются и скрываются за internalMessage.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, internalMessage string) {
	if kind, ok := apperror.KindOf(err); ok {
		if status, known := kindStatus[kind]; known {
			writeErrorResponse(w, status, err.Error())
			return
		}
	}

	if log != nil {
		log.WithError(err).Error(internalMessage)
	}
	writeErrorResponse(w, http.StatusInternalServerError, internalMessage)
}
