package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/pkg/logger"
)

type envelope map[string]any

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromCtx(ctx).Error("write json response failed", "err", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	writeJSON(ctx, w, status, envelope{"error": envelope{"message": msg}})
}

// writeServiceError переводит ошибку сервиса в статус; текст тот же, что в ws-кадре.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		writeError(ctx, w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(ctx, w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrEmptyMessage):
		writeError(ctx, w, http.StatusBadRequest, "text: this field is required")
	case errors.Is(err, domain.ErrTextTooLong):
		writeError(ctx, w, http.StatusBadRequest, domain.ErrTextTooLong.Error())
	default:
		logger.FromCtx(ctx).Error("http: request failed", "err", err)
		writeError(ctx, w, http.StatusInternalServerError, "something went wrong")
	}
}
