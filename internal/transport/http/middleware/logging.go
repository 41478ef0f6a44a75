package httpmw

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/dealer-chat/pkg/logger"

	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

// Logging кладёт в контекст логгер запроса и пишет итог: 5xx — error,
// 4xx — warn, остальное — info. Тела не логируются (multipart, ws).
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.FromCtx(r.Context()).With(
			"req_id", RequestIDFromCtx(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)

		ww := middlewareChi.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.WithCtx(r.Context(), log)))

		status := ww.Status()
		log.Log(r.Context(), levelFor(status), "http request",
			"status", status,
			"bytes", ww.BytesWritten(),
			"remote", r.RemoteAddr,
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		// 0 — соединение перехвачено (upgrade до websocket)
		return slog.LevelInfo
	}
}
