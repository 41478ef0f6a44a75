package http

import (
	"context"
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/dealer-chat/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	WS       http.HandlerFunc
	Messages *Handler
	Auth     httpmw.TokenResolver
	Ready    map[string]Pinger

	// MediaDir — каталог локального хранилища, раздаётся по /media/; пусто — не раздавать.
	MediaDir string
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(httpmw.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(httpmw.Logging)
	r.Use(middlewareChi.Recoverer)

	// WS endpoint: /ws/chat/dealer/{token}, /ws/chat/manager/{token}
	r.Get("/ws/chat/{role}/{token}", d.WS)

	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.Auth(d.Auth))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Post("/api/v1/messages", d.Messages.CreateMessage)
	})

	if d.MediaDir != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(d.MediaDir)))
		r.Get("/media/*", fs.ServeHTTP)
	}

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", readiness(d.Ready))

	return r
}

func readiness(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		writeJSON(ctx, w, status, envelope{"checks": checks})
	}
}
