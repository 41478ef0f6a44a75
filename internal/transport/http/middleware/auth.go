package httpmw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

type TokenResolver interface {
	Resolve(ctx context.Context, token string) *domain.User
}

// Auth требует "Authorization: Bearer <jwt>" и активного пользователя.
func Auth(res TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				deny(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			user := res.Resolve(r.Context(), token)
			if user == nil {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !user.IsActive {
				deny(w, http.StatusForbidden, "user is not active")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserFromCtx(ctx context.Context) *domain.User {
	u, _ := ctx.Value(ctxKeyUser).(*domain.User)
	return u
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": msg}})
}
