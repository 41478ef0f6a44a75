package security

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"golang.org/x/sync/singleflight"
)

type TokenVerifier interface {
	Verify(token string) (domain.UserID, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
}

// TokenResolver превращает токен в пользователя.
// Невалидный токен или неизвестный пользователь дают nil без ошибки:
// решение о закрытии соединения принимает шлюз.
type TokenResolver struct {
	verifier TokenVerifier
	users    UserLookup
	bridge   *bridge.Bridge
	group    singleflight.Group
}

func NewTokenResolver(v TokenVerifier, users UserLookup, b *bridge.Bridge) *TokenResolver {
	return &TokenResolver{verifier: v, users: users, bridge: b}
}

func (r *TokenResolver) Resolve(ctx context.Context, token string) *domain.User {
	if token == "" {
		return nil
	}
	id, err := r.verifier.Verify(token)
	if err != nil {
		slog.Debug("token rejected", "err", err)
		return nil
	}

	// параллельные подключения одного пользователя читают его один раз
	v, err, _ := r.group.Do(token, func() (any, error) {
		return bridge.Call(ctx, r.bridge, "resolve user", func(ctx context.Context) (*domain.User, error) {
			return r.users.GetByID(ctx, id)
		})
	})
	if err != nil {
		if !domain.IsNotFound(err) {
			slog.Warn("token user lookup failed", "user_id", id, "err", err)
		}
		return nil
	}
	return v.(*domain.User)
}
