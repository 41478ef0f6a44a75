package postgres

import (
	"context"

	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"github.com/jackc/pgx/v5"
)

type ChatRepository struct {
	q querier
}

func NewChatRepository(q querier) *ChatRepository {
	return &ChatRepository{q: q}
}

func (r *ChatRepository) GetByID(ctx context.Context, id domain.ChatID) (*domain.Chat, error) {
	return scanChat(r.q.QueryRow(ctx, queryChatByID, id))
}

func (r *ChatRepository) GetByDealer(ctx context.Context, dealerID domain.UserID) (*domain.Chat, error) {
	return scanChat(r.q.QueryRow(ctx, queryChatByDealer, dealerID))
}

// EnsureForDealer создаёт чат дилера, если его ещё нет (событие регистрации дилера).
func (r *ChatRepository) EnsureForDealer(ctx context.Context, dealerID domain.UserID) (*domain.Chat, error) {
	if _, err := r.q.Exec(ctx, queryEnsureChat, dealerID); err != nil {
		return nil, mapPgError(err, domain.ErrUserNotFound)
	}
	return r.GetByDealer(ctx, dealerID)
}

func scanChat(row pgx.Row) (*domain.Chat, error) {
	var c domain.Chat
	if err := row.Scan(&c.ID, &c.DealerID, &c.DealerUsername, &c.DealerDeviceToken, &c.DealerCityID, &c.CreatedAt); err != nil {
		return nil, mapPgError(err, domain.ErrChatNotFound)
	}
	return &c, nil
}
