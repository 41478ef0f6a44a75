package service

import (
	"context"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

type UserStore interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type ChatStore interface {
	GetByID(ctx context.Context, id domain.ChatID) (*domain.Chat, error)
	GetByDealer(ctx context.Context, dealerID domain.UserID) (*domain.Chat, error)
	EnsureForDealer(ctx context.Context, dealerID domain.UserID) (*domain.Chat, error)
}

type MessageStore interface {
	Create(ctx context.Context, in domain.NewMessage) (*domain.Message, error)
	GetByID(ctx context.Context, id domain.MessageID) (*domain.Message, error)
	MarkRead(ctx context.Context, id domain.MessageID) (*domain.Message, error)
	View(ctx context.Context, id domain.MessageID) (*domain.MessageView, error)
}

type ProfileStore interface {
	DealerProfile(ctx context.Context, dealerID domain.UserID) (*domain.DealerProfile, error)
	AssignedManagers(ctx context.Context, profileID int64) ([]domain.User, error)
	ManagerCity(ctx context.Context, managerID domain.UserID) (*int64, error)
}

type ReadModel interface {
	DealerChats(ctx context.Context, dealerID domain.UserID) ([]domain.ChatSummary, error)
	ManagerChats(ctx context.Context, q domain.RosterQuery) ([]domain.ChatSummary, error)
	ChatMessages(ctx context.Context, chatID domain.ChatID, search string, limit, offset int) ([]domain.MessageView, error)
}
