package service

import (
	"context"

	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

// ReadGuard — дополнительная проверка перед отметкой о прочтении.
type ReadGuard func(msg *domain.Message, chat *domain.Chat) error

// DealerAuthored: менеджер отмечает прочитанными только сообщения дилера.
func DealerAuthored(msg *domain.Message, chat *domain.Chat) error {
	if msg.SenderID != chat.DealerID {
		return domain.ErrDealerOnly
	}
	return nil
}

// authorize: дилер — владелец чата, менеджер — из города дилера.
func (s *ChatService) authorize(ctx context.Context, caller *domain.User, chat *domain.Chat) error {
	switch {
	case caller.IsDealer():
		if chat.DealerID == caller.ID {
			return nil
		}
	case caller.IsManager():
		if chat.DealerCityID == nil {
			return domain.ErrNotParticipant
		}
		city, err := bridge.Call(ctx, s.bridge, "manager city", func(ctx context.Context) (*int64, error) {
			return s.profiles.ManagerCity(ctx, caller.ID)
		})
		if err != nil {
			return err
		}
		if city != nil && *city == *chat.DealerCityID {
			return nil
		}
	}
	return domain.ErrNotParticipant
}
