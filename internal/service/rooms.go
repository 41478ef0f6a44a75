package service

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

// Receiver — комната получателя и данные для push, если он не в сети.
type Receiver struct {
	Room        string
	UserID      domain.UserID
	DeviceToken *string
}

type RoomResolver struct {
	profiles ProfileStore
	bridge   *bridge.Bridge
}

func NewRoomResolver(profiles ProfileStore, b *bridge.Bridge) *RoomResolver {
	return &RoomResolver{profiles: profiles, bridge: b}
}

// Receivers: комната дилера первой, затем назначенные менеджеры в порядке
// назначения, без повторов. Ошибка поиска профиля/назначений сводит набор
// к комнате дилера.
func (r *RoomResolver) Receivers(ctx context.Context, chat *domain.Chat) []Receiver {
	out := []Receiver{{
		Room:        chat.DealerRoom(),
		UserID:      chat.DealerID,
		DeviceToken: chat.DealerDeviceToken,
	}}

	managers, err := bridge.Call(ctx, r.bridge, "assigned managers", func(ctx context.Context) ([]domain.User, error) {
		p, err := r.profiles.DealerProfile(ctx, chat.DealerID)
		if err != nil {
			return nil, err
		}
		return r.profiles.AssignedManagers(ctx, p.ID)
	})
	if err != nil {
		slog.WarnContext(ctx, "receivers: dealer room only", "chat_id", chat.ID, "err", err)
		return out
	}

	seen := map[string]struct{}{out[0].Room: {}}
	for _, m := range managers {
		room := m.Room()
		if room == "" {
			continue
		}
		if _, dup := seen[room]; dup {
			continue
		}
		seen[room] = struct{}{}
		out = append(out, Receiver{Room: room, UserID: m.ID, DeviceToken: m.DeviceToken})
	}
	return out
}
