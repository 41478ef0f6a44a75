package service

import (
	"context"
	"strings"

	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/notify"
	"github.com/cwrk-planet/dealer-chat/pkg/logger"
)

const maxTextLen = 4000

type Stores struct {
	Chats    ChatStore
	Messages MessageStore
	Profiles ProfileStore
	Reads    ReadModel
}

type ChatService struct {
	chats    ChatStore
	messages MessageStore
	profiles ProfileStore
	reads    ReadModel

	bridge *bridge.Bridge
	rooms  *RoomResolver
	fanout *Fanout
}

func NewChatService(st Stores, b *bridge.Bridge, fanout *Fanout) *ChatService {
	return &ChatService{
		chats:    st.Chats,
		messages: st.Messages,
		profiles: st.Profiles,
		reads:    st.Reads,
		bridge:   b,
		rooms:    NewRoomResolver(st.Profiles, b),
		fanout:   fanout,
	}
}

func (s *ChatService) Rooms() *RoomResolver { return s.rooms }

// DealerChats — единственный чат дилера.
func (s *ChatService) DealerChats(ctx context.Context, caller *domain.User) ([]domain.ChatSummary, error) {
	return bridge.Call(ctx, s.bridge, "dealer chats", func(ctx context.Context) ([]domain.ChatSummary, error) {
		return s.reads.DealerChats(ctx, caller.ID)
	})
}

// ManagerChats — чаты дилеров города менеджера; без города список пуст.
func (s *ChatService) ManagerChats(ctx context.Context, caller *domain.User, q domain.PageQuery) ([]domain.ChatSummary, error) {
	return bridge.Call(ctx, s.bridge, "manager chats", func(ctx context.Context) ([]domain.ChatSummary, error) {
		city, err := s.profiles.ManagerCity(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		if city == nil {
			return []domain.ChatSummary{}, nil
		}
		return s.reads.ManagerChats(ctx, domain.RosterQuery{
			CityID: *city,
			Search: q.Search,
			Limit:  q.Limit(),
			Offset: q.Offset(),
		})
	})
}

func (s *ChatService) ChatMessages(ctx context.Context, caller *domain.User, chatID domain.ChatID, q domain.PageQuery) ([]domain.MessageView, error) {
	chat, err := s.chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, chat); err != nil {
		return nil, err
	}
	return bridge.Call(ctx, s.bridge, "chat messages", func(ctx context.Context) ([]domain.MessageView, error) {
		return s.reads.ChatMessages(ctx, chatID, q.Search, q.Limit(), q.Offset())
	})
}

// SendMessage сохраняет сообщение и рассылает его комнатам чата.
// Другим участникам уходит new_message; если получатель только сам
// отправитель, его комната получает send_message.
func (s *ChatService) SendMessage(ctx context.Context, caller *domain.User, chatID domain.ChatID, text *string, files []string) (*domain.MessageView, error) {
	if text != nil {
		t := strings.TrimSpace(*text)
		if t == "" {
			text = nil
		} else {
			text = &t
		}
	}
	if text == nil && len(files) == 0 {
		return nil, domain.ErrEmptyMessage
	}
	if text != nil && len([]rune(*text)) > maxTextLen {
		return nil, domain.ErrTextTooLong
	}

	chat, err := s.chat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, chat); err != nil {
		return nil, err
	}

	view, err := bridge.Call(ctx, s.bridge, "send message", func(ctx context.Context) (*domain.MessageView, error) {
		m, err := s.messages.Create(ctx, domain.NewMessage{
			ChatID:   chat.ID,
			SenderID: caller.ID,
			Text:     text,
			Files:    files,
		})
		if err != nil {
			return nil, err
		}
		return s.messages.View(ctx, m.ID)
	})
	if err != nil {
		return nil, err
	}

	receivers := s.rooms.Receivers(ctx, chat)
	push := &notify.Notification{
		Event:     domain.EventNewMessage,
		ChatID:    chat.ID,
		MessageID: view.ID,
		Title:     view.Sender.Name,
		Body:      notify.Preview(view.Text),
	}

	own := caller.Room()
	deliveries := make([]Delivery, 0, len(receivers))
	for _, r := range receivers {
		if r.Room == own {
			continue
		}
		deliveries = append(deliveries, Delivery{
			Receiver: r,
			Event:    domain.Event{MessageType: domain.EventNewMessage, Results: domain.Status{Status: view}},
			Push:     push,
		})
	}
	if len(deliveries) == 0 {
		deliveries = append(deliveries, Delivery{
			Receiver: Receiver{Room: own, UserID: caller.ID},
			Event:    domain.Event{MessageType: domain.EventSendMessage, Results: view},
		})
	}

	s.publish(ctx, deliveries)
	return view, nil
}

// ReadMessage отмечает сообщение прочитанным и рассылает обновление комнатам чата.
// guards проверяются до изменения; повторный вызов снова рассылает.
func (s *ChatService) ReadMessage(ctx context.Context, caller *domain.User, msgID domain.MessageID, guards ...ReadGuard) (*domain.MessageView, error) {
	msg, err := bridge.Call(ctx, s.bridge, "load message", func(ctx context.Context) (*domain.Message, error) {
		return s.messages.GetByID(ctx, msgID)
	})
	if err != nil {
		return nil, err
	}
	chat, err := s.chat(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, chat); err != nil {
		return nil, err
	}
	for _, g := range guards {
		if err := g(msg, chat); err != nil {
			return nil, err
		}
	}

	view, err := bridge.Call(ctx, s.bridge, "read message", func(ctx context.Context) (*domain.MessageView, error) {
		if _, err := s.messages.MarkRead(ctx, msg.ID); err != nil {
			return nil, err
		}
		return s.messages.View(ctx, msg.ID)
	})
	if err != nil {
		return nil, err
	}

	// вызвавший получает сообщение как есть, только если его комната в наборе
	own := caller.Room()
	receivers := s.rooms.Receivers(ctx, chat)
	deliveries := make([]Delivery, 0, len(receivers))
	for _, r := range receivers {
		if r.Room == own {
			deliveries = append(deliveries, Delivery{
				Receiver: r,
				Event:    domain.Event{MessageType: domain.EventReadMessage, Results: view},
			})
			continue
		}
		deliveries = append(deliveries, Delivery{
			Receiver: r,
			Event:    domain.Event{MessageType: domain.EventReadMessage, Results: domain.Status{Status: view}},
		})
	}

	s.publish(ctx, deliveries)
	return view, nil
}

// EnsureDealerChat — создание чата при заведении дилера (внешнее событие).
func (s *ChatService) EnsureDealerChat(ctx context.Context, dealerID domain.UserID) (*domain.Chat, error) {
	return bridge.Call(ctx, s.bridge, "ensure chat", func(ctx context.Context) (*domain.Chat, error) {
		return s.chats.EnsureForDealer(ctx, dealerID)
	})
}

func (s *ChatService) chat(ctx context.Context, id domain.ChatID) (*domain.Chat, error) {
	return bridge.Call(ctx, s.bridge, "load chat", func(ctx context.Context) (*domain.Chat, error) {
		return s.chats.GetByID(ctx, id)
	})
}

func (s *ChatService) publish(ctx context.Context, deliveries []Delivery) {
	if err := s.fanout.Publish(ctx, deliveries); err != nil {
		logger.FromCtx(ctx).Warn("fanout incomplete", "deliveries", len(deliveries), "err", err)
	}
}
