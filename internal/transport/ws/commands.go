package ws

import (
	"context"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/service"
)

type commands struct {
	api ChatAPI
}

func (c commands) dealerChats(ctx context.Context, s *Session, _ Request) (*domain.Event, error) {
	list, err := c.api.DealerChats(ctx, s.User)
	if err != nil {
		return nil, err
	}
	return &domain.Event{MessageType: domain.EventChats, Results: list}, nil
}

func (c commands) managerChats(ctx context.Context, s *Session, req Request) (*domain.Event, error) {
	q, err := pageQuery(req)
	if err != nil {
		return nil, err
	}
	list, err := c.api.ManagerChats(ctx, s.User, q)
	if err != nil {
		return nil, err
	}
	return &domain.Event{MessageType: domain.EventChats, Results: list}, nil
}

func (c commands) chatMessages(ctx context.Context, s *Session, req Request) (*domain.Event, error) {
	chatID, err := req.ID("chat_id")
	if err != nil {
		return nil, err
	}
	q, err := pageQuery(req)
	if err != nil {
		return nil, err
	}
	list, err := c.api.ChatMessages(ctx, s.User, domain.ChatID(chatID), q)
	if err != nil {
		return nil, err
	}
	return &domain.Event{MessageType: domain.EventChatMessages, Results: list}, nil
}

// sendMessage: ответ вызвавшему не нужен, всё уходит через комнаты.
func (c commands) sendMessage(ctx context.Context, s *Session, req Request) (*domain.Event, error) {
	chatID, err := req.ID("chat_id")
	if err != nil {
		return nil, err
	}
	text, err := req.Text("text")
	if err != nil {
		return nil, err
	}
	if _, err := c.api.SendMessage(ctx, s.User, domain.ChatID(chatID), &text, nil); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c commands) readMessage(guards ...service.ReadGuard) Handler {
	return func(ctx context.Context, s *Session, req Request) (*domain.Event, error) {
		msgID, err := req.ID("msg_id")
		if err != nil {
			return nil, err
		}
		if _, err := c.api.ReadMessage(ctx, s.User, domain.MessageID(msgID), guards...); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func pageQuery(req Request) (domain.PageQuery, error) {
	page, err := req.Int("page")
	if err != nil {
		return domain.PageQuery{}, err
	}
	size, err := req.Int("page_size")
	if err != nil {
		return domain.PageQuery{}, err
	}
	return domain.PageQuery{Page: page, PageSize: size, Search: req.String("search")}, nil
}
