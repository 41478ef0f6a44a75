package memstore

import (
	"context"
	"strings"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

type Users struct{ s *Store }

func (u *Users) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	if x, ok := u.s.users[id]; ok {
		c := *x
		return &c, nil
	}
	return nil, domain.ErrUserNotFound
}

func (u *Users) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, x := range u.s.users {
		if strings.EqualFold(x.Username, username) {
			c := *x
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type Chats struct{ s *Store }

func (c *Chats) GetByID(_ context.Context, id domain.ChatID) (*domain.Chat, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	if x, ok := c.s.chats[id]; ok {
		return c.s.chatLocked(x), nil
	}
	return nil, domain.ErrChatNotFound
}

func (c *Chats) GetByDealer(_ context.Context, dealerID domain.UserID) (*domain.Chat, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	for _, x := range c.s.chats {
		if x.DealerID == dealerID {
			return c.s.chatLocked(x), nil
		}
	}
	return nil, domain.ErrChatNotFound
}

// EnsureForDealer создаёт чат дилера, если его ещё нет.
func (c *Chats) EnsureForDealer(_ context.Context, dealerID domain.UserID) (*domain.Chat, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.users[dealerID]; !ok {
		return nil, domain.ErrUserNotFound
	}
	for _, x := range c.s.chats {
		if x.DealerID == dealerID {
			return c.s.chatLocked(x), nil
		}
	}
	c.s.nextChat++
	x := &domain.Chat{ID: domain.ChatID(c.s.nextChat), DealerID: dealerID, CreatedAt: c.s.now()}
	c.s.chats[x.ID] = x
	return c.s.chatLocked(x), nil
}

type Profiles struct{ s *Store }

func (p *Profiles) DealerProfile(_ context.Context, dealerID domain.UserID) (*domain.DealerProfile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if x, ok := p.s.profiles[dealerID]; ok {
		c := *x
		return &c, nil
	}
	return nil, domain.ErrProfileNotFound
}

func (p *Profiles) AssignedManagers(_ context.Context, profileID int64) ([]domain.User, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	out := make([]domain.User, 0, len(p.s.assignments[profileID]))
	for _, id := range p.s.assignments[profileID] {
		if u, ok := p.s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (p *Profiles) ManagerCity(_ context.Context, managerID domain.UserID) (*int64, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if city, ok := p.s.managerCity[managerID]; ok {
		return &city, nil
	}
	return nil, nil
}

type Messages struct {
	s     *Store
	media MediaResolver
}

func (m *Messages) Create(_ context.Context, in domain.NewMessage) (*domain.Message, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.chats[in.ChatID]; !ok {
		return nil, domain.ErrChatNotFound
	}
	if _, ok := m.s.users[in.SenderID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	m.s.nextMessage++
	msg := &domain.Message{
		ID:        domain.MessageID(m.s.nextMessage),
		ChatID:    in.ChatID,
		SenderID:  in.SenderID,
		Text:      in.Text,
		CreatedAt: m.s.now(),
	}
	m.s.messages = append(m.s.messages, msg)
	for _, f := range in.Files {
		m.s.nextAttachment++
		m.s.attachments[msg.ID] = append(m.s.attachments[msg.ID], domain.Attachment{ID: m.s.nextAttachment, File: f})
	}
	c := *msg
	return &c, nil
}

func (m *Messages) GetByID(_ context.Context, id domain.MessageID) (*domain.Message, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	if x := m.s.messageLocked(id); x != nil {
		c := *x
		return &c, nil
	}
	return nil, domain.ErrMessageNotFound
}

func (m *Messages) MarkRead(_ context.Context, id domain.MessageID) (*domain.Message, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	x := m.s.messageLocked(id)
	if x == nil {
		return nil, domain.ErrMessageNotFound
	}
	x.IsRead = true
	c := *x
	return &c, nil
}

func (m *Messages) View(_ context.Context, id domain.MessageID) (*domain.MessageView, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	x := m.s.messageLocked(id)
	if x == nil {
		return nil, domain.ErrMessageNotFound
	}
	v := m.s.viewLocked(x, m.media)
	return &v, nil
}
