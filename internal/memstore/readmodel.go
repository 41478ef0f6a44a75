package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

// ReadModel повторяет выборки postgres.ReadModel, включая порядок сортировки.
type ReadModel struct {
	s     *Store
	media MediaResolver
}

func (r *ReadModel) DealerChats(_ context.Context, dealerID domain.UserID) ([]domain.ChatSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.ChatSummary{}
	for _, c := range r.s.chats {
		if c.DealerID != dealerID {
			continue
		}
		var unread int64
		for _, m := range r.s.messages {
			if m.ChatID == c.ID && m.SenderID != dealerID && !m.IsRead {
				unread++
			}
		}
		out = append(out, domain.ChatSummary{
			ID:               strconv.FormatInt(int64(c.ID), 10),
			Name:             "Manager",
			NewMessagesCount: unread,
			LastMessage:      r.lastLocked(c.ID),
		})
		break
	}
	return out, nil
}

type rosterRow struct {
	summary  domain.ChatSummary
	chatID   domain.ChatID
	unread   int64
	total    int64
	lastTime *time.Time
}

func (r *ReadModel) ManagerChats(_ context.Context, q domain.RosterQuery) ([]domain.ChatSummary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	rows := make([]rosterRow, 0)
	for _, c := range r.s.chats {
		p, ok := r.s.profiles[c.DealerID]
		if !ok || p.CityID != q.CityID {
			continue
		}
		dealer, ok := r.s.users[c.DealerID]
		if !ok {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(dealer.Name), search) {
			continue
		}

		row := rosterRow{chatID: c.ID}
		for _, m := range r.s.messages {
			if m.ChatID != c.ID {
				continue
			}
			row.total++
			if s, ok := r.s.users[m.SenderID]; ok && s.Role != domain.RoleManager && !m.IsRead {
				row.unread++
			}
			if row.lastTime == nil || m.CreatedAt.After(*row.lastTime) {
				t := m.CreatedAt
				row.lastTime = &t
			}
		}
		row.summary = domain.ChatSummary{
			ID:               strconv.FormatInt(int64(c.ID), 10),
			Name:             dealer.Name,
			Image:            r.image(dealer.Image),
			NewMessagesCount: row.unread,
			LastMessage:      r.lastLocked(c.ID),
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.unread != b.unread {
			return a.unread > b.unread
		}
		switch {
		case a.lastTime != nil && b.lastTime == nil:
			return true
		case a.lastTime == nil && b.lastTime != nil:
			return false
		case a.lastTime != nil && !a.lastTime.Equal(*b.lastTime):
			return a.lastTime.After(*b.lastTime)
		}
		if a.total != b.total {
			return a.total > b.total
		}
		return a.chatID < b.chatID
	})

	out := make([]domain.ChatSummary, 0, q.Limit)
	for i := max(q.Offset, 0); i < len(rows) && len(out) < q.Limit; i++ {
		out = append(out, rows[i].summary)
	}
	return out, nil
}

func (r *ReadModel) ChatMessages(_ context.Context, chatID domain.ChatID, search string, limit, offset int) ([]domain.MessageView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	views := make([]domain.MessageView, 0)
	for _, m := range r.s.messages {
		if m.ChatID != chatID {
			continue
		}
		v := r.s.viewLocked(m, r.media)
		if search != "" && !strings.Contains(strings.ToLower(v.Sender.Name), search) {
			continue
		}
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID > views[j].ID
	})

	out := make([]domain.MessageView, 0, limit)
	for i := max(offset, 0); i < len(views) && len(out) < limit; i++ {
		out = append(out, views[i])
	}
	return out, nil
}

// lastLocked: первое сообщение по id, как в подзапросе postgres.
func (r *ReadModel) lastLocked(chatID domain.ChatID) *domain.LastMessage {
	for _, m := range r.s.messages {
		if m.ChatID != chatID {
			continue
		}
		return &domain.LastMessage{
			ID:          m.ID,
			Sender:      m.SenderID,
			ChatID:      m.ChatID,
			Text:        m.Text,
			IsRead:      m.IsRead,
			CreatedAt:   m.CreatedAt,
			Attachments: r.s.attachmentsLocked(m.ID, r.media),
		}
	}
	return nil
}

func (r *ReadModel) image(img *string) *string {
	if img == nil || *img == "" {
		return nil
	}
	u := resolve(r.media, *img)
	return &u
}

func (s *Store) viewLocked(m *domain.Message, media MediaResolver) domain.MessageView {
	v := domain.MessageView{
		ID:          m.ID,
		ChatID:      m.ChatID,
		Text:        m.Text,
		IsRead:      m.IsRead,
		CreatedAt:   m.CreatedAt,
		Attachments: s.attachmentsLocked(m.ID, media),
	}
	if u, ok := s.users[m.SenderID]; ok {
		v.Sender = domain.Sender{ID: u.ID, Name: u.Name}
		if u.Image != nil && *u.Image != "" {
			img := resolve(media, *u.Image)
			v.Sender.Image = &img
		}
	}
	if c, ok := s.chats[m.ChatID]; ok {
		v.IsDealerMessage = c.DealerID == m.SenderID
	}
	return v
}

func (s *Store) attachmentsLocked(id domain.MessageID, media MediaResolver) []domain.Attachment {
	src := s.attachments[id]
	out := make([]domain.Attachment, len(src))
	for i, a := range src {
		out[i] = domain.Attachment{ID: a.ID, File: resolve(media, a.File)}
	}
	return out
}

func resolve(media MediaResolver, key string) string {
	if media == nil || key == "" {
		return key
	}
	return media.URL(key)
}
