package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prefix string

func (p prefix) URL(key string) string { return string(p) + key }

func text(s string) *string { return &s }

func TestRosterOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	st := New()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	st.SetClock(func() time.Time { clock = clock.Add(time.Second); return clock })

	manager := st.AddUser(domain.User{Username: "manager", Name: "Manager", Role: domain.RoleManager})
	st.SetManagerCity(manager, 7)

	var chats []domain.ChatID
	for i := 0; i < 15; i++ {
		d := st.AddUser(domain.User{Username: fmt.Sprintf("d%02d", i), Name: fmt.Sprintf("Dealer %02d", i), Role: domain.RoleDealer})
		st.AddDealerProfile(d, 7)
		c, err := st.Chats().EnsureForDealer(ctx, d)
		require.NoError(t, err)
		chats = append(chats, c.ID)

		if i == 2 {
			for j := 0; j < 5; j++ {
				_, err := st.Messages(nil).Create(ctx, domain.NewMessage{ChatID: c.ID, SenderID: d, Text: text("old")})
				require.NoError(t, err)
			}
		}
	}
	// более свежий, но без непрочитанных
	_, err := st.Messages(nil).Create(ctx, domain.NewMessage{ChatID: chats[9], SenderID: manager, Text: text("fresh")})
	require.NoError(t, err)

	rm := st.ReadModel(nil)
	first, err := rm.ManagerChats(ctx, domain.RosterQuery{CityID: 7, Limit: 10, Offset: 0})
	require.NoError(t, err)
	second, err := rm.ManagerChats(ctx, domain.RosterQuery{CityID: 7, Limit: 10, Offset: 10})
	require.NoError(t, err)

	require.Len(t, first, 10)
	require.Len(t, second, 5)
	assert.Equal(t, fmt.Sprint(chats[2]), first[0].ID)
	assert.EqualValues(t, 5, first[0].NewMessagesCount)
	assert.Equal(t, fmt.Sprint(chats[9]), first[1].ID)

	seen := map[string]bool{}
	for _, s := range append(first, second...) {
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
	assert.Len(t, seen, 15)

	other, err := rm.ManagerChats(ctx, domain.RosterQuery{CityID: 8, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, other)

	found, err := rm.ManagerChats(ctx, domain.RosterQuery{CityID: 7, Search: "dealer 02", Limit: 10})
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestDealerChatAndHistory(t *testing.T) {
	ctx := context.Background()
	st := New()
	dealer := st.AddUser(domain.User{Username: "dealer", Name: "Dealer", Role: domain.RoleDealer})
	manager := st.AddUser(domain.User{Username: "manager", Name: "Aigerim", Role: domain.RoleManager, Image: text("avatars/m.png")})

	list, err := st.ReadModel(nil).DealerChats(ctx, dealer)
	require.NoError(t, err)
	assert.Empty(t, list)

	c, err := st.Chats().EnsureForDealer(ctx, dealer)
	require.NoError(t, err)
	again, err := st.Chats().EnsureForDealer(ctx, dealer)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)

	msgs := st.Messages(prefix("https://cdn/"))
	first, err := msgs.Create(ctx, domain.NewMessage{ChatID: c.ID, SenderID: manager, Text: text("files"), Files: []string{"chat/1/a.png", "chat/1/b.pdf"}})
	require.NoError(t, err)
	_, err = msgs.Create(ctx, domain.NewMessage{ChatID: c.ID, SenderID: dealer, Text: text("thanks")})
	require.NoError(t, err)

	rm := st.ReadModel(prefix("https://cdn/"))
	list, err = rm.DealerChats(ctx, dealer)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Manager", list[0].Name)
	assert.EqualValues(t, 1, list[0].NewMessagesCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, first.ID, list[0].LastMessage.ID)

	history, err := rm.ChatMessages(ctx, c.ID, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].IsDealerMessage)
	assert.Equal(t, []domain.Attachment{
		{ID: 1, File: "https://cdn/chat/1/a.png"},
		{ID: 2, File: "https://cdn/chat/1/b.pdf"},
	}, history[1].Attachments)
	require.NotNil(t, history[1].Sender.Image)
	assert.Equal(t, "https://cdn/avatars/m.png", *history[1].Sender.Image)

	bySender, err := rm.ChatMessages(ctx, c.ID, "aiger", 10, 0)
	require.NoError(t, err)
	require.Len(t, bySender, 1)

	_, err = msgs.MarkRead(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	_, err = msgs.Create(ctx, domain.NewMessage{ChatID: 999, SenderID: dealer})
	assert.ErrorIs(t, err, domain.ErrChatNotFound)
}
