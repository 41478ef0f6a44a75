package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/memstore"
	"github.com/cwrk-planet/dealer-chat/internal/notify"
	"github.com/cwrk-planet/dealer-chat/internal/pubsub"
	"github.com/cwrk-planet/dealer-chat/internal/service"
	"github.com/cwrk-planet/dealer-chat/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokens map[string]domain.UserID

type resolver struct {
	tokens tokens
	users  *memstore.Users
}

func (r resolver) Resolve(ctx context.Context, token string) *domain.User {
	id, ok := r.tokens[token]
	if !ok {
		return nil
	}
	u, err := r.users.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	return u
}

type gateway struct {
	url    string
	store  *memstore.Store
	broker *pubsub.MemoryBroker
	server *ws.Server
	chat   *domain.Chat
	dealer domain.UserID
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	dealer := st.AddUser(domain.User{Username: "Dealer01", Name: "Dealer", Role: domain.RoleDealer, IsActive: true})
	manager := st.AddUser(domain.User{Username: "manager.kz", Name: "Manager", Role: domain.RoleManager, IsActive: true})
	sleeper := st.AddUser(domain.User{Username: "sleeper", Role: domain.RoleDealer, IsActive: false})
	profile := st.AddDealerProfile(dealer, 7)
	st.AssignManager(profile, manager)
	st.SetManagerCity(manager, 7)
	chat, err := st.Chats().EnsureForDealer(ctx, dealer)
	require.NoError(t, err)

	broker := pubsub.NewMemoryBroker()
	b := bridge.New(4)
	svc := service.NewChatService(service.Stores{
		Chats:    st.Chats(),
		Messages: st.Messages(nil),
		Profiles: st.Profiles(),
		Reads:    st.ReadModel(nil),
	}, b, service.NewFanout(broker, notify.Noop{}))

	res := resolver{
		tokens: tokens{"dealer-token": dealer, "manager-token": manager, "sleeper-token": sleeper},
		users:  st.Users(),
	}
	srv := ws.NewServer(ws.Config{PingInterval: time.Second}, broker, res, ws.DefaultRoles(svc))

	r := chi.NewRouter()
	r.Get("/ws/chat/{role}/{token}", srv.HandleWS)
	hs := httptest.NewServer(r)
	t.Cleanup(hs.Close)

	return &gateway{
		url:    "ws" + strings.TrimPrefix(hs.URL, "http"),
		store:  st,
		broker: broker,
		server: srv,
		chat:   chat,
		dealer: dealer,
	}
}

func (g *gateway) dial(t *testing.T, role, token string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(g.url+"/ws/chat/"+role+"/"+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// connect ждёт, пока соединение подпишется на свою комнату.
func (g *gateway) connect(t *testing.T, role, token, room string) *websocket.Conn {
	t.Helper()
	before := g.broker.Subscribers(room)
	c := g.dial(t, role, token)
	require.Eventually(t, func() bool { return g.broker.Subscribers(room) > before }, time.Second, 5*time.Millisecond)
	return c
}

func send(t *testing.T, c *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(frame)))
}

type frame struct {
	MessageType string          `json:"message_type"`
	Results     json.RawMessage `json:"results"`
	Reason      string          `json:"reason"`
}

func read(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f), string(data))
	return f
}

func expectSilence(t *testing.T, c *websocket.Conn) {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, data, err := c.ReadMessage()
	var ne net.Error
	require.True(t, errors.As(err, &ne) && ne.Timeout(), "unexpected frame: %s (err %v)", data, err)
}

func closeCode(t *testing.T, c *websocket.Conn) int {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	return ce.Code
}

func TestDealerMessageReachesManager(t *testing.T) {
	g := newGateway(t)
	dealer := g.connect(t, "dealer", "dealer-token", "dealer01")
	manager := g.connect(t, "manager", "manager-token", "manager.kz")

	send(t, dealer, `{"command":"send_message","chat_id":`+jsonID(g.chat.ID)+`,"text":"hi"}`)

	f := read(t, manager)
	assert.Equal(t, "new_message", f.MessageType)
	var res struct {
		Status domain.MessageView `json:"status"`
	}
	require.NoError(t, json.Unmarshal(f.Results, &res))
	assert.Equal(t, "hi", *res.Status.Text)
	assert.Equal(t, g.dealer, res.Status.Sender.ID)
	assert.Equal(t, g.chat.ID, res.Status.ChatID)
	assert.True(t, res.Status.IsDealerMessage)

	expectSilence(t, dealer)
	assert.Equal(t, 1, g.store.MessageCount(g.chat.ID))
}

func TestConnectRejected(t *testing.T) {
	g := newGateway(t)

	assert.Equal(t, ws.CloseNoRoom, closeCode(t, g.dial(t, "dealer", "nope")))
	assert.Equal(t, ws.CloseValidationFailed, closeCode(t, g.dial(t, "dealer", "sleeper-token")))
	assert.Equal(t, ws.CloseValidationFailed, closeCode(t, g.dial(t, "manager", "dealer-token")))
	assert.Equal(t, ws.CloseValidationFailed, closeCode(t, g.dial(t, "dealer", "manager-token")))
	assert.Zero(t, g.broker.Subscribers("dealer01"))
	assert.Zero(t, g.broker.Subscribers("sleeper"))

	_, resp, err := websocket.DefaultDialer.Dial(g.url+"/ws/chat/admin/dealer-token", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestProtocolErrors(t *testing.T) {
	g := newGateway(t)
	c := g.connect(t, "dealer", "dealer-token", "dealer01")

	cases := []struct {
		in, reason string
	}{
		{`hello`, "support only json"},
		{`[1,2]`, "support only json"},
		{`{"command":`, "support only json"},
		{`{}`, "command: this field is required"},
		{`{"command":"fly"}`, "unsupported command: fly"},
		{`{"command":"chat_messages"}`, "chat_id: this field is required"},
		{`{"command":"send_message","chat_id":1}`, "text: this field is required"},
		{`{"command":"send_message","chat_id":1,"text":"   "}`, "text: this field is required"},
		{`{"command":"read_message"}`, "msg_id: this field is required"},
		{`{"command":"read_message","msg_id":"404"}`, "not found"},
		{`{"command":"chat_messages","chat_id":"abc"}`, "chat_id: must be an integer"},
	}
	for _, tc := range cases {
		send(t, c, tc.in)
		f := read(t, c)
		assert.Equal(t, "error", f.MessageType, tc.in)
		assert.Equal(t, tc.reason, f.Reason, tc.in)
	}

	// соединение живо
	send(t, c, `{"command":"chats"}`)
	assert.Equal(t, "chats", read(t, c).MessageType)
}

func TestManagerCannotReadManagerMessage(t *testing.T) {
	g := newGateway(t)
	manager := g.connect(t, "manager", "manager-token", "manager.kz")
	dealer := g.connect(t, "dealer", "dealer-token", "dealer01")

	send(t, manager, `{"command":"send_message","chat_id":"`+jsonID(g.chat.ID)+`","text":"ping"}`)
	f := read(t, dealer)
	require.Equal(t, "new_message", f.MessageType)
	var res struct {
		Status domain.MessageView `json:"status"`
	}
	require.NoError(t, json.Unmarshal(f.Results, &res))

	send(t, manager, `{"command":"read_message","msg_id":`+jsonMsgID(res.Status.ID)+`}`)
	e := read(t, manager)
	assert.Equal(t, "error", e.MessageType)
	assert.Contains(t, e.Reason, "only dealer messages")

	m, ok := g.store.Message(res.Status.ID)
	require.True(t, ok)
	assert.False(t, m.IsRead)

	// дилер может; менеджер получает обёрнутое событие, дилер — эхо
	send(t, dealer, `{"command":"read_message","msg_id":`+jsonMsgID(res.Status.ID)+`}`)
	assert.Equal(t, "read_message", read(t, dealer).MessageType)
	rf := read(t, manager)
	assert.Equal(t, "read_message", rf.MessageType)
	assert.Contains(t, string(rf.Results), `"status"`)
}

func TestListings(t *testing.T) {
	g := newGateway(t)
	dealer := g.connect(t, "dealer", "dealer-token", "dealer01")
	manager := g.connect(t, "manager", "manager-token", "manager.kz")

	send(t, manager, `{"command":"send_message","chat_id":`+jsonID(g.chat.ID)+`,"text":"welcome"}`)
	require.Equal(t, "new_message", read(t, dealer).MessageType)

	send(t, dealer, `{"command":"chats"}`)
	f := read(t, dealer)
	require.Equal(t, "chats", f.MessageType)
	var list []domain.ChatSummary
	require.NoError(t, json.Unmarshal(f.Results, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Manager", list[0].Name)
	assert.EqualValues(t, 1, list[0].NewMessagesCount)

	send(t, manager, `{"command":"chats","page":"1","page_size":5,"search":"deal"}`)
	f = read(t, manager)
	require.Equal(t, "chats", f.MessageType)
	require.NoError(t, json.Unmarshal(f.Results, &list))
	require.Len(t, list, 1)
	assert.Equal(t, jsonID(g.chat.ID), list[0].ID)

	send(t, manager, `{"command":"chat_messages","chat_id":`+jsonID(g.chat.ID)+`}`)
	f = read(t, manager)
	require.Equal(t, "chat_messages", f.MessageType)
	var history []domain.MessageView
	require.NoError(t, json.Unmarshal(f.Results, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "welcome", *history[0].Text)
}

func TestDisconnectReleasesRoom(t *testing.T) {
	g := newGateway(t)
	c := g.connect(t, "dealer", "dealer-token", "dealer01")
	require.Equal(t, 1, g.server.Sessions())

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool {
		return g.broker.Subscribers("dealer01") == 0 && g.server.Sessions() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestShutdownClosesSessions(t *testing.T) {
	g := newGateway(t)
	c := g.connect(t, "dealer", "dealer-token", "dealer01")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, g.server.Shutdown(ctx))
	assert.Equal(t, websocket.CloseGoingAway, closeCode(t, c))
}

func jsonID(id domain.ChatID) string       { return strings.TrimSpace(mustJSON(id)) }
func jsonMsgID(id domain.MessageID) string { return strings.TrimSpace(mustJSON(id)) }

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
