package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/memstore"
	"github.com/cwrk-planet/dealer-chat/internal/notify"
	"github.com/cwrk-planet/dealer-chat/internal/pubsub"
	"github.com/cwrk-planet/dealer-chat/internal/service"
	"github.com/cwrk-planet/dealer-chat/internal/storage"
	httpx "github.com/cwrk-planet/dealer-chat/internal/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	users  *memstore.Users
	tokens map[string]domain.UserID
}

func (r staticResolver) Resolve(ctx context.Context, token string) *domain.User {
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

type roomInbox struct {
	mu     sync.Mutex
	frames []string
}

func (i *roomInbox) Deliver(frame []byte) bool {
	i.mu.Lock()
	i.frames = append(i.frames, string(frame))
	i.mu.Unlock()
	return true
}

func (i *roomInbox) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.frames)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type api struct {
	srv     *httptest.Server
	store   *memstore.Store
	chat    *domain.Chat
	media   string
	manager *roomInbox
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()

	dealer := st.AddUser(domain.User{Username: "dealer01", Name: "Dealer", Role: domain.RoleDealer, IsActive: true})
	manager := st.AddUser(domain.User{Username: "manager01", Name: "Manager", Role: domain.RoleManager, IsActive: true})
	outsider := st.AddUser(domain.User{Username: "dealer02", Role: domain.RoleDealer, IsActive: true})
	blocked := st.AddUser(domain.User{Username: "blocked", Role: domain.RoleDealer, IsActive: false})
	profile := st.AddDealerProfile(dealer, 3)
	st.AssignManager(profile, manager)
	chat, err := st.Chats().EnsureForDealer(ctx, dealer)
	require.NoError(t, err)

	dir := t.TempDir()
	files, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir})
	require.NoError(t, err)
	urls := storage.NewMediaURLs("http://cdn.test/media")

	broker := pubsub.NewMemoryBroker()
	inbox := &roomInbox{}
	_, err = broker.Subscribe(ctx, "manager01", inbox)
	require.NoError(t, err)

	svc := service.NewChatService(service.Stores{
		Chats:    st.Chats(),
		Messages: st.Messages(urls),
		Profiles: st.Profiles(),
		Reads:    st.ReadModel(urls),
	}, bridge.New(4), service.NewFanout(broker, notify.Noop{}))

	router := httpx.NewRouter(httpx.RouterDeps{
		WS:       func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		Messages: httpx.NewHandler(svc, files, 1<<20, 2),
		Auth: staticResolver{users: st.Users(), tokens: map[string]domain.UserID{
			"dealer": dealer, "outsider": outsider, "blocked": blocked,
		}},
		Ready:    map[string]httpx.Pinger{"postgres": pinger{}, "broker": pinger{}},
		MediaDir: dir,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &api{srv: srv, store: st, chat: chat, media: dir, manager: inbox}
}

type part struct {
	name, filename, body string
}

func (a *api) post(t *testing.T, token string, parts ...part) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, mw.WriteField(p.name, p.body))
			continue
		}
		fw, err := mw.CreateFormFile(p.name, p.filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, p.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/v1/messages", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func chatID(c *domain.Chat) string { return strconv.FormatInt(int64(c.ID), 10) }

func storedFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	require.NoError(t, err)
	return n
}

func TestCreateMessageWithAttachments(t *testing.T) {
	a := newAPI(t)

	resp, body := a.post(t, "dealer",
		part{name: "chat_id", body: chatID(a.chat)},
		part{name: "text", body: "  price list  "},
		part{name: "files", filename: "list.PDF", body: "%PDF"},
		part{name: "files[]", filename: "photo.jpg", body: "jpeg"},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	assert.Equal(t, "price list", body["text"])
	assert.Equal(t, true, body["is_dealer_message"])
	atts, ok := body["attachments"].([]any)
	require.True(t, ok)
	require.Len(t, atts, 2)
	for _, at := range atts {
		file := at.(map[string]any)["file"].(string)
		assert.True(t, strings.HasPrefix(file, "http://cdn.test/media/chat/"), file)
	}
	assert.Equal(t, 2, storedFiles(t, a.media))
	assert.Equal(t, 1, a.store.MessageCount(a.chat.ID))
	assert.Equal(t, 1, a.manager.count())
}

func TestCreateMessageFilesOnly(t *testing.T) {
	a := newAPI(t)

	resp, body := a.post(t, "dealer",
		part{name: "chat_id", body: chatID(a.chat)},
		part{name: "files", filename: "a.png", body: "png"},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Nil(t, body["text"])
}

func TestCreateMessageRejections(t *testing.T) {
	a := newAPI(t)
	id := chatID(a.chat)

	tests := []struct {
		name   string
		token  string
		parts  []part
		status int
		reason string
	}{
		{"no token", "", []part{{name: "chat_id", body: id}}, http.StatusUnauthorized, "missing bearer token"},
		{"bad token", "nope", []part{{name: "chat_id", body: id}}, http.StatusUnauthorized, "invalid token"},
		{"inactive", "blocked", []part{{name: "chat_id", body: id}}, http.StatusForbidden, "user is not active"},
		{"no chat id", "dealer", []part{{name: "text", body: "hi"}}, http.StatusBadRequest, "chat_id: this field is required"},
		{"bad chat id", "dealer", []part{{name: "chat_id", body: "x"}, {name: "text", body: "hi"}}, http.StatusBadRequest, "chat_id: must be an integer"},
		{"empty", "dealer", []part{{name: "chat_id", body: id}, {name: "text", body: "  "}}, http.StatusBadRequest, "text: this field is required"},
		{"unknown chat", "dealer", []part{{name: "chat_id", body: "999"}, {name: "text", body: "hi"}}, http.StatusNotFound, "not found"},
		{"foreign chat", "outsider", []part{{name: "chat_id", body: id}, {name: "text", body: "hi"}}, http.StatusForbidden, domain.ErrNotParticipant.Error()},
		{"too many files", "dealer", []part{
			{name: "chat_id", body: id},
			{name: "files", filename: "1.txt", body: "1"},
			{name: "files", filename: "2.txt", body: "2"},
			{name: "files", filename: "3.txt", body: "3"},
		}, http.StatusBadRequest, "files: at most 2 files allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := a.post(t, tt.token, tt.parts...)
			assert.Equal(t, tt.status, resp.StatusCode)
			errBody, _ := body["error"].(map[string]any)
			assert.Equal(t, tt.reason, errBody["message"])
		})
	}
	assert.Zero(t, a.store.MessageCount(a.chat.ID))
	assert.Zero(t, a.manager.count())
}

func TestCreateMessageRemovesFilesOnFailure(t *testing.T) {
	a := newAPI(t)

	resp, _ := a.post(t, "outsider",
		part{name: "chat_id", body: chatID(a.chat)},
		part{name: "files", filename: "a.png", body: "png"},
	)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, storedFiles(t, a.media))
}

func TestMediaServed(t *testing.T) {
	a := newAPI(t)
	require.NoError(t, os.MkdirAll(filepath.Join(a.media, "chat", "1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(a.media, "chat", "1", "x.txt"), []byte("hello"), 0o644))

	resp, err := http.Get(a.srv.URL + "/media/chat/1/x.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(b))
}

func TestHealthAndReadiness(t *testing.T) {
	a := newAPI(t)

	resp, err := http.Get(a.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(a.srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(a.srv.URL + "/ws/chat/dealer/abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestReadinessReportsFailedDependency(t *testing.T) {
	router := httpx.NewRouter(httpx.RouterDeps{
		WS:       func(http.ResponseWriter, *http.Request) {},
		Messages: httpx.NewHandler(nil, nil, 0, 0),
		Auth:     staticResolver{},
		Ready:    map[string]httpx.Pinger{"postgres": pinger{}, "broker": pinger{err: errors.New("connection refused")}},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Checks["broker"])
}
