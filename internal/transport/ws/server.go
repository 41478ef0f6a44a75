package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/domain"
	"github.com/cwrk-planet/dealer-chat/internal/pubsub"
	"github.com/cwrk-planet/dealer-chat/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/semaphore"
)

// Коды закрытия соединения.
const (
	CloseValidationFailed = 4002
	CloseNoRoom           = 4004
)

type TokenResolver interface {
	Resolve(ctx context.Context, token string) *domain.User
}

type Config struct {
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	HandlerTimeout time.Duration
	MaxInFlight    int      // команд одного соединения одновременно
	AllowedOrigins []string // пусто — любые
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = 15 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 << 10
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 8
	}
	return c
}

// Session — состояние соединения, вычисленное один раз при подключении.
type Session struct {
	ID   string
	User *domain.User
	Role domain.Role
	Room string

	conn  *Conn
	slots *semaphore.Weighted
	log   *slog.Logger
}

// Reply отправляет событие только этому соединению.
func (s *Session) Reply(ev domain.Event) {
	frame, err := ev.Encode()
	if err != nil {
		s.log.Error("ws encode reply", "event", ev.MessageType, "err", err)
		return
	}
	s.conn.Deliver(frame)
}

type Server struct {
	cfg        Config
	upgrader   websocket.Upgrader
	broker     pubsub.Broker
	resolver   TokenResolver
	validators map[domain.Role][]Validator
	dispatcher *Dispatcher

	mu       sync.Mutex
	sessions map[*Session]struct{}
	inflight sync.WaitGroup
}

func NewServer(cfg Config, broker pubsub.Broker, resolver TokenResolver, roles map[domain.Role]Role) *Server {
	cfg = cfg.withDefaults()
	validators := make(map[domain.Role][]Validator, len(roles))
	commands := make(map[domain.Role]RoleCommandSet, len(roles))
	for r, set := range roles {
		validators[r] = set.Validators
		commands[r] = set.Commands
	}

	return &Server{
		cfg:        cfg,
		broker:     broker,
		resolver:   resolver,
		validators: validators,
		dispatcher: NewDispatcher(commands),
		sessions:   make(map[*Session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// HandleWS: GET /ws/chat/{role}/{token}
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	role, ok := domain.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	validators, ok := s.validators[role]
	if !ok {
		http.NotFound(w, r)
		return
	}

	user := s.resolver.Resolve(r.Context(), chi.URLParam(r, "token"))

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	room := user.Room()
	if room == "" {
		closeWith(wsConn, CloseNoRoom, "room not found")
		return
	}
	if v, failed := firstFailed(user, validators); failed {
		slog.Debug("ws validator failed", "user_id", user.ID, "role", role, "validator", v.Name)
		closeWith(wsConn, CloseValidationFailed, v.Name)
		return
	}

	id := uuid.NewString()
	log := logger.FromCtx(r.Context()).With("conn_id", id, "user_id", user.ID, "room", room, "role", role)
	sess := &Session{
		ID:   id,
		User: user,
		Role: role,
		Room: room,
		conn:  newConn(wsConn, s.cfg.SendBuffer, log),
		slots: semaphore.NewWeighted(int64(s.cfg.MaxInFlight)),
		log:   log,
	}

	sub, err := s.broker.Subscribe(r.Context(), room, sess.conn)
	if err != nil {
		log.Error("ws subscribe failed", "err", err)
		closeWith(wsConn, websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := sub.Unsubscribe(ctx); err != nil {
			log.Warn("ws unsubscribe failed", "err", err)
		}
	}()

	s.track(sess)
	defer s.untrack(sess)

	log.Info("ws connected")
	go sess.conn.writePump(s.cfg.PingInterval)

	// обработчики переживают закрытие сокета
	base := logger.WithCtx(context.WithoutCancel(r.Context()), log)
	s.readLoop(base, sess)

	sess.conn.Close()
	log.Info("ws disconnected")
}

func (s *Server) readLoop(ctx context.Context, sess *Session) {
	ws := sess.conn.ws
	pongWait := 2 * s.cfg.PingInterval

	ws.SetReadLimit(s.cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.log.Debug("ws read failed", "err", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		// при MaxInFlight незавершённых командах чтение ждёт
		if err := sess.slots.Acquire(ctx, 1); err != nil {
			return
		}
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			defer sess.slots.Release(1)
			hctx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
			defer cancel()
			s.dispatcher.Dispatch(hctx, sess, data)
		}()
	}
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

// Sessions — число открытых соединений.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown закрывает все соединения с кодом 1001 и ждёт незавершённые команды.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for sess := range s.sessions {
		closeWith(sess.conn.ws, websocket.CloseGoingAway, "server shutdown")
		sess.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
