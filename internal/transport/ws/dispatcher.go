package ws

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/dealer-chat/internal/bridge"
	"github.com/cwrk-planet/dealer-chat/internal/domain"
)

// Dispatcher направляет кадр в обработчик из таблицы роли.
type Dispatcher struct {
	roles map[domain.Role]RoleCommandSet
}

func NewDispatcher(roles map[domain.Role]RoleCommandSet) *Dispatcher {
	return &Dispatcher{roles: roles}
}

// Dispatch обрабатывает один кадр. Любая ошибка (и паника) превращается
// в error-кадр вызвавшему, соединение не закрывается.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, data []byte) {
	start := time.Now()
	command := ""
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("ws handler panic", "command", command, "panic", r, "stack", string(debug.Stack()))
			s.Reply(errorEvent(errors.New("panic")))
		}
	}()

	req, err := parseRequest(data)
	if err != nil {
		s.Reply(errorEvent(err))
		return
	}
	command = req.Command

	h, ok := d.roles[s.Role][command]
	if !ok {
		s.Reply(errorEvent(unsupported(command)))
		return
	}

	ev, err := h(ctx, s, req)
	log := s.log.With("command", command, "took", time.Since(start))
	if err != nil {
		logCommandError(log, err)
		s.Reply(errorEvent(err))
		return
	}
	log.Debug("ws command done")
	if ev != nil {
		s.Reply(*ev)
	}
}

func errorEvent(err error) domain.Event {
	return domain.Event{MessageType: domain.EventError, Reason: errorReason(err)}
}

// errorReason — текст ошибки для клиента. Внутренние причины наружу не уходят.
func errorReason(err error) string {
	var pe *protocolError
	switch {
	case errors.As(err, &pe):
		return pe.reason
	case domain.IsNotFound(err):
		return "not found"
	case errors.Is(err, domain.ErrPermissionDenied):
		return err.Error()
	case errors.Is(err, domain.ErrEmptyMessage):
		return "text: this field is required"
	case errors.Is(err, domain.ErrTextTooLong):
		return domain.ErrTextTooLong.Error()
	default:
		return "something went wrong"
	}
}

func logCommandError(log *slog.Logger, err error) {
	var (
		pe *protocolError
		be *bridge.Error
	)
	switch {
	case errors.As(err, &pe), domain.IsNotFound(err),
		errors.Is(err, domain.ErrPermissionDenied), errors.Is(err, domain.ErrEmptyMessage):
		log.Debug("ws command rejected", "err", err)
	case errors.As(err, &be):
		log.Error("ws command persistence failure", "op", be.Op, "err", be.Err)
	default:
		log.Error("ws command failed", "err", err)
	}
}
