package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Conn — сокет клиента с очередью отправки. Писать в сокет может
// только writePump; остальные кладут кадры в очередь через Deliver.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *slog.Logger
}

func newConn(ws *websocket.Conn, buffer int, log *slog.Logger) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
		log:  log,
	}
}

// Deliver ставит кадр в очередь; при полной очереди кадр отбрасывается.
// После закрытия соединения ничего не делает.
func (c *Conn) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		c.log.Warn("ws send queue full, frame dropped", "size", len(frame))
		return false
	}
}

func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) writePump(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("ws write failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.Debug("ws ping failed", "err", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

// closeWith отправляет close-кадр с кодом и закрывает сокет.
func closeWith(ws *websocket.Conn, code int, text string) {
	_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	_ = ws.Close()
}
