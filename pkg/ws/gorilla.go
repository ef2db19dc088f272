package ws

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openquiz/quizgate/pkg/errors"
	"github.com/openquiz/quizgate/pkg/json"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxMessageSize = 65536
	sendBufferSize = 256
)

// conn implements Conn over a gorilla websocket connection.
type conn struct {
	id   string
	ws   *websocket.Conn
	log  *zap.Logger
	send chan []byte
	done chan struct{}

	shutdownOnce sync.Once

	mu        sync.Mutex
	closed    bool
	msgSubs   []*Subscription
	closeSubs []*Subscription
}

// Upgrade upgrades an HTTP request to a WebSocket connection and starts the
// read/write pumps.
func Upgrade(w http.ResponseWriter, r *http.Request, allowedOrigins string, log *zap.Logger) (Conn, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins, log),
	}
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if log != nil {
			log.Error("WebSocket upgrade failed", zap.Error(err))
		}
		return nil, err
	}
	c := newConn(wsConn, log)
	go c.writePump()
	go c.readPump()
	return c, nil
}

func newConn(wsConn *websocket.Conn, log *zap.Logger) *conn {
	id := uuid.NewString()
	if log != nil {
		log = log.With(zap.String("conn_id", id))
	}
	return &conn{
		id:   id,
		ws:   wsConn,
		log:  log,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *conn) ID() string { return c.id }

// Send marshals v and queues it on the outbound channel. Delivery is best
// effort: a slow client gets frames dropped rather than stalling the gateway.
func (c *conn) Send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal outbound message")
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errors.ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
		c.log.Warn("WebSocket send buffer full, dropping frame")
		return errors.ErrSendBufferFull
	}
}

// ForceClose writes a close frame with the given application code and tears
// the connection down. Callers evicting a connection must DetachAll first so
// the transport close cannot fire stale callbacks.
func (c *conn) ForceClose(code int, reason string) {
	if c.ws != nil {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			c.log.Debug("Failed to write close frame", zap.Error(err))
		}
	}
	c.shutdown()
}

func (c *conn) OnMessage(fn func(data []byte)) *Subscription {
	sub := NewMessageSubscription(fn)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgSubs = append(c.msgSubs, sub)
	return sub
}

func (c *conn) OnceClose(fn func()) *Subscription {
	sub := NewCloseSubscription(fn)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		// The connection is already gone; fire the one-shot callback on its
		// own goroutine so the caller's locks are not held during delivery.
		go sub.FireClose()
		return sub
	}
	c.closeSubs = append(c.closeSubs, sub)
	c.mu.Unlock()
	return sub
}

func (c *conn) DetachAll() {
	c.mu.Lock()
	msgSubs := c.msgSubs
	closeSubs := c.closeSubs
	c.msgSubs = nil
	c.closeSubs = nil
	c.mu.Unlock()
	for _, s := range msgSubs {
		s.Cancel()
	}
	for _, s := range closeSubs {
		s.Cancel()
	}
}

// dispatchMessage delivers inbound data to every active message subscription,
// in registration order, on the read pump goroutine. Per-connection ordering
// follows from the single reader.
func (c *conn) dispatchMessage(data []byte) {
	c.mu.Lock()
	subs := make([]*Subscription, len(c.msgSubs))
	copy(subs, c.msgSubs)
	c.mu.Unlock()
	for _, s := range subs {
		if s.Active() {
			s.Deliver(data)
		}
	}
}

// shutdown marks the connection closed and fires remaining close
// subscriptions exactly once.
func (c *conn) shutdown() {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		subs := c.closeSubs
		c.closeSubs = nil
		c.mu.Unlock()
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
		for _, s := range subs {
			s.FireClose()
		}
	})
}

// readPump pumps messages from the WebSocket connection to subscriptions.
func (c *conn) readPump() {
	defer c.shutdown()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("Error reading from client", zap.Error(err))
			} else {
				c.log.Debug("Client closed connection", zap.Error(err))
			}
			return
		}
		c.dispatchMessage(data)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("Write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping error", zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// originChecker builds a CheckOrigin func from a comma-separated allow list.
// An empty list allows localhost only; "*" allows everything.
func originChecker(allowedOrigins string, log *zap.Logger) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Allow non-browser clients
		}
		allowed := allowedOrigins
		if allowed == "" {
			allowed = "localhost,127.0.0.1"
		}

		originHost := origin
		if strings.Contains(origin, "://") {
			parts := strings.Split(origin, "://")
			if len(parts) != 2 {
				return false
			}
			originHost = parts[1]
		}
		if strings.Contains(originHost, ":") {
			originHost = strings.Split(originHost, ":")[0]
		}

		for _, a := range strings.Split(allowed, ",") {
			if a == "*" || a == originHost {
				return true
			}
			if strings.HasPrefix(a, "*.") && strings.HasSuffix(originHost, a[1:]) {
				return true
			}
		}

		if log != nil {
			log.Warn("Rejected WebSocket connection",
				zap.String("origin", origin),
				zap.String("allowed_origins", allowed))
		}
		return false
	}
}
