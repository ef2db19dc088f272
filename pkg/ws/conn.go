package ws

import (
	"sync"
)

// Application close codes sent to clients on forced disconnect. Codes in the
// 4000 range are reserved for private use by RFC 6455; clients treat them as
// terminal and must not auto-reconnect.
const (
	// CloseReplaced tells a client its connection was replaced by a newer
	// connection for the same participant.
	CloseReplaced = 4001
	// CloseAuthRejected tells a client its credentials were absent or invalid.
	CloseAuthRejected = 4003
)

// Conn is an opaque handle to a live bidirectional client channel. The
// gateway never interprets transport framing; it only sends structured
// payloads and observes message/close events through subscriptions.
//
// Message callbacks for a single Conn are dispatched in the order the
// messages were received.
type Conn interface {
	// ID returns a stable identifier for this transport connection.
	ID() string
	// Send marshals v and queues it for delivery. Best effort: returns
	// ErrSendBufferFull when the client cannot keep up and
	// ErrConnectionClosed after the connection is gone.
	Send(v interface{}) error
	// ForceClose closes the transport with an application close code.
	ForceClose(code int, reason string)
	// OnMessage registers a persistent message callback.
	OnMessage(fn func(data []byte)) *Subscription
	// OnceClose registers a one-shot close callback. If the connection is
	// already closed the callback fires asynchronously right away.
	OnceClose(fn func()) *Subscription
	// DetachAll invalidates every subscription on this connection. Any
	// in-flight signal observed afterwards resolves against an
	// invalidated token and is a no-op.
	DetachAll()
}

// Subscription is a per-connection token for a registered callback. Cancel
// invalidates the token: the callback never fires after Cancel returns,
// regardless of delivery timing on the transport side.
type Subscription struct {
	mu      sync.Mutex
	active  bool
	onData  func(data []byte)
	onClose func()
}

// NewMessageSubscription creates a persistent message token. Exported so
// alternative Conn implementations can reuse the invalidation semantics.
func NewMessageSubscription(fn func(data []byte)) *Subscription {
	return &Subscription{active: true, onData: fn}
}

// NewCloseSubscription creates a one-shot close token.
func NewCloseSubscription(fn func()) *Subscription {
	return &Subscription{active: true, onClose: fn}
}

// Cancel invalidates the subscription.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.onData = nil
	s.onClose = nil
}

// Active reports whether the subscription can still fire.
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Deliver invokes the message callback if the token is still valid.
func (s *Subscription) Deliver(data []byte) {
	s.mu.Lock()
	fn := s.onData
	s.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// FireClose consumes the token: a close subscription is one-shot.
func (s *Subscription) FireClose() {
	s.mu.Lock()
	fn := s.onClose
	s.active = false
	s.onClose = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
