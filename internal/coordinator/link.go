// Package coordinator maintains the bidirectional event channel to the
// backend coordination service: the gateway pushes structured requests and
// receives structured events over a single WebSocket link.
package coordinator

import (
	"context"
	stdjson "encoding/json"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openquiz/quizgate/internal/registry"
	"github.com/openquiz/quizgate/pkg/errors"
	"github.com/openquiz/quizgate/pkg/json"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler consumes events received from the coordination service.
type Handler func(ev Event)

// Link is the gateway's connection to the coordination service. Requests are
// best effort: while the link is down they are logged and dropped, never
// queued locally. The link reconnects with exponential backoff and announces
// itself with a checkin on every connect.
type Link struct {
	url       string
	gatewayID string
	log       *zap.Logger
	dialer    *websocket.Dialer
	handler   Handler

	sendMu sync.Mutex
	conn   *websocket.Conn
}

// NewLink creates a link to the coordination service at url.
func NewLink(url, gatewayID string, log *zap.Logger) *Link {
	return &Link{
		url:       url,
		gatewayID: gatewayID,
		log:       log.With(zap.String("module", "coordinator")),
		dialer:    &websocket.Dialer{HandshakeTimeout: dialTimeout},
	}
}

// SetHandler registers the event consumer. Must be called before Run.
func (l *Link) SetHandler(h Handler) {
	l.handler = h
}

// Run dials the coordination service and pumps events to the handler until
// ctx is cancelled, reconnecting with exponential backoff on failure.
func (l *Link) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, resp, err := l.dialer.DialContext(ctx, l.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			wait := bo.NextBackOff()
			l.log.Warn("Failed to dial coordination service",
				zap.Error(err),
				zap.String("url", l.url),
				zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}

		bo.Reset()
		l.setConn(conn)
		l.log.Info("Connected to coordination service", zap.String("url", l.url))
		l.Checkin()

		l.readLoop(ctx, conn)

		l.setConn(nil)
		conn.Close()
		// In-flight requests stay dropped; the loop only re-establishes
		// the channel.
		l.log.Warn("Coordination service link disconnected")
	}
}

func (l *Link) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			l.log.Warn("Malformed frame from coordination service", zap.Error(err))
			continue
		}
		if l.handler != nil {
			l.handler(ev)
		}
	}
}

func (l *Link) setConn(conn *websocket.Conn) {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	l.conn = conn
}

// send marshals a request frame and writes it to the link.
func (l *Link) send(kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal coordination request")
	}
	frame := Frame{
		Kind:          kind,
		CorrelationID: uuid.NewString(),
		Payload:       data,
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "marshal coordination frame")
	}

	l.sendMu.Lock()
	defer l.sendMu.Unlock()
	if l.conn == nil {
		return errors.ErrLinkDown
	}
	l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return l.conn.WriteMessage(websocket.TextMessage, raw)
}

// emit sends a request and downgrades any failure to a warning; requests to
// the coordination service are best effort.
func (l *Link) emit(kind string, payload interface{}) {
	if err := l.send(kind, payload); err != nil {
		l.log.Warn("Dropped coordination request",
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// Checkin announces the gateway's identity. Sent on every connect.
func (l *Link) Checkin() {
	l.emit(KindCheckin, CheckinPayload{GatewayID: l.gatewayID})
}

// SessionJoin reports that a participant entered the lobby for a session.
func (l *Link) SessionJoin(id registry.Identity) {
	l.emit(KindSessionJoin, SessionChange{
		ParticipantID: id.ParticipantID,
		SessionID:     id.SessionID,
	})
}

// SessionLeave reports that a participant left a session.
func (l *Link) SessionLeave(id registry.Identity) {
	l.emit(KindSessionLeave, SessionChange{
		ParticipantID: id.ParticipantID,
		SessionID:     id.SessionID,
	})
}

// ParticipantInput forwards a participant's solution input, stamped with the
// server-side receipt time.
func (l *Link) ParticipantInput(id registry.Identity, input stdjson.RawMessage, receivedAt time.Time) {
	l.emit(KindParticipantInput, InputPayload{
		ParticipantID: id.ParticipantID,
		SessionID:     id.SessionID,
		Input:         input,
		ReceivedAtMS:  receivedAt.UnixMilli(),
	})
}

// ParticipantCreated reports a newly created participant identifier.
func (l *Link) ParticipantCreated(participantID string) {
	l.emit(KindParticipantCreated, CreatedPayload{ParticipantID: participantID})
}
