package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openquiz/quizgate/internal/registry"
	"github.com/openquiz/quizgate/pkg/json"
)

// fakeCoordinator is an in-process coordination service endpoint.
type fakeCoordinator struct {
	t        *testing.T
	upgrader websocket.Upgrader
	frames   chan Frame
	conns    chan *websocket.Conn
}

func newFakeCoordinator(t *testing.T) (*fakeCoordinator, *httptest.Server) {
	t.Helper()
	fc := &fakeCoordinator{
		t:      t,
		frames: make(chan Frame, 16),
		conns:  make(chan *websocket.Conn, 2),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fc.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		fc.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f Frame
			require.NoError(t, json.Unmarshal(data, &f))
			fc.frames <- f
		}
	}))
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCoordinator) nextFrame(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-fc.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func TestCheckinOnConnect(t *testing.T) {
	fc, srv := newFakeCoordinator(t)
	link := NewLink(wsURL(srv), "gw-test", zaptest.NewLogger(t))
	link.SetHandler(func(Event) {})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Run(ctx)

	frame := fc.nextFrame(t)
	assert.Equal(t, KindCheckin, frame.Kind)
	assert.NotEmpty(t, frame.CorrelationID)

	var payload CheckinPayload
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	assert.Equal(t, "gw-test", payload.GatewayID)
}

func TestRequestFrames(t *testing.T) {
	fc, srv := newFakeCoordinator(t)
	link := NewLink(wsURL(srv), "gw-test", zaptest.NewLogger(t))
	link.SetHandler(func(Event) {})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Run(ctx)

	fc.nextFrame(t) // checkin

	id := registry.Identity{ParticipantID: "p1", SessionID: "s1"}
	link.SessionJoin(id)
	frame := fc.nextFrame(t)
	assert.Equal(t, KindSessionJoin, frame.Kind)
	var change SessionChange
	require.NoError(t, json.Unmarshal(frame.Payload, &change))
	assert.Equal(t, "p1", change.ParticipantID)
	assert.Equal(t, "s1", change.SessionID)

	at := time.UnixMilli(1700000000000)
	link.ParticipantInput(id, []byte(`{"answer":42}`), at)
	frame = fc.nextFrame(t)
	assert.Equal(t, KindParticipantInput, frame.Kind)
	var input InputPayload
	require.NoError(t, json.Unmarshal(frame.Payload, &input))
	assert.Equal(t, int64(1700000000000), input.ReceivedAtMS)
	assert.JSONEq(t, `{"answer":42}`, string(input.Input))

	link.SessionLeave(id)
	assert.Equal(t, KindSessionLeave, fc.nextFrame(t).Kind)

	link.ParticipantCreated("p9")
	frame = fc.nextFrame(t)
	assert.Equal(t, KindParticipantCreated, frame.Kind)
}

func TestEventsReachHandler(t *testing.T) {
	fc, srv := newFakeCoordinator(t)
	link := NewLink(wsURL(srv), "gw-test", zaptest.NewLogger(t))

	events := make(chan Event, 1)
	link.SetHandler(func(ev Event) { events <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Run(ctx)

	conn := <-fc.conns
	fc.nextFrame(t) // checkin

	frame := Frame{Kind: EventRoleAssigned, CorrelationID: "c1", Payload: []byte(`{"participant_id":"p1","session_id":"s1","role":"player"}`)}
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	select {
	case ev := <-events:
		assert.Equal(t, EventRoleAssigned, ev.Kind)
		assert.Equal(t, "c1", ev.CorrelationID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRequestsDroppedWhileLinkDown(t *testing.T) {
	link := NewLink("ws://127.0.0.1:1/none", "gw-test", zaptest.NewLogger(t))
	// No Run: the link never connects. Requests are dropped, not queued.
	link.SessionLeave(registry.Identity{ParticipantID: "p1", SessionID: "s1"})
}
