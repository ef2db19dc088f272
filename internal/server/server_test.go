package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openquiz/quizgate/internal/auth"
	"github.com/openquiz/quizgate/internal/lifecycle"
	"github.com/openquiz/quizgate/internal/registry"
	"github.com/openquiz/quizgate/pkg/ws"
)

const testSecret = "server-test-secret"

type nopNotifier struct{}

func (nopNotifier) SessionJoin(registry.Identity)  {}
func (nopNotifier) SessionLeave(registry.Identity) {}

func newTestServer(t *testing.T) (*httptest.Server, *lifecycle.Manager) {
	t.Helper()
	log := zaptest.NewLogger(t)
	manager := lifecycle.NewManager(nopNotifier{}, log)
	s := New("", "*", auth.NewJWT(testSecret, log), manager, log)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, manager
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestConnectWithValidToken(t *testing.T) {
	ts, manager := newTestServer(t)
	id := registry.Identity{ParticipantID: "p1", SessionID: "s1"}
	token, err := auth.IssueToken(testSecret, id)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws?token="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.Eventually(t, func() bool {
		return manager.Lobby().Len() == 1
	}, 2*time.Second, 10*time.Millisecond, "connection should land in the lobby")

	_, ok := manager.Lobby().ByIdentity(id)
	assert.True(t, ok)
}

func TestConnectWithInvalidTokenClosed(t *testing.T) {
	ts, manager := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws?token=not-a-jwt"), nil)
	require.NoError(t, err, "upgrade succeeds, rejection arrives as a close frame")
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, ws.CloseAuthRejected, closeErr.Code)
	assert.Equal(t, 0, manager.Lobby().Len())
}

func TestConnectWithMissingToken(t *testing.T) {
	ts, manager := newTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws"), nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, ws.CloseAuthRejected, closeErr.Code)
	assert.Equal(t, 0, manager.Lobby().Len())
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
