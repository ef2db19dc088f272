package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/openquiz/quizgate/internal/registry"
	"github.com/openquiz/quizgate/pkg/errors"
)

const testSecret = "test-secret"

func TestAuthenticateQueryToken(t *testing.T) {
	id := registry.Identity{ParticipantID: "p1", SessionID: "s1"}
	token, err := IssueToken(testSecret, id)
	require.NoError(t, err)

	a := NewJWT(testSecret, zaptest.NewLogger(t))
	r := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)

	got, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestAuthenticateCookieToken(t *testing.T) {
	id := registry.Identity{ParticipantID: "p2", SessionID: "s7"}
	token, err := IssueToken(testSecret, id)
	require.NoError(t, err)

	a := NewJWT(testSecret, zaptest.NewLogger(t))
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})

	got, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestAuthenticateFailures(t *testing.T) {
	a := NewJWT(testSecret, zaptest.NewLogger(t))

	t.Run("missing token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, errors.ErrAuthFailed)
	})

	t.Run("garbage token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/ws?token=not-a-jwt", nil)
		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, errors.ErrAuthFailed)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := IssueToken("other-secret", registry.Identity{ParticipantID: "p1", SessionID: "s1"})
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		_, err = a.Authenticate(r)
		assert.ErrorIs(t, err, errors.ErrAuthFailed)
	})

	t.Run("missing claims", func(t *testing.T) {
		token, err := IssueToken(testSecret, registry.Identity{ParticipantID: "p1"})
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		_, err = a.Authenticate(r)
		assert.ErrorIs(t, err, errors.ErrAuthFailed)
	})
}
