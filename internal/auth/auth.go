// Package auth extracts the participant identity from an incoming
// connection's credentials. Credential issuance lives elsewhere; the gateway
// only verifies and extracts.
package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/openquiz/quizgate/internal/registry"
	"github.com/openquiz/quizgate/pkg/errors"
)

// SessionCookie is the cookie carrying the session token when the client
// cannot use a query parameter.
const SessionCookie = "quiz_session"

// Authenticator resolves an upgrade request to a participant identity.
// Failure means the connection is forcibly closed with no lobby admission.
type Authenticator interface {
	Authenticate(r *http.Request) (registry.Identity, error)
}

// sessionClaims are the token claims the gateway consumes.
type sessionClaims struct {
	ParticipantID string `json:"pid"`
	SessionID     string `json:"sid"`
	jwt.RegisteredClaims
}

// JWT authenticates connections with an HMAC-signed session token, taken
// from the "token" query parameter or the session cookie.
type JWT struct {
	secret []byte
	log    *zap.Logger
}

// NewJWT creates a JWT authenticator.
func NewJWT(secret string, log *zap.Logger) *JWT {
	return &JWT{
		secret: []byte(secret),
		log:    log.With(zap.String("module", "auth")),
	}
}

// Authenticate extracts and verifies the session token.
func (a *JWT) Authenticate(r *http.Request) (registry.Identity, error) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return registry.Identity{}, errors.ErrAuthFailed
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrAuthFailed
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		a.log.Warn("Rejected connection with invalid session token", zap.Error(err))
		return registry.Identity{}, errors.ErrAuthFailed
	}
	if claims.ParticipantID == "" || claims.SessionID == "" {
		a.log.Warn("Session token missing identity claims")
		return registry.Identity{}, errors.ErrAuthFailed
	}
	return registry.Identity{
		ParticipantID: claims.ParticipantID,
		SessionID:     claims.SessionID,
	}, nil
}

// IssueToken signs a session token for the given identity. Used by tests and
// local tooling; production tokens come from the auth service.
func IssueToken(secret string, id registry.Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		ParticipantID: id.ParticipantID,
		SessionID:     id.SessionID,
	})
	return token.SignedString([]byte(secret))
}
