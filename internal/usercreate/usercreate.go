// Package usercreate is the boundary to the external user-creation
// collaborator. The gateway forwards creation requests from clients and
// creation confirmations from the coordination service; it holds no user
// state of its own.
package usercreate

import (
	"context"

	"go.uber.org/zap"

	"github.com/openquiz/quizgate/pkg/errors"
)

// ErrNotConfigured is returned when no user-creation backend is wired.
var ErrNotConfigured = errors.New("user-creation backend not configured")

// UserData is the client-supplied payload for a new participant.
type UserData struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Creator creates participants in the external user service.
type Creator interface {
	// Create registers the user and returns the new participant identifier.
	Create(ctx context.Context, data UserData) (string, error)
	// Confirm forwards a creation confirmation from the coordination service.
	Confirm(ctx context.Context, participantID string)
}

// LogCreator is the default wiring: it logs creation traffic without a
// backing user service. Deployments inject a real Creator at startup.
type LogCreator struct {
	log *zap.Logger
}

// NewLogCreator creates a LogCreator.
func NewLogCreator(log *zap.Logger) *LogCreator {
	return &LogCreator{log: log.With(zap.String("module", "usercreate"))}
}

func (c *LogCreator) Create(_ context.Context, data UserData) (string, error) {
	c.log.Warn("No user-creation backend configured, rejecting creation request",
		zap.String("name", data.Name))
	return "", ErrNotConfigured
}

func (c *LogCreator) Confirm(_ context.Context, participantID string) {
	c.log.Info("Participant creation confirmed",
		zap.String("participant_id", participantID))
}
