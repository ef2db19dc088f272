// Package registry holds the two process-wide connection indexes: the Lobby
// of authenticated connections awaiting a role, and the Hall of role-assigned
// session participants. All mutation is funneled through the lifecycle
// manager; nothing outside this package touches the underlying maps.
package registry

import (
	"github.com/openquiz/quizgate/pkg/errors"
	"github.com/openquiz/quizgate/pkg/ws"
)

// Identity is the logical participant identity: a participant takes part in
// exactly one place per session, regardless of how many times its transport
// connection is replaced.
type Identity struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
}

// Role is the closed set of session roles, assigned by the coordination
// service at promotion time.
type Role string

const (
	RoleGameMaster Role = "game-master"
	RolePlayer     Role = "player"
)

// Roles lists every valid role, for session-wide fan-out.
var Roles = []Role{RoleGameMaster, RolePlayer}

// ParseRole validates a role received from the coordination service.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleGameMaster:
		return RoleGameMaster, nil
	case RolePlayer:
		return RolePlayer, nil
	}
	return "", errors.ErrInvalidRole
}

// PendingEntry is a lobby record: a connection that has authenticated but has
// not yet been assigned a role.
type PendingEntry struct {
	Conn     ws.Conn
	Identity Identity
}

// ActiveEntry is a hall record: a confirmed, role-assigned session member.
type ActiveEntry struct {
	Conn     ws.Conn
	Identity Identity
	Role     Role
}
