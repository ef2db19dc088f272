// Package lifecycle owns the per-participant connection state machine:
// absent → pending (lobby) → active (hall) → absent. Every registry mutation
// funnels through the Manager so that eviction, listener rewiring, and
// insertion happen as one atomic step.
package lifecycle

import (
	"sync"

	"go.uber.org/zap"

	"github.com/openquiz/quizgate/internal/registry"
	"github.com/openquiz/quizgate/pkg/errors"
	"github.com/openquiz/quizgate/pkg/metrics"
	"github.com/openquiz/quizgate/pkg/ws"
)

// Notifier sends session-state changes to the coordination service.
type Notifier interface {
	SessionJoin(id registry.Identity)
	SessionLeave(id registry.Identity)
}

// Sink consumes inbound client messages from hall connections.
type Sink interface {
	HandleClientMessage(conn ws.Conn, data []byte)
}

// Announcer broadcasts participant-left events to a session's game-masters.
type Announcer interface {
	ParticipantLeft(id registry.Identity)
}

// Manager moves connections between the lobby and the hall.
type Manager struct {
	mu       sync.Mutex
	lobby    *registry.Lobby
	hall     *registry.Hall
	notifier Notifier
	log      *zap.Logger

	sink      Sink
	announcer Announcer
}

// NewManager creates a lifecycle manager over fresh registries.
func NewManager(notifier Notifier, log *zap.Logger) *Manager {
	return &Manager{
		lobby:    registry.NewLobby(),
		hall:     registry.NewHall(),
		notifier: notifier,
		log:      log.With(zap.String("module", "lifecycle")),
	}
}

// AttachRouter wires the message sink and the left-announcer. Must be called
// before the first connection is admitted.
func (m *Manager) AttachRouter(sink Sink, announcer Announcer) {
	m.sink = sink
	m.announcer = announcer
}

// Lobby exposes the pending registry view.
func (m *Manager) Lobby() *registry.Lobby { return m.lobby }

// Hall exposes the active registry view.
func (m *Manager) Hall() *registry.Hall { return m.hall }

// AdmitToLobby inserts an authenticated connection as a pending entry. A
// connection already holding this identity — pending or active — is evicted
// first: its listeners are invalidated, its transport force-closed, and no
// session-state change is emitted, because logically the participant never
// left. A reconnect while active skips the lobby entirely: the new connection
// takes the evicted one's place in the hall under the already-assigned role,
// so no role re-assignment and no game-master broadcast follow. The new
// connection gets a one-shot close handler keyed by connection identity, so a
// stale close signal from a replaced connection can never destroy a later
// re-admission under the same identity.
func (m *Manager) AdmitToLobby(conn ws.Conn, id registry.Identity) {
	m.mu.Lock()
	if old, ok := m.hall.ByIdentity(id); ok {
		role := old.Role
		m.admitToHallLocked(conn, id, role)
		m.updateGaugesLocked()
		m.mu.Unlock()

		m.log.Info("Reconnected participant replaced its active connection",
			zap.String("conn_id", conn.ID()),
			zap.String("participant_id", id.ParticipantID),
			zap.String("session_id", id.SessionID),
			zap.String("role", string(role)))
		return
	}
	if old, ok := m.lobby.ByIdentity(id); ok {
		m.evictLocked(old.Conn, id, "pending")
		m.lobby.RemoveByConn(old.Conn)
	}
	m.lobby.Add(&registry.PendingEntry{Conn: conn, Identity: id})
	conn.OnceClose(func() { m.onPendingClose(conn) })
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.notifier.SessionJoin(id)
	m.log.Info("Participant admitted to lobby",
		zap.String("conn_id", conn.ID()),
		zap.String("participant_id", id.ParticipantID),
		zap.String("session_id", id.SessionID))
}

// Promote moves a pending participant into the hall under the assigned role.
// An unknown identity is a logged warning, not a fatal condition: the
// coordination service may assign roles for participants that disconnected
// in the meantime.
func (m *Manager) Promote(id registry.Identity, role registry.Role) error {
	m.mu.Lock()
	e, ok := m.lobby.RemoveByIdentity(id)
	if !ok {
		m.mu.Unlock()
		m.log.Warn("Role assigned for unknown participant",
			zap.String("participant_id", id.ParticipantID),
			zap.String("session_id", id.SessionID),
			zap.String("role", string(role)))
		return errors.ErrUnknownParticipant
	}
	// Lobby-era listeners must not outlive promotion.
	e.Conn.DetachAll()
	m.admitToHallLocked(e.Conn, id, role)
	m.updateGaugesLocked()
	m.mu.Unlock()

	m.log.Info("Participant promoted to hall",
		zap.String("conn_id", e.Conn.ID()),
		zap.String("participant_id", id.ParticipantID),
		zap.String("session_id", id.SessionID),
		zap.String("role", string(role)))
	return nil
}

// admitToHallLocked inserts an active entry, evicting any entry already
// holding the identity. Holds m.mu.
func (m *Manager) admitToHallLocked(conn ws.Conn, id registry.Identity, role registry.Role) {
	if old, ok := m.hall.ByIdentity(id); ok {
		m.evictLocked(old.Conn, id, "active")
		m.hall.RemoveByConn(old.Conn)
	}
	m.hall.Add(&registry.ActiveEntry{Conn: conn, Identity: id, Role: role})
	conn.OnMessage(func(data []byte) { m.sink.HandleClientMessage(conn, data) })
	conn.OnceClose(func() { m.onActiveClose(conn) })
}

// evictLocked performs the forced-eviction sequence: invalidate every
// listener on the old connection, then force-close it with a code telling the
// client not to auto-reconnect. Listener detachment comes first so the
// evicted connection's own close event cannot race a leave notification for
// a participant that is, from the session's perspective, still present.
func (m *Manager) evictLocked(conn ws.Conn, id registry.Identity, stage string) {
	conn.DetachAll()
	conn.ForceClose(ws.CloseReplaced, "replaced by newer connection")
	metrics.Evictions.Inc()
	m.log.Debug("Evicted stale connection",
		zap.String("conn_id", conn.ID()),
		zap.String("participant_id", id.ParticipantID),
		zap.String("session_id", id.SessionID),
		zap.String("stage", stage))
}

// onPendingClose removes the pending entry holding conn, if any, and reports
// the departure. Removal is by connection identity: after a replacement this
// resolves to nothing and is a no-op.
func (m *Manager) onPendingClose(conn ws.Conn) {
	m.mu.Lock()
	e, ok := m.lobby.RemoveByConn(conn)
	m.updateGaugesLocked()
	m.mu.Unlock()
	if !ok {
		return
	}
	m.notifier.SessionLeave(e.Identity)
	m.log.Info("Pending connection closed",
		zap.String("conn_id", conn.ID()),
		zap.String("participant_id", e.Identity.ParticipantID),
		zap.String("session_id", e.Identity.SessionID))
}

// onActiveClose removes the active entry holding conn, if any, reports the
// departure to the coordination service, and announces it to the session's
// game-masters.
func (m *Manager) onActiveClose(conn ws.Conn) {
	m.mu.Lock()
	e, ok := m.hall.RemoveByConn(conn)
	m.updateGaugesLocked()
	m.mu.Unlock()
	if !ok {
		return
	}
	m.notifier.SessionLeave(e.Identity)
	if m.announcer != nil {
		m.announcer.ParticipantLeft(e.Identity)
	}
	m.log.Info("Active connection closed",
		zap.String("conn_id", conn.ID()),
		zap.String("participant_id", e.Identity.ParticipantID),
		zap.String("session_id", e.Identity.SessionID),
		zap.String("role", string(e.Role)))
}

func (m *Manager) updateGaugesLocked() {
	metrics.LobbySize.Set(float64(m.lobby.Len()))
	metrics.HallSize.Set(float64(m.hall.Len()))
}
