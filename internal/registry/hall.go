package registry

import (
	"sync"

	"github.com/openquiz/quizgate/pkg/ws"
)

// Hall tracks active session participants, indexed by connection handle, by
// logical identity, and by (session, role) for fan-out. Invariant: at most
// one entry per identity and at most one entry per connection.
type Hall struct {
	mu         sync.RWMutex
	byConn     map[ws.Conn]*ActiveEntry
	byIdentity map[Identity]*ActiveEntry
	bySession  map[string]map[Role]map[ws.Conn]*ActiveEntry
}

// NewHall creates an empty hall.
func NewHall() *Hall {
	return &Hall{
		byConn:     make(map[ws.Conn]*ActiveEntry),
		byIdentity: make(map[Identity]*ActiveEntry),
		bySession:  make(map[string]map[Role]map[ws.Conn]*ActiveEntry),
	}
}

// Add inserts an active entry into all three indexes.
func (h *Hall) Add(e *ActiveEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byConn[e.Conn] = e
	h.byIdentity[e.Identity] = e
	if h.bySession[e.Identity.SessionID] == nil {
		h.bySession[e.Identity.SessionID] = make(map[Role]map[ws.Conn]*ActiveEntry)
	}
	if h.bySession[e.Identity.SessionID][e.Role] == nil {
		h.bySession[e.Identity.SessionID][e.Role] = make(map[ws.Conn]*ActiveEntry)
	}
	h.bySession[e.Identity.SessionID][e.Role][e.Conn] = e
}

// ByConn looks up an entry by connection handle.
func (h *Hall) ByConn(conn ws.Conn) (*ActiveEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.byConn[conn]
	return e, ok
}

// ByIdentity looks up an entry by logical identity.
func (h *Hall) ByIdentity(id Identity) (*ActiveEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.byIdentity[id]
	return e, ok
}

// RemoveByConn deletes the entry holding conn. A no-op when absent.
func (h *Hall) RemoveByConn(conn ws.Conn) (*ActiveEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.byConn[conn]
	if !ok {
		return nil, false
	}
	h.removeLocked(e)
	return e, true
}

// RemoveByIdentity deletes the entry for id. A no-op when absent.
func (h *Hall) RemoveByIdentity(id Identity) (*ActiveEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.byIdentity[id]
	if !ok {
		return nil, false
	}
	h.removeLocked(e)
	return e, true
}

func (h *Hall) removeLocked(e *ActiveEntry) {
	delete(h.byConn, e.Conn)
	delete(h.byIdentity, e.Identity)
	if roles, ok := h.bySession[e.Identity.SessionID]; ok {
		if conns, ok := roles[e.Role]; ok {
			delete(conns, e.Conn)
			if len(conns) == 0 {
				delete(roles, e.Role)
			}
		}
		if len(roles) == 0 {
			delete(h.bySession, e.Identity.SessionID)
		}
	}
}

// BySessionAndRole returns the entries for one role of a session. Order is
// unspecified; fan-out is broadcast, not ordered delivery.
func (h *Hall) BySessionAndRole(sessionID string, role Role) []*ActiveEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.bySession[sessionID][role]
	out := make([]*ActiveEntry, 0, len(conns))
	for _, e := range conns {
		out = append(out, e)
	}
	return out
}

// BySession returns the entries for every role of a session.
func (h *Hall) BySession(sessionID string) []*ActiveEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*ActiveEntry
	for _, conns := range h.bySession[sessionID] {
		for _, e := range conns {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of active entries.
func (h *Hall) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byConn)
}
