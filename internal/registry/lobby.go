package registry

import (
	"sync"

	"github.com/openquiz/quizgate/pkg/ws"
)

// Lobby tracks pending connections, indexed by connection handle and by
// logical identity. Invariant: at most one entry per identity and at most one
// entry per connection. The lobby itself performs no uniqueness pre-checks;
// the lifecycle manager evicts before inserting.
type Lobby struct {
	mu         sync.RWMutex
	byConn     map[ws.Conn]*PendingEntry
	byIdentity map[Identity]*PendingEntry
}

// NewLobby creates an empty lobby.
func NewLobby() *Lobby {
	return &Lobby{
		byConn:     make(map[ws.Conn]*PendingEntry),
		byIdentity: make(map[Identity]*PendingEntry),
	}
}

// Add inserts a pending entry.
func (l *Lobby) Add(e *PendingEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byConn[e.Conn] = e
	l.byIdentity[e.Identity] = e
}

// ByConn looks up an entry by connection handle.
func (l *Lobby) ByConn(conn ws.Conn) (*PendingEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byConn[conn]
	return e, ok
}

// ByIdentity looks up an entry by logical identity.
func (l *Lobby) ByIdentity(id Identity) (*PendingEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byIdentity[id]
	return e, ok
}

// RemoveByConn deletes the entry holding conn. A no-op when absent.
func (l *Lobby) RemoveByConn(conn ws.Conn) (*PendingEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byConn[conn]
	if !ok {
		return nil, false
	}
	delete(l.byConn, conn)
	delete(l.byIdentity, e.Identity)
	return e, true
}

// RemoveByIdentity deletes the entry for id. A no-op when absent.
func (l *Lobby) RemoveByIdentity(id Identity) (*PendingEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.byIdentity[id]
	if !ok {
		return nil, false
	}
	delete(l.byIdentity, id)
	delete(l.byConn, e.Conn)
	return e, true
}

// Len returns the number of pending entries.
func (l *Lobby) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byConn)
}
