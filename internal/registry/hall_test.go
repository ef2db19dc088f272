package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openquiz/quizgate/internal/testkit"
)

func activeEntry(pid, sid string, role Role) *ActiveEntry {
	return &ActiveEntry{
		Conn:     testkit.NewFakeConn(),
		Identity: Identity{ParticipantID: pid, SessionID: sid},
		Role:     role,
	}
}

func TestHallAddAndLookup(t *testing.T) {
	h := NewHall()
	e := activeEntry("p1", "s1", RolePlayer)
	h.Add(e)

	byConn, ok := h.ByConn(e.Conn)
	require.True(t, ok)
	assert.Same(t, e, byConn)

	byID, ok := h.ByIdentity(e.Identity)
	require.True(t, ok)
	assert.Same(t, e, byID)
}

func TestHallSessionRolePartition(t *testing.T) {
	h := NewHall()
	gm := activeEntry("gm1", "s1", RoleGameMaster)
	p1 := activeEntry("p1", "s1", RolePlayer)
	p2 := activeEntry("p2", "s1", RolePlayer)
	other := activeEntry("p3", "s2", RolePlayer)
	for _, e := range []*ActiveEntry{gm, p1, p2, other} {
		h.Add(e)
	}

	assert.Len(t, h.BySessionAndRole("s1", RoleGameMaster), 1)
	assert.Len(t, h.BySessionAndRole("s1", RolePlayer), 2)
	assert.Len(t, h.BySessionAndRole("s2", RolePlayer), 1)
	assert.Empty(t, h.BySessionAndRole("s2", RoleGameMaster))
	assert.Len(t, h.BySession("s1"), 3)
	assert.Equal(t, 4, h.Len())
}

func TestHallRemoveCleansAllIndexes(t *testing.T) {
	h := NewHall()
	e := activeEntry("p1", "s1", RolePlayer)
	h.Add(e)

	removed, ok := h.RemoveByConn(e.Conn)
	require.True(t, ok)
	assert.Same(t, e, removed)

	_, ok = h.ByIdentity(e.Identity)
	assert.False(t, ok)
	assert.Empty(t, h.BySession("s1"))
	assert.Equal(t, 0, h.Len())
}

func TestHallRemoveByIdentity(t *testing.T) {
	h := NewHall()
	e := activeEntry("p1", "s1", RoleGameMaster)
	h.Add(e)

	removed, ok := h.RemoveByIdentity(e.Identity)
	require.True(t, ok)
	assert.Same(t, e, removed)

	_, ok = h.ByConn(e.Conn)
	assert.False(t, ok)
}

func TestHallRemoveIsNoOpWhenAbsent(t *testing.T) {
	h := NewHall()
	_, ok := h.RemoveByConn(testkit.NewFakeConn())
	assert.False(t, ok)
	_, ok = h.RemoveByIdentity(Identity{ParticipantID: "p1", SessionID: "s1"})
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"game-master", RoleGameMaster, false},
		{"player", RolePlayer, false},
		{"spectator", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
