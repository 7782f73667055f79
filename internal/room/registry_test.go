// internal/room/registry_test.go
package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/models"
)

func newTestRegistry() (*Registry, *events.Broker) {
	b := events.NewBroker()
	return NewRegistry(b), b
}

func TestCreateAndGet(t *testing.T) {
	reg, _ := newTestRegistry()
	r, err := reg.Create("host", "Host", "my room", false, models.DefaultGameSettings())
	require.NoError(t, err)
	assert.True(t, IsValidRoomID(r.ID))

	got, err := reg.Get(r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = reg.Get("not-an-id")
	assert.ErrorIs(t, err, ErrInvalidRoomID)
	_, err = reg.Get("ZZZZZZ")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCreateFillsInNames(t *testing.T) {
	reg, _ := newTestRegistry()
	r, err := reg.Create("host", "", "", false, models.DefaultGameSettings())
	require.NoError(t, err)
	snap := r.Snapshot()
	assert.NotEmpty(t, snap.Name)
	assert.NotEmpty(t, snap.Players[0].Name)
}

func TestListFiltersPrivateRooms(t *testing.T) {
	reg, _ := newTestRegistry()
	_, err := reg.Create("a", "A", "public room", false, models.DefaultGameSettings())
	require.NoError(t, err)
	_, err = reg.Create("b", "B", "private room", true, models.DefaultGameSettings())
	require.NoError(t, err)

	public := reg.List(false)
	require.Len(t, public, 1)
	assert.Equal(t, "public room", public[0].Name)

	assert.Len(t, reg.List(true), 2)
	assert.Equal(t, 2, reg.Count())
}

func TestJoinMovesPlayerBetweenRooms(t *testing.T) {
	reg, _ := newTestRegistry()
	r1, err := reg.Create("host1", "Host1", "room one", false, models.DefaultGameSettings())
	require.NoError(t, err)
	r2, err := reg.Create("host2", "Host2", "room two", false, models.DefaultGameSettings())
	require.NoError(t, err)

	_, err = reg.Join(r1.ID, "drifter", "Drifter")
	require.NoError(t, err)
	assert.True(t, r1.IsMember("drifter"))

	// Joining another room implicitly leaves the first.
	_, err = reg.Join(r2.ID, "drifter", "Drifter")
	require.NoError(t, err)
	assert.False(t, r1.IsMember("drifter"))
	assert.True(t, r2.IsMember("drifter"))

	got, ok := reg.RoomFor("drifter")
	require.True(t, ok)
	assert.Same(t, r2, got)
}

func TestJoinFailureDoesNotEvictFromCurrentRoom(t *testing.T) {
	reg, _ := newTestRegistry()
	r1, err := reg.Create("host1", "Host1", "room one", false, models.DefaultGameSettings())
	require.NoError(t, err)
	full, err := reg.Create("host2", "Host2", "room two", false, models.DefaultGameSettings())
	require.NoError(t, err)
	for i := 1; i < MaxPlayers; i++ {
		_, err = reg.Join(full.ID, "filler"+string(rune('a'+i)), "Filler")
		require.NoError(t, err)
	}

	_, err = reg.Join(r1.ID, "drifter", "Drifter")
	require.NoError(t, err)
	_, err = reg.Join(full.ID, "drifter", "Drifter")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.True(t, r1.IsMember("drifter"))
}

func TestEmptyRoomIsDeleted(t *testing.T) {
	reg, b := newTestRegistry()
	r, err := reg.Create("host", "Host", "room", false, models.DefaultGameSettings())
	require.NoError(t, err)
	_, err = reg.Join(r.ID, "p1", "One")
	require.NoError(t, err)

	reg.RemovePlayer("p1")
	assert.Equal(t, 1, reg.Count())

	sub := b.Subscribe(r.ID, "host")
	reg.RemovePlayer("host")
	assert.Equal(t, 0, reg.Count())
	_, err = reg.Get(r.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	// The broker dropped the room too: subscription closed, log gone.
	for range sub.Events() {
	}
	assert.Empty(t, b.Replay(r.ID, 10))
}

func TestHostLeavingReassignsHost(t *testing.T) {
	reg, b := newTestRegistry()
	r, err := reg.Create("host", "Host", "room", false, models.DefaultGameSettings())
	require.NoError(t, err)
	_, err = reg.Join(r.ID, "p1", "One")
	require.NoError(t, err)

	reg.RemovePlayer("host")
	snap := r.Snapshot()
	assert.Equal(t, "p1", snap.Host)
	require.Len(t, snap.Players, 1)
	assert.True(t, snap.Players[0].IsHost)

	// Remaining players were told about the reassignment.
	var sawHostLeft bool
	for _, ev := range b.Replay(r.ID, events.MaxEventsPerRoom) {
		if errData, ok := ev.Data.(events.Error); ok && errData.Code == "host_left" {
			sawHostLeft = true
		}
	}
	assert.True(t, sawHostLeft)
}

func TestCreateLeavesPreviousRoom(t *testing.T) {
	reg, _ := newTestRegistry()
	r1, err := reg.Create("host", "Host", "first", false, models.DefaultGameSettings())
	require.NoError(t, err)
	_, err = reg.Join(r1.ID, "p1", "One")
	require.NoError(t, err)

	r2, err := reg.Create("host", "Host", "second", false, models.DefaultGameSettings())
	require.NoError(t, err)
	assert.False(t, r1.IsMember("host"))
	assert.True(t, r2.IsMember("host"))
	assert.Equal(t, "p1", r1.Snapshot().Host)
}

func TestSweepReapsIdleRooms(t *testing.T) {
	reg, b := newTestRegistry()
	idle, err := reg.Create("host1", "Host1", "idle", false, models.DefaultGameSettings())
	require.NoError(t, err)
	busy, err := reg.Create("host2", "Host2", "busy", false, models.DefaultGameSettings())
	require.NoError(t, err)

	// Both rooms emitted creation-time events; make the idle room's
	// history look old and the busy room's fresh.
	idle.CreatedAt = time.Now().Add(-4 * time.Hour)
	b.DropRoom(idle.ID) // clear its log so CreatedAt is the reference
	b.Record(busy.ID, events.EventChat, events.Chat{Message: "still here"})

	deleted := reg.Sweep(3 * time.Hour)
	assert.Equal(t, 1, deleted)
	_, err = reg.Get(idle.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = reg.Get(busy.ID)
	assert.NoError(t, err)
}
