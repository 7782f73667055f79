// internal/stream/tracker_test.go
package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/models"
	"github.com/animeguessr/server/internal/room"
)

func newTestTracker(t *testing.T) (*Tracker, *room.Registry, *room.Room) {
	t.Helper()
	b := events.NewBroker()
	reg := room.NewRegistry(b)
	tr := NewTracker(reg, b)
	tr.ShortGrace = 20 * time.Millisecond
	tr.FinalGrace = 20 * time.Millisecond

	r, err := reg.Create("host", "Host", "room", false, models.DefaultGameSettings())
	require.NoError(t, err)
	_, err = reg.Join(r.ID, "p1", "One")
	require.NoError(t, err)
	return tr, reg, r
}

func TestReconnectWithinGraceKeepsPlayer(t *testing.T) {
	tr, _, r := newTestTracker(t)

	sub := tr.Connect(r.ID, "p1")
	tr.Disconnect(r.ID, "p1", sub)

	// Come back inside the short grace window, like a page refresh.
	time.Sleep(5 * time.Millisecond)
	sub2 := tr.Connect(r.ID, "p1")
	defer tr.Disconnect(r.ID, "p1", sub2)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, r.IsMember("p1"))
}

func TestMissedGraceEvictsPlayer(t *testing.T) {
	tr, _, r := newTestTracker(t)

	hostSub := tr.Connect(r.ID, "host")
	defer tr.Disconnect(r.ID, "host", hostSub)

	sub := tr.Connect(r.ID, "p1")
	tr.Disconnect(r.ID, "p1", sub)

	require.Eventually(t, func() bool {
		return !r.IsMember("p1")
	}, time.Second, 5*time.Millisecond)

	// The host's stream saw the timeout notice before the departure.
	var sawTimeout bool
	deadline := time.After(time.Second)
	for !sawTimeout {
		select {
		case ev := <-hostSub.Events():
			if ev.Type == events.EventError {
				errData := ev.Data.(events.Error)
				assert.Equal(t, "player_timeout", errData.Code)
				assert.Contains(t, errData.Message, "One")
				sawTimeout = true
			}
		case <-deadline:
			t.Fatal("no player_timeout error broadcast")
		}
	}

	// Host reassignment semantics did not apply (host stayed), player
	// list shrank.
	snap := r.Snapshot()
	assert.Equal(t, "host", snap.Host)
	assert.Len(t, snap.Players, 1)
}

func TestReconnectDuringFinalGraceKeepsPlayer(t *testing.T) {
	tr, _, r := newTestTracker(t)

	sub := tr.Connect(r.ID, "p1")
	tr.Disconnect(r.ID, "p1", sub)

	// Let the short phase lapse, then return during the final one.
	time.Sleep(30 * time.Millisecond)
	sub2 := tr.Connect(r.ID, "p1")
	defer tr.Disconnect(r.ID, "p1", sub2)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, r.IsMember("p1"))
}

func TestSecondStreamPreventsGrace(t *testing.T) {
	tr, _, r := newTestTracker(t)

	first := tr.Connect(r.ID, "p1")
	second := tr.Connect(r.ID, "p1")
	tr.Disconnect(r.ID, "p1", first)

	time.Sleep(100 * time.Millisecond)
	assert.True(t, r.IsMember("p1"))

	tr.Disconnect(r.ID, "p1", second)
	require.Eventually(t, func() bool {
		return !r.IsMember("p1")
	}, time.Second, 5*time.Millisecond)
}

func TestEvictingLastPlayerDeletesRoom(t *testing.T) {
	tr, reg, r := newTestTracker(t)

	reg.RemovePlayer("p1")
	sub := tr.Connect(r.ID, "host")
	tr.Disconnect(r.ID, "host", sub)

	require.Eventually(t, func() bool {
		return reg.Count() == 0
	}, time.Second, 5*time.Millisecond)
}
