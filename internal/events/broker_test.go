// internal/events/broker_test.go
package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTrimsLogToCap(t *testing.T) {
	b := NewBroker()
	for i := 0; i < MaxEventsPerRoom+50; i++ {
		b.Record("ROOM01", EventChat, Chat{Message: fmt.Sprintf("msg %d", i)})
	}

	got := b.Replay("ROOM01", MaxEventsPerRoom+50)
	require.Len(t, got, MaxEventsPerRoom)

	// Oldest 50 dropped, order preserved.
	first := got[0].Data.(Chat)
	last := got[len(got)-1].Data.(Chat)
	assert.Equal(t, "msg 50", first.Message)
	assert.Equal(t, fmt.Sprintf("msg %d", MaxEventsPerRoom+49), last.Message)
}

func TestReplayReturnsLastN(t *testing.T) {
	b := NewBroker()
	for i := 0; i < 20; i++ {
		b.Record("ROOM01", EventChat, Chat{Message: fmt.Sprintf("msg %d", i)})
	}

	got := b.Replay("ROOM01", 10)
	require.Len(t, got, 10)
	assert.Equal(t, "msg 10", got[0].Data.(Chat).Message)
	assert.Equal(t, "msg 19", got[9].Data.(Chat).Message)

	assert.Empty(t, b.Replay("NOSUCH", 10))
}

func TestFanoutDeliversToSubscribers(t *testing.T) {
	b := NewBroker()
	s1 := b.Subscribe("ROOM01", "alice")
	s2 := b.Subscribe("ROOM01", "bob")
	other := b.Subscribe("ROOM02", "carol")

	b.Record("ROOM01", EventChat, Chat{PlayerID: "alice", Message: "hi"})

	for _, s := range []*Subscription{s1, s2} {
		ev := <-s.Events()
		assert.Equal(t, EventChat, ev.Type)
		assert.NotZero(t, ev.Timestamp)
	}
	select {
	case ev := <-other.Events():
		t.Fatalf("subscriber of another room got event %v", ev)
	default:
	}
}

func TestPlayerScopedErrorsAreFilteredAndNotPersisted(t *testing.T) {
	b := NewBroker()
	alice := b.Subscribe("ROOM01", "alice")
	bob := b.Subscribe("ROOM01", "bob")

	b.BroadcastError("ROOM01", "not your turn", ErrorOptions{PlayerID: "alice", Code: "bad_command"})

	ev := <-alice.Events()
	errData := ev.Data.(Error)
	assert.Equal(t, "not your turn", errData.Message)
	assert.Equal(t, "bad_command", errData.Code)

	select {
	case ev := <-bob.Events():
		t.Fatalf("player-scoped error leaked to another player: %v", ev)
	default:
	}

	// Scoped errors never enter the replay log.
	assert.Empty(t, b.Replay("ROOM01", 10))

	// Room-wide errors do.
	b.BroadcastError("ROOM01", "host disconnected", ErrorOptions{Code: "player_timeout"})
	require.Len(t, b.Replay("ROOM01", 10), 1)
	<-alice.Events()
	<-bob.Events()
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe("ROOM01", "alice")

	// Overfill the delivery queue; Record must never block.
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Record("ROOM01", EventChat, Chat{Message: fmt.Sprintf("msg %d", i)})
	}

	received := 0
	for {
		select {
		case <-s.Events():
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, received)

	// The log kept everything regardless.
	assert.Len(t, b.Replay("ROOM01", MaxEventsPerRoom), subscriberBuffer+10)
}

func TestDropRoomClosesSubscriptionsAndLog(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe("ROOM01", "alice")
	b.Record("ROOM01", EventChat, Chat{Message: "hi"})

	b.DropRoom("ROOM01")

	<-s.Events() // buffered event
	_, open := <-s.Events()
	assert.False(t, open)
	assert.Empty(t, b.Replay("ROOM01", 10))

	_, ok := b.LastActivity("ROOM01")
	assert.False(t, ok)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe("ROOM01", "alice")
	s.Close()
	s.Close()

	// Record after close must not panic or deliver.
	b.Record("ROOM01", EventChat, Chat{Message: "hi"})
	_, open := <-s.Events()
	assert.False(t, open)
}

func TestLastActivityTracksNewestEvent(t *testing.T) {
	b := NewBroker()
	_, ok := b.LastActivity("ROOM01")
	require.False(t, ok)

	ev := b.Record("ROOM01", EventChat, Chat{Message: "hi"})
	last, ok := b.LastActivity("ROOM01")
	require.True(t, ok)
	assert.Equal(t, ev.Timestamp, last.UnixMilli())
}
