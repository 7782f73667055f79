// internal/stream/tracker.go
package stream

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/room"
)

// Default disconnect grace phases. A player whose last stream drops gets
// shortGrace to come back quietly (page refresh); if they miss that, a
// final window runs before they are evicted from their room.
const (
	defaultShortGrace = 5 * time.Second
	defaultFinalGrace = 25 * time.Second
)

type connKey struct {
	roomID   string
	playerID string
}

// Tracker counts live event streams per room member and owns the
// disconnect grace timers. Eviction goes through the registry so host
// reassignment and empty-room deletion behave exactly like a voluntary
// leave.
type Tracker struct {
	registry *room.Registry
	broker   *events.Broker

	// Grace phase lengths, overridable in tests.
	ShortGrace time.Duration
	FinalGrace time.Duration

	mu     sync.Mutex
	live   map[connKey]int
	graces map[connKey]*time.Timer
}

func NewTracker(registry *room.Registry, broker *events.Broker) *Tracker {
	return &Tracker{
		registry:   registry,
		broker:     broker,
		ShortGrace: defaultShortGrace,
		FinalGrace: defaultFinalGrace,
		live:       make(map[connKey]int),
		graces:     make(map[connKey]*time.Timer),
	}
}

// Connect registers a live stream for the player and cancels any pending
// grace timer. Returns the broker subscription the stream should drain.
func (t *Tracker) Connect(roomID, playerID string) *events.Subscription {
	key := connKey{roomID, playerID}
	t.mu.Lock()
	t.live[key]++
	if timer, ok := t.graces[key]; ok {
		timer.Stop()
		delete(t.graces, key)
		logrus.Debugf("stream: player %s reconnected to room %s within grace", playerID, roomID)
	}
	t.mu.Unlock()
	return t.broker.Subscribe(roomID, playerID)
}

// Disconnect releases one live stream. When it was the player's last,
// the two-phase grace countdown starts.
func (t *Tracker) Disconnect(roomID, playerID string, sub *events.Subscription) {
	sub.Close()
	key := connKey{roomID, playerID}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.live[key] > 1 {
		t.live[key]--
		return
	}
	delete(t.live, key)
	t.startGraceLocked(key, t.ShortGrace, func() {
		t.startGraceLocked(key, t.FinalGrace, func() {
			t.evictLocked(key)
		})
	})
}

// startGraceLocked arms the next grace phase for key. The fire callback
// runs with t.mu held and only if the player has not reconnected and the
// timer has not been superseded.
func (t *Tracker) startGraceLocked(key connKey, d time.Duration, fire func()) {
	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.graces[key] != timer {
			return // reconnected or superseded
		}
		delete(t.graces, key)
		if t.live[key] > 0 {
			return
		}
		fire()
	})
	if old, ok := t.graces[key]; ok {
		old.Stop()
	}
	t.graces[key] = timer
}

// evictLocked removes the player from their room after the full grace
// window passed with no reconnect.
func (t *Tracker) evictLocked(key connKey) {
	r, err := t.registry.Get(key.roomID)
	if err != nil || !r.IsMember(key.playerID) {
		return
	}
	name, _ := r.PlayerName(key.playerID)
	logrus.Infof("stream: player %s (%s) timed out of room %s", key.playerID, name, key.roomID)
	t.broker.BroadcastError(key.roomID, name+" disconnected", events.ErrorOptions{
		Code: "player_timeout",
	})
	t.registry.RemovePlayer(key.playerID)
}
