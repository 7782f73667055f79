// internal/events/broker.go
package events

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// MaxEventsPerRoom caps each room's event log; oldest entries are
// dropped first. The log exists for replay-on-reconnect only.
const MaxEventsPerRoom = 100

// subscriberBuffer bounds each subscriber's delivery queue. A slow or
// dead subscriber drops events instead of blocking the room's writer.
const subscriberBuffer = 32

// Broker owns the per-room bounded event logs and fans recorded events
// out to every live subscription for that room.
type Broker struct {
	mu   sync.Mutex
	logs map[string][]GameEvent
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one live outbound stream's view of a room's events.
type Subscription struct {
	RoomID   string
	PlayerID string

	broker *Broker
	ch     chan GameEvent
	closed bool
}

// Events returns the delivery channel. It is closed when the
// subscription is closed or the room is dropped.
func (s *Subscription) Events() <-chan GameEvent { return s.ch }

// Close unregisters the subscription and closes its channel. Safe to
// call more than once and safe against concurrent Record calls.
func (s *Subscription) Close() {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.broker.closeLocked(s)
}

func NewBroker() *Broker {
	return &Broker{
		logs: make(map[string][]GameEvent),
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscription for (roomID, playerID).
func (b *Broker) Subscribe(roomID, playerID string) *Subscription {
	s := &Subscription{
		RoomID:   roomID,
		PlayerID: playerID,
		broker:   b,
		ch:       make(chan GameEvent, subscriberBuffer),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = make(map[*Subscription]struct{})
	}
	b.subs[roomID][s] = struct{}{}
	return s
}

// Record stamps the event, appends it to the room's log (trimming from
// the oldest end past MaxEventsPerRoom) and delivers it to every live
// subscription for the room.
func (b *Broker) Record(roomID string, typ EventType, data Payload) GameEvent {
	ev := GameEvent{Type: typ, Data: data, Timestamp: time.Now().UnixMilli()}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(roomID, ev)
	b.fanoutLocked(roomID, ev)
	return ev
}

// ErrorOptions scopes and annotates a broadcast error.
type ErrorOptions struct {
	PlayerID string
	Code     string
	Redirect string
	Details  any
}

// BroadcastError emits an error event. Room-wide errors (no PlayerID)
// are part of room history and go into the log; player-scoped errors are
// delivered only to that player's subscriptions and are not persisted.
func (b *Broker) BroadcastError(roomID, message string, opts ErrorOptions) {
	ev := GameEvent{
		Type: EventError,
		Data: Error{
			Message:  message,
			Code:     opts.Code,
			Redirect: opts.Redirect,
			PlayerID: opts.PlayerID,
			Details:  opts.Details,
		},
		Timestamp: time.Now().UnixMilli(),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if opts.PlayerID == "" {
		b.appendLocked(roomID, ev)
	}
	b.fanoutLocked(roomID, ev)
}

// Replay returns a copy of the last n events in the room's log.
func (b *Broker) Replay(roomID string, n int) []GameEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.logs[roomID]
	if len(events) > n {
		events = events[len(events)-n:]
	}
	out := make([]GameEvent, len(events))
	copy(out, events)
	return out
}

// LastActivity returns the timestamp of the room's most recent event.
// ok is false when the room has no events yet.
func (b *Broker) LastActivity(roomID string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.logs[roomID]
	if len(events) == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(events[len(events)-1].Timestamp), true
}

// DropRoom discards the room's log and terminates all of its
// subscriptions. Called when the registry deletes a room.
func (b *Broker) DropRoom(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.logs, roomID)
	for s := range b.subs[roomID] {
		b.closeLocked(s)
	}
	delete(b.subs, roomID)
}

func (b *Broker) appendLocked(roomID string, ev GameEvent) {
	events := append(b.logs[roomID], ev)
	if len(events) > MaxEventsPerRoom {
		events = events[len(events)-MaxEventsPerRoom:]
	}
	b.logs[roomID] = events
}

// fanoutLocked delivers ev to the room's subscriptions without blocking.
// Player-scoped errors skip subscriptions belonging to other players.
func (b *Broker) fanoutLocked(roomID string, ev GameEvent) {
	target := ""
	if errData, ok := ev.Data.(Error); ok {
		target = errData.PlayerID
	}
	for s := range b.subs[roomID] {
		if target != "" && s.PlayerID != target {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			log.Warnf("events: subscriber queue full for room %s player %s, dropped %s event", roomID, s.PlayerID, ev.Type)
		}
	}
}

func (b *Broker) closeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	if room, ok := b.subs[s.RoomID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(b.subs, s.RoomID)
		}
	}
	close(s.ch)
}
