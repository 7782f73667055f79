// internal/room/registry.go
package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/models"
)

const createIDRetries = 5

// Registry owns the live room set and the player -> room index that
// enforces single-room membership. Lock ordering is registry.mu before
// room.mu, always.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	playerRooms map[string]string
	broker      *events.Broker
}

// NewRegistry returns an empty registry bound to the event broker.
func NewRegistry(broker *events.Broker) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		playerRooms: make(map[string]string),
		broker:      broker,
	}
}

// Create makes a new room with the caller as host and moves the caller
// out of any room they were in.
func (reg *Registry) Create(hostID, hostName, roomName string, private bool, settings models.GameSettings) (*Room, error) {
	if roomName == "" {
		roomName = GenerateRoomName()
	}
	if hostName == "" {
		hostName = GeneratePlayerName()
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	var id string
	for i := 0; ; i++ {
		id = GenerateRoomID()
		if _, taken := reg.rooms[id]; !taken {
			break
		}
		if i >= createIDRetries {
			return nil, ErrRoomIDExhausted
		}
	}

	reg.removePlayerLocked(hostID)

	r := newRoom(id, hostID, hostName, roomName, private, settings, reg.broker)
	reg.rooms[id] = r
	reg.playerRooms[hostID] = id
	logrus.Infof("room %s created by %s (%q, private=%v)", id, hostID, roomName, private)
	return r, nil
}

// Get looks up a room by id.
func (reg *Registry) Get(roomID string) (*Room, error) {
	if !IsValidRoomID(roomID) {
		return nil, ErrInvalidRoomID
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// List returns summaries of the public rooms, or all rooms when
// includePrivate is set.
func (reg *Registry) List(includePrivate bool) []models.RoomSummary {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	reg.mu.Unlock()

	out := make([]models.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		s := r.Summary()
		if s.Private && !includePrivate {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// RoomFor returns the room the player currently belongs to, if any.
func (reg *Registry) RoomFor(playerID string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	id, ok := reg.playerRooms[playerID]
	if !ok {
		return nil, false
	}
	r, ok := reg.rooms[id]
	return r, ok
}

// Join adds the player to roomID, leaving their previous room first.
// The join guards are checked before the previous membership is torn
// down so a doomed join does not evict the player from anywhere.
func (reg *Registry) Join(roomID, playerID, name string) (*Room, error) {
	if !IsValidRoomID(roomID) {
		return nil, ErrInvalidRoomID
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := r.canJoin(playerID); err != nil {
		return nil, err
	}
	if prev := reg.playerRooms[playerID]; prev != roomID {
		reg.removePlayerLocked(playerID)
	}
	if err := r.join(playerID, name); err != nil {
		return nil, err
	}
	reg.playerRooms[playerID] = roomID
	return r, nil
}

// RemovePlayer handles both voluntary leaves and disconnect evictions.
// A room left empty is deleted.
func (reg *Registry) RemovePlayer(playerID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.removePlayerLocked(playerID)
}

func (reg *Registry) removePlayerLocked(playerID string) {
	id, ok := reg.playerRooms[playerID]
	if !ok {
		return
	}
	delete(reg.playerRooms, playerID)
	r, ok := reg.rooms[id]
	if !ok {
		return
	}
	name, _ := r.PlayerName(playerID)
	removed, wasHost, empty := r.remove(playerID)
	if !removed {
		return
	}
	logrus.Infof("player %s left room %s (host=%v, empty=%v)", playerID, id, wasHost, empty)
	if empty {
		reg.deleteRoomLocked(id, r)
		return
	}
	if wasHost {
		reg.broker.BroadcastError(id, fmt.Sprintf("host %s left the room, a new host has been assigned", name), events.ErrorOptions{
			Code: "host_left",
		})
	}
}

func (reg *Registry) deleteRoomLocked(id string, r *Room) {
	r.close()
	delete(reg.rooms, id)
	for _, pid := range r.playerIDs() {
		if reg.playerRooms[pid] == id {
			delete(reg.playerRooms, pid)
		}
	}
	reg.broker.DropRoom(id)
	logrus.Infof("room %s deleted", id)
}

// Sweep deletes rooms whose last event is older than maxIdle. Rooms
// that never produced an event age from their creation time. Returns
// the number of rooms deleted.
func (reg *Registry) Sweep(maxIdle time.Duration) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	deleted := 0
	for id, r := range reg.rooms {
		last, ok := reg.broker.LastActivity(id)
		if !ok {
			last = r.CreatedAt
		}
		if last.After(cutoff) {
			continue
		}
		logrus.Infof("reaping idle room %s (last activity %s)", id, last.Format(time.RFC3339))
		reg.deleteRoomLocked(id, r)
		deleted++
	}
	return deleted
}

// StartReaper runs Sweep on a fixed interval until ctx is cancelled.
func (reg *Registry) StartReaper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := reg.Sweep(maxIdle); n > 0 {
					logrus.Infof("reaper removed %d idle room(s)", n)
				}
			}
		}
	}()
}
