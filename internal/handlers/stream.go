// internal/handlers/stream.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/animeguessr/server/internal/auth"
	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/room"
)

const (
	// replayCount is how many recent events a fresh stream receives
	// after the initial snapshot.
	replayCount = 10

	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// EventStream is the websocket endpoint delivering a room's event feed.
// The socket is server-push only; client frames are read and discarded
// so the close handshake is noticed. Rejections are delivered as a
// terminal error event with a redirect hint, not as an HTTP error, so
// the room page can route the user somewhere useful.
func (s *Server) EventStream(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	playerID, playerErr := auth.PlayerFromRequest(r)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	reject := func(message, redirect string) {
		ev := events.GameEvent{
			Type:      events.EventError,
			Data:      events.Error{Message: message, Redirect: redirect},
			Timestamp: time.Now().UnixMilli(),
		}
		if err := writeEvent(ctx, c, ev); err == nil {
			c.Close(websocket.StatusPolicyViolation, message)
		}
	}

	if !room.IsValidRoomID(roomID) {
		s.Logger.Infof("invalid room id attempted: %s", roomID)
		reject("Invalid room ID, check your link.", "/multiplayer")
		return
	}
	if playerErr != nil {
		s.Logger.Infof("missing player session attempted connection to room %s", roomID)
		reject("No player session found, rejoin from the lobby.", "/multiplayer")
		return
	}
	rm, err := s.Registry.Get(roomID)
	if err != nil {
		reject("Room not found, it may have been deleted or expired.", "/multiplayer")
		return
	}
	if !rm.IsMember(playerID) {
		s.Logger.Infof("player %s attempted to connect to room %s but is not a member", playerID, roomID)
		reject("You are not in this room.", "/multiplayer?roomId="+roomID)
		return
	}

	sub := s.Tracker.Connect(roomID, playerID)
	defer s.Tracker.Disconnect(roomID, playerID, sub)
	s.Logger.Infof("player %s (%s) connected to room %s event stream", playerID, r.RemoteAddr, roomID)

	// Read pump. We expect no client frames; its only job is noticing
	// the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}()

	// Fresh snapshot first, then the recent history so a reconnecting
	// client catches up on what it missed.
	snapshot := events.GameEvent{
		Type:      events.EventRoomUpdate,
		Data:      events.RoomUpdate{Room: rm.Snapshot()},
		Timestamp: time.Now().UnixMilli(),
	}
	if err := writeEvent(ctx, c, snapshot); err != nil {
		return
	}
	for _, ev := range s.Broker.Replay(roomID, replayCount) {
		if err := writeEvent(ctx, c, ev); err != nil {
			return
		}
	}

	pings := time.NewTicker(pingInterval)
	defer pings.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				c.Close(websocket.StatusNormalClosure, "room closed")
				return
			}
			if err := writeEvent(ctx, c, ev); err != nil {
				s.Logger.Debugf("event write to player %s in room %s failed: %v", playerID, roomID, err)
				return
			}
		case <-pings.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, ev events.GameEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, raw)
}
