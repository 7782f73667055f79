// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/animeguessr/server/internal/auth"
	"github.com/animeguessr/server/internal/models"
	"github.com/animeguessr/server/internal/room"
)

// memberRoom resolves the caller identity and target room in one step.
// Used by every per-room command handler.
func (s *Server) memberRoom(w http.ResponseWriter, r *http.Request) (*room.Room, string, bool) {
	playerID, err := auth.EnsurePlayer(w, r)
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no player session"})
		return nil, "", false
	}
	rm, err := s.Registry.Get(r.PathValue("roomId"))
	if err != nil {
		s.writeError(w, err)
		return nil, "", false
	}
	return rm, playerID, true
}

type createRoomRequest struct {
	HostName string               `json:"hostName"`
	RoomName string               `json:"roomName"`
	Private  bool                 `json:"private"`
	Settings *models.GameSettings `json:"settings"`
}

// CreateRoom makes a new room with the caller as host.
func (s *Server) CreateRoom(w http.ResponseWriter, r *http.Request) {
	playerID, err := auth.EnsurePlayer(w, r)
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no player session"})
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request payload"})
		return
	}
	settings := models.DefaultGameSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	rm, err := s.Registry.Create(playerID, req.HostName, req.RoomName, req.Private, settings)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"roomId": rm.ID,
		"room":   rm.Snapshot(),
	})
}

// ListRooms returns the public room list.
func (s *Server) ListRooms(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": s.Registry.List(false),
	})
}

// RoomCount returns how many rooms are live, private ones included.
func (s *Server) RoomCount(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]int{"count": s.Registry.Count()})
}

// GetRoom returns the room snapshot to a member.
func (s *Server) GetRoom(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if !rm.IsMember(playerID) {
		s.writeError(w, room.ErrNotMember)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"room": rm.Snapshot()})
}

type joinRoomRequest struct {
	PlayerName string `json:"playerName"`
}

// JoinRoom adds the caller to the room, leaving any previous room.
func (s *Server) JoinRoom(w http.ResponseWriter, r *http.Request) {
	playerID, err := auth.EnsurePlayer(w, r)
	if err != nil {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no player session"})
		return
	}
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request payload"})
		return
	}
	rm, err := s.Registry.Join(r.PathValue("roomId"), playerID, req.PlayerName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"room": rm.Snapshot()})
}

// LeaveRoom removes the caller from the room.
func (s *Server) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if !rm.IsMember(playerID) {
		s.writeError(w, room.ErrNotMember)
		return
	}
	s.Registry.RemovePlayer(playerID)
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Ready marks the caller ready.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if err := rm.Ready(playerID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Unready clears the caller's ready flag.
func (s *Server) Unready(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if err := rm.Unready(playerID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Play starts the game from the waiting phase or advances to the next
// round from the round-end phase. Host only.
func (s *Server) Play(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if err := rm.StartRound(r.Context(), playerID, s.Catalog); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type guessRequest struct {
	CharacterID int `json:"characterId"`
}

// Guess submits one character guess for the caller.
func (s *Server) Guess(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	var req guessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CharacterID <= 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid character id"})
		return
	}
	result, err := rm.Guess(r.Context(), playerID, req.CharacterID, s.Catalog)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"guess":            result.Guess,
		"isCorrect":        result.IsCorrect,
		"guessesRemaining": result.GuessesRemaining,
	})
}

// GiveUp forfeits the caller's remaining guesses for the round.
func (s *Server) GiveUp(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if err := rm.GiveUp(playerID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// EndGame ends the game and broadcasts the final scoreboard. Host only.
func (s *Server) EndGame(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if err := rm.EndGame(playerID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ResetRoom returns the room to the waiting phase. Host only.
func (s *Server) ResetRoom(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if err := rm.Reset(playerID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type updateSettingRequest struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// UpdateSettings applies one host-issued settings change.
func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	var req updateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "setting key is required"})
		return
	}
	// Presets expand into individual settings on the client.
	if req.Key == "preset" {
		s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	if err := rm.UpdateSetting(playerID, req.Key, req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type updateInfoRequest struct {
	Name    *string `json:"name"`
	Private *bool   `json:"private"`
}

// UpdateInfo renames the room or toggles its privacy. Host only.
func (s *Server) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	var req updateInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request payload"})
		return
	}
	if err := rm.UpdateInfo(playerID, req.Name, req.Private); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// SyncRoom pushes a fresh snapshot to the caller's event stream.
func (s *Server) SyncRoom(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	if err := rm.Sync(playerID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat broadcasts a chat message to the room.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	rm, playerID, ok := s.memberRoom(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request payload"})
		return
	}
	if err := rm.Chat(playerID, req.Message); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
