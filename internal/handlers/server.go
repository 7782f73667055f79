// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/animeguessr/server/internal/catalog"
	"github.com/animeguessr/server/internal/database"
	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/room"
	"github.com/animeguessr/server/internal/stream"
)

// Server bundles the handler dependencies.
type Server struct {
	Logger   *logrus.Logger
	Registry *room.Registry
	Broker   *events.Broker
	Tracker  *stream.Tracker
	Catalog  *catalog.Client
	Tags     *database.TagStore
}

func NewServer(logger *logrus.Logger, registry *room.Registry, broker *events.Broker, tracker *stream.Tracker, cat *catalog.Client, tags *database.TagStore) *Server {
	return &Server{
		Logger:   logger,
		Registry: registry,
		Broker:   broker,
		Tracker:  tracker,
		Catalog:  cat,
		Tags:     tags,
	}
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	// room lifecycle
	mux.HandleFunc("GET /api/rooms", s.ListRooms)
	mux.HandleFunc("POST /api/rooms", s.CreateRoom)
	mux.HandleFunc("GET /api/rooms/room-count", s.RoomCount)
	mux.HandleFunc("GET /api/rooms/{roomId}", s.GetRoom)
	mux.HandleFunc("POST /api/rooms/{roomId}/join", s.JoinRoom)
	mux.HandleFunc("POST /api/rooms/{roomId}/leave", s.LeaveRoom)
	mux.HandleFunc("POST /api/rooms/{roomId}/ready", s.Ready)
	mux.HandleFunc("POST /api/rooms/{roomId}/unready", s.Unready)
	mux.HandleFunc("POST /api/rooms/{roomId}/play", s.Play)
	mux.HandleFunc("POST /api/rooms/{roomId}/guess", s.Guess)
	mux.HandleFunc("POST /api/rooms/{roomId}/give-up", s.GiveUp)
	mux.HandleFunc("POST /api/rooms/{roomId}/end-game", s.EndGame)
	mux.HandleFunc("POST /api/rooms/{roomId}/reset", s.ResetRoom)
	mux.HandleFunc("POST /api/rooms/{roomId}/settings", s.UpdateSettings)
	mux.HandleFunc("POST /api/rooms/{roomId}/info", s.UpdateInfo)
	mux.HandleFunc("POST /api/rooms/{roomId}/sync", s.SyncRoom)
	mux.HandleFunc("POST /api/rooms/{roomId}/chat", s.Chat)
	mux.HandleFunc("GET /api/rooms/{roomId}/events", s.EventStream)

	// catalog proxies (single player and search widgets)
	mux.HandleFunc("POST /api/characters/random", s.RandomCharacter)
	mux.HandleFunc("GET /api/characters/{id}", s.CharacterDetails)
	mux.HandleFunc("POST /api/characters/{id}/appearances", s.CharacterAppearances)
	mux.HandleFunc("POST /api/search/characters", s.SearchCharacters)
	mux.HandleFunc("POST /api/search/subjects", s.SearchSubjects)
	mux.HandleFunc("GET /api/subjects/{id}/characters", s.SubjectCharacters)

	// character tags
	mux.HandleFunc("POST /api/character-tags", s.SubmitCharacterTags)
	mux.HandleFunc("POST /api/propose-tags", s.ProposeCharacterTags)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warnf("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps room command failures onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrInvalidRoomID),
		errors.Is(err, room.ErrUnknownSetting),
		errors.Is(err, room.ErrInvalidSetting):
		return http.StatusBadRequest
	case errors.Is(err, room.ErrNotHost),
		errors.Is(err, room.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrGameInProgress),
		errors.Is(err, room.ErrWrongStatus),
		errors.Is(err, room.ErrNeedMorePlayers),
		errors.Is(err, room.ErrNotAllReady),
		errors.Is(err, room.ErrNoMoreRounds),
		errors.Is(err, room.ErrGuessesExhausted),
		errors.Is(err, room.ErrRoundSetupBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
