// internal/events/events.go
package events

import "github.com/animeguessr/server/internal/models"

// EventType tags the variant of a GameEvent.
type EventType string

const (
	EventRoomUpdate    EventType = "roomUpdate"
	EventGameStart     EventType = "gameStart"
	EventRoundStart    EventType = "roundStart"
	EventRoundEnd      EventType = "roundEnd"
	EventGameEnd       EventType = "gameEnd"
	EventPlayerJoined  EventType = "playerJoined"
	EventPlayerLeft    EventType = "playerLeft"
	EventPlayerGuessed EventType = "playerGuessed"
	EventPlayerReady   EventType = "playerReady"
	EventPlayerUnready EventType = "playerUnready"
	EventChat          EventType = "chat"
	EventError         EventType = "error"
)

// Payload is the sealed union of event data shapes, one per EventType.
type Payload interface{ isPayload() }

// GameEvent is an immutable record in a room's event log. Timestamp is
// stamped by the broker in unix milliseconds.
type GameEvent struct {
	Type      EventType `json:"type"`
	Data      Payload   `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

// RoomUpdate carries a full room snapshot. Source and TargetPlayer are
// hints for clients (e.g. manual sync requests).
type RoomUpdate struct {
	Room           models.RoomSnapshot `json:"room"`
	Source         string              `json:"source,omitempty"`
	TargetPlayer   string              `json:"targetPlayer,omitempty"`
	UpdatedSetting string              `json:"updatedSetting,omitempty"`
}

type GameStart struct {
	Round       int `json:"round"`
	TotalRounds int `json:"totalRounds"`
}

type RoundStart struct {
	Round       int `json:"round"`
	TotalRounds int `json:"totalRounds"`
	TimeLimit   int `json:"timeLimit"`
	MaxAttempts int `json:"maxAttempts"`
}

type RoundEnd struct {
	Answer       *models.CharacterWithAppearances `json:"answer"`
	Winner       string                           `json:"winner,omitempty"`
	PlayerName   string                           `json:"playerName,omitempty"`
	CurrentRound int                              `json:"currentRound"`
	TotalRounds  int                              `json:"totalRounds"`
}

// ScoreEntry is one line of the final scoreboard.
type ScoreEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type GameEnd struct {
	Winner          string       `json:"winner,omitempty"` // empty on a tie
	Winners         []ScoreEntry `json:"winners"`
	Scores          []ScoreEntry `json:"scores"`
	TotalRounds     int          `json:"totalRounds"`
	CompletedRounds int          `json:"completedRounds"`
}

type PlayerJoined struct {
	Player models.Player `json:"player"`
}

type PlayerLeft struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type PlayerGuessed struct {
	PlayerID         string           `json:"playerId"`
	PlayerName       string           `json:"playerName"`
	Guess            models.GuessData `json:"guess"`
	IsCorrect        bool             `json:"isCorrect"`
	GaveUp           bool             `json:"gaveUp,omitempty"`
	GuessesRemaining int              `json:"guessesRemaining"`
}

type PlayerReady struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type PlayerUnready struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type Chat struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
}

// Error carries a human-readable failure. A non-empty PlayerID scopes
// delivery to that player's streams and keeps the event out of the log.
type Error struct {
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Details  any    `json:"details,omitempty"`
}

func (RoomUpdate) isPayload()    {}
func (GameStart) isPayload()     {}
func (RoundStart) isPayload()    {}
func (RoundEnd) isPayload()      {}
func (GameEnd) isPayload()       {}
func (PlayerJoined) isPayload()  {}
func (PlayerLeft) isPayload()    {}
func (PlayerGuessed) isPayload() {}
func (PlayerReady) isPayload()   {}
func (PlayerUnready) isPayload() {}
func (Chat) isPayload()          {}
func (Error) isPayload()         {}
