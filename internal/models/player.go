// internal/models/player.go
package models

// Player is a participant in a room. Mutable fields are guarded by the
// owning room's mutex.
type Player struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	IsHost       bool        `json:"isHost"`
	IsReady      bool        `json:"isReady"`
	Score        int         `json:"score"`
	CurrentGuess *GuessData  `json:"currentGuess"`
	GuessTime    int64       `json:"guessTime,omitempty"`
	Guesses      []GuessData `json:"guesses"`
}

// ResetRound clears the per-round guess state.
func (p *Player) ResetRound() {
	p.CurrentGuess = nil
	p.GuessTime = 0
	p.Guesses = nil
}

// ResetGame clears score and guess state for a fresh game.
func (p *Player) ResetGame() {
	p.Score = 0
	p.ResetRound()
}

// Status is the lifecycle state of a room's game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusRoundEnd Status = "roundEnd"
	StatusGameEnd  Status = "gameEnd"
)

// GameState is the embedded round-progress value of a room.
type GameState struct {
	Status         Status `json:"status"`
	RoundStartTime int64  `json:"roundStartTime,omitempty"`
	TimeRemaining  *int   `json:"timeRemaining"`
}

// RoomSnapshot is the client-visible view of a room, broadcast with
// roomUpdate events. The secret answer is only present after the round
// has ended.
type RoomSnapshot struct {
	ID              string                    `json:"id"`
	Name            string                    `json:"name"`
	Host            string                    `json:"host"`
	Private         bool                      `json:"private"`
	Players         []Player                  `json:"players"`
	GameState       GameState                 `json:"gameState"`
	Settings        GameSettings              `json:"settings"`
	CurrentRound    int                       `json:"currentRound"`
	TotalRounds     int                       `json:"totalRounds"`
	AnswerCharacter *CharacterWithAppearances `json:"answerCharacter,omitempty"`
}

// RoomSummary is the slim listing entry returned by the room list.
type RoomSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlayerCount  int    `json:"playerCount"`
	Status       Status `json:"status"`
	CurrentRound int    `json:"currentRound"`
	TotalRounds  int    `json:"totalRounds"`
	Private      bool   `json:"private"`
}
