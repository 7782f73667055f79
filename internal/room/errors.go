// internal/room/errors.go
package room

import "errors"

// Typed command failures. Handlers map these onto HTTP statuses. A
// catalog fetch failure is not listed here; it surfaces as a wrapped
// provider error and the triggering command can simply be re-issued.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrInvalidRoomID    = errors.New("invalid room id")
	ErrRoomFull         = errors.New("room is full")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotMember        = errors.New("player not in room")
	ErrWrongStatus      = errors.New("invalid game status for this action")
	ErrNeedMorePlayers  = errors.New("need at least 2 players to start")
	ErrNotAllReady      = errors.New("not all players are ready")
	ErrNoMoreRounds     = errors.New("all rounds have been played")
	ErrGuessesExhausted = errors.New("no guesses remaining")
	ErrRoundSetupBusy   = errors.New("round setup already in progress")
	ErrUnknownSetting   = errors.New("unknown setting key")
	ErrInvalidSetting   = errors.New("invalid setting value")
	ErrRoomIDExhausted  = errors.New("could not allocate a unique room id")
)
