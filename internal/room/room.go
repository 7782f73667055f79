// internal/room/room.go
package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/animeguessr/server/internal/events"
	"github.com/animeguessr/server/internal/game"
	"github.com/animeguessr/server/internal/models"
)

// MaxPlayers caps room membership.
const MaxPlayers = 8

// CharacterProvider is the external catalog collaborator used during
// round setup and guess evaluation. Implementations must bound their own
// timeouts; a stuck upstream surfaces as an error, never a hang.
type CharacterProvider interface {
	RandomCharacter(ctx context.Context, settings models.GameSettings) (models.Character, error)
	CharacterDetails(ctx context.Context, characterID int) (models.Character, error)
	CharacterAppearances(ctx context.Context, characterID int, settings models.GameSettings) (models.CharacterAppearances, error)
}

// Room is the aggregate root for one game room. All state mutation goes
// through its methods; the mutex serializes commands, timer ticks and
// disconnect evictions. External fetches happen outside the lock with a
// re-validation pass before state is applied.
type Room struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	name         string
	host         string
	private      bool
	players      []*models.Player
	state        models.GameState
	settings     models.GameSettings
	currentRound int
	totalRounds  int
	answer       *models.CharacterWithAppearances

	settingUp   bool // a round setup fetch is in flight
	closed      bool // room deleted from the registry
	timerCancel context.CancelFunc
	tickEvery   time.Duration

	broker *events.Broker
}

func newRoom(id, hostID, hostName, name string, private bool, settings models.GameSettings, broker *events.Broker) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		name:      name,
		host:      hostID,
		private:   private,
		players: []*models.Player{{
			ID:     hostID,
			Name:   hostName,
			IsHost: true,
		}},
		state:       models.GameState{Status: models.StatusWaiting},
		settings:    settings,
		totalRounds: settings.TotalRounds,
		tickEvery:   time.Second,
		broker:      broker,
	}
}

// Snapshot returns the client-visible view of the room.
func (r *Room) Snapshot() models.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() models.RoomSnapshot {
	players := make([]models.Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	snap := models.RoomSnapshot{
		ID:           r.ID,
		Name:         r.name,
		Host:         r.host,
		Private:      r.private,
		Players:      players,
		GameState:    r.state,
		Settings:     r.settings,
		CurrentRound: r.currentRound,
		TotalRounds:  r.totalRounds,
	}
	// The secret stays server-side while a round is live.
	if r.state.Status != models.StatusPlaying {
		snap.AnswerCharacter = r.answer
	}
	return snap
}

// Summary returns the room-list entry.
func (r *Room) Summary() models.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return models.RoomSummary{
		ID:           r.ID,
		Name:         r.name,
		PlayerCount:  len(r.players),
		Status:       r.state.Status,
		CurrentRound: r.currentRound,
		TotalRounds:  r.totalRounds,
		Private:      r.private,
	}
}

// IsMember reports whether playerID belongs to the room.
func (r *Room) IsMember(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findPlayerLocked(playerID) != nil
}

// PlayerName returns the display name for playerID, if present.
func (r *Room) PlayerName(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.findPlayerLocked(playerID); p != nil {
		return p.Name, true
	}
	return "", false
}

func (r *Room) findPlayerLocked(playerID string) *models.Player {
	for _, p := range r.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// truncateRunes caps s at n runes; names are often CJK, so a byte slice
// would split a rune.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (r *Room) emitRoomUpdateLocked(source, targetPlayer, updatedSetting string) {
	r.broker.Record(r.ID, events.EventRoomUpdate, events.RoomUpdate{
		Room:           r.snapshotLocked(),
		Source:         source,
		TargetPlayer:   targetPlayer,
		UpdatedSetting: updatedSetting,
	})
}

// canJoin validates the join guards without mutating. Used by the
// registry before it tears the player out of any previous room.
func (r *Room) canJoin(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.findPlayerLocked(playerID) != nil {
		return nil // re-join is idempotent
	}
	if r.state.Status != models.StatusWaiting {
		return ErrGameInProgress
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}
	return nil
}

// join adds the player and emits playerJoined + roomUpdate. Guards are
// re-checked; the registry owns the cross-room index.
func (r *Room) join(playerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.findPlayerLocked(playerID) != nil {
		r.emitRoomUpdateLocked("", "", "")
		return nil
	}
	if r.state.Status != models.StatusWaiting {
		return ErrGameInProgress
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = GeneratePlayerName()
	} else {
		name = truncateRunes(name, 20)
	}
	p := &models.Player{ID: playerID, Name: name}
	r.players = append(r.players, p)
	r.broker.Record(r.ID, events.EventPlayerJoined, events.PlayerJoined{Player: *p})
	r.emitRoomUpdateLocked("", "", "")
	return nil
}

// Ready marks a player ready. Only meaningful while waiting; the host is
// implicitly always ready.
func (r *Room) Ready(playerID string) error {
	return r.setReady(playerID, true)
}

// Unready clears a player's ready flag.
func (r *Room) Unready(playerID string) error {
	return r.setReady(playerID, false)
}

func (r *Room) setReady(playerID string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Status != models.StatusWaiting {
		return ErrGameInProgress
	}
	p := r.findPlayerLocked(playerID)
	if p == nil {
		return ErrNotMember
	}
	p.IsReady = ready
	typ, data := events.EventPlayerReady, events.Payload(events.PlayerReady{PlayerID: playerID, PlayerName: p.Name})
	if !ready {
		typ, data = events.EventPlayerUnready, events.PlayerUnready{PlayerID: playerID, PlayerName: p.Name}
	}
	r.broker.Record(r.ID, typ, data)
	return nil
}

// StartRound drives both host transitions into a playing round: game
// start (waiting -> playing) and next round (roundEnd -> playing). The
// catalog fetch runs outside the lock; state is re-validated before it
// is applied so a racing reset/leave cannot be clobbered.
func (r *Room) StartRound(ctx context.Context, playerID string, provider CharacterProvider) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomNotFound
	}
	if r.host != playerID {
		r.mu.Unlock()
		return ErrNotHost
	}
	if r.settingUp {
		r.mu.Unlock()
		return ErrRoundSetupBusy
	}
	phase := r.state.Status
	switch phase {
	case models.StatusWaiting:
		if len(r.players) < 2 {
			r.mu.Unlock()
			return ErrNeedMorePlayers
		}
		for _, p := range r.players {
			if !p.IsHost && !p.IsReady {
				r.mu.Unlock()
				return ErrNotAllReady
			}
		}
	case models.StatusRoundEnd:
		if r.currentRound >= r.settings.TotalRounds {
			r.mu.Unlock()
			return ErrNoMoreRounds
		}
	default:
		r.mu.Unlock()
		return ErrWrongStatus
	}
	r.settingUp = true
	settings := r.settings
	r.mu.Unlock()

	character, appearances, err := fetchAnswer(ctx, provider, settings)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.settingUp = false
	if err != nil {
		return fmt.Errorf("round setup: %w", err)
	}
	if r.closed || r.state.Status != phase || r.host != playerID {
		return ErrWrongStatus
	}
	// The membership and round guards can be invalidated by a leave or
	// settings change that raced the fetch; run them again.
	switch phase {
	case models.StatusWaiting:
		if len(r.players) < 2 {
			return ErrNeedMorePlayers
		}
		for _, p := range r.players {
			if !p.IsHost && !p.IsReady {
				return ErrNotAllReady
			}
		}
	case models.StatusRoundEnd:
		if r.currentRound >= r.settings.TotalRounds {
			return ErrNoMoreRounds
		}
	}

	if phase == models.StatusWaiting {
		for _, p := range r.players {
			p.ResetGame()
		}
		r.currentRound = 1
		r.totalRounds = r.settings.TotalRounds
		r.broker.Record(r.ID, events.EventGameStart, events.GameStart{
			Round:       r.currentRound,
			TotalRounds: r.totalRounds,
		})
	} else {
		r.currentRound++
		r.totalRounds = r.settings.TotalRounds
		for _, p := range r.players {
			p.ResetRound()
		}
	}

	r.answer = &models.CharacterWithAppearances{Character: character, CharacterAppearances: appearances}
	r.state.Status = models.StatusPlaying
	r.state.RoundStartTime = time.Now().UnixMilli()
	remaining := r.settings.TimeLimit
	r.state.TimeRemaining = &remaining
	r.broker.Record(r.ID, events.EventRoundStart, events.RoundStart{
		Round:       r.currentRound,
		TotalRounds: r.totalRounds,
		TimeLimit:   r.settings.TimeLimit,
		MaxAttempts: r.settings.MaxAttempts,
	})
	r.emitRoomUpdateLocked("", "", "")
	r.startTimerLocked()
	return nil
}

func fetchAnswer(ctx context.Context, provider CharacterProvider, settings models.GameSettings) (models.Character, models.CharacterAppearances, error) {
	character, err := provider.RandomCharacter(ctx, settings)
	if err != nil {
		return models.Character{}, models.CharacterAppearances{}, fmt.Errorf("fetch random character: %w", err)
	}
	appearances, err := provider.CharacterAppearances(ctx, character.ID, settings)
	if err != nil {
		return models.Character{}, models.CharacterAppearances{}, fmt.Errorf("fetch appearances for character %d: %w", character.ID, err)
	}
	return character, appearances, nil
}

// GuessResult is what the guess command returns to its caller.
type GuessResult struct {
	Guess            models.GuessData
	IsCorrect        bool
	GuessesRemaining int
}

// Guess evaluates one guess. The first correct guess wins the round and
// ends it immediately; an incorrect guess that exhausts every player's
// attempts ends the round with no winner.
func (r *Room) Guess(ctx context.Context, playerID string, characterID int, provider CharacterProvider) (GuessResult, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return GuessResult{}, ErrRoomNotFound
	}
	p := r.findPlayerLocked(playerID)
	if p == nil {
		r.mu.Unlock()
		return GuessResult{}, ErrNotMember
	}
	if r.state.Status != models.StatusPlaying || r.answer == nil {
		r.mu.Unlock()
		return GuessResult{}, ErrWrongStatus
	}
	if len(p.Guesses) >= r.settings.MaxAttempts {
		r.mu.Unlock()
		return GuessResult{}, ErrGuessesExhausted
	}
	settings := r.settings
	answerID := r.answer.ID
	round := r.currentRound
	r.mu.Unlock()

	character, err := provider.CharacterDetails(ctx, characterID)
	if err != nil {
		return GuessResult{}, fmt.Errorf("fetch character %d: %w", characterID, err)
	}
	appearances, err := provider.CharacterAppearances(ctx, characterID, settings)
	if err != nil {
		return GuessResult{}, fmt.Errorf("fetch appearances for character %d: %w", characterID, err)
	}
	guessed := models.CharacterWithAppearances{Character: character, CharacterAppearances: appearances}

	r.mu.Lock()
	defer r.mu.Unlock()
	// The round may have ended (or rolled over) while we were fetching.
	// The round number matters too: consecutive rounds can draw the same
	// answer character, and a stale guess must not leak across.
	if r.closed || r.state.Status != models.StatusPlaying || r.answer == nil || r.answer.ID != answerID || r.currentRound != round {
		return GuessResult{}, ErrWrongStatus
	}
	p = r.findPlayerLocked(playerID)
	if p == nil {
		return GuessResult{}, ErrNotMember
	}
	if len(p.Guesses) >= r.settings.MaxAttempts {
		return GuessResult{}, ErrGuessesExhausted
	}

	data := game.BuildGuessData(guessed, *r.answer)
	p.GuessTime = time.Now().UnixMilli()
	p.Guesses = append(p.Guesses, data)
	p.CurrentGuess = &data
	remaining := r.settings.MaxAttempts - len(p.Guesses)

	r.broker.Record(r.ID, events.EventPlayerGuessed, events.PlayerGuessed{
		PlayerID:         playerID,
		PlayerName:       p.Name,
		Guess:            data,
		IsCorrect:        data.IsAnswer,
		GuessesRemaining: remaining,
	})

	if data.IsAnswer {
		p.Score++
		r.endRoundLocked(p)
	} else if r.allExhaustedLocked() {
		r.endRoundLocked(nil)
	}
	r.emitRoomUpdateLocked("", "", "")
	return GuessResult{Guess: data, IsCorrect: data.IsAnswer, GuessesRemaining: remaining}, nil
}

// GiveUp pads the player's history to the attempt limit with sentinel
// entries so the all-exhausted check treats them as finished.
func (r *Room) GiveUp(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findPlayerLocked(playerID)
	if p == nil {
		return ErrNotMember
	}
	if r.state.Status != models.StatusPlaying {
		return ErrWrongStatus
	}
	if len(p.Guesses) >= r.settings.MaxAttempts {
		return ErrGuessesExhausted
	}
	for len(p.Guesses) < r.settings.MaxAttempts {
		p.Guesses = append(p.Guesses, game.GiveUpGuess())
	}
	last := p.Guesses[len(p.Guesses)-1]
	r.broker.Record(r.ID, events.EventPlayerGuessed, events.PlayerGuessed{
		PlayerID:         playerID,
		PlayerName:       p.Name,
		Guess:            last,
		GaveUp:           true,
		GuessesRemaining: 0,
	})
	if r.allExhaustedLocked() {
		r.endRoundLocked(nil)
	}
	r.emitRoomUpdateLocked("", "", "")
	return nil
}

func (r *Room) allExhaustedLocked() bool {
	for _, p := range r.players {
		if len(p.Guesses) < r.settings.MaxAttempts {
			return false
		}
	}
	return true
}

// endRoundLocked transitions playing -> roundEnd and emits the roundEnd
// event. winner is nil when time ran out or everyone exhausted.
func (r *Room) endRoundLocked(winner *models.Player) {
	r.state.Status = models.StatusRoundEnd
	r.stopTimerLocked()
	end := events.RoundEnd{
		Answer:       r.answer,
		CurrentRound: r.currentRound,
		TotalRounds:  r.totalRounds,
	}
	if winner != nil {
		end.Winner = winner.ID
		end.PlayerName = winner.Name
	}
	r.broker.Record(r.ID, events.EventRoundEnd, end)
}

// EndGame is the host-only transition to the terminal gameEnd status,
// broadcasting the final scoreboard. Ties produce an empty winner and a
// multi-entry winners list.
func (r *Room) EndGame(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.host != playerID {
		return ErrNotHost
	}
	r.state.Status = models.StatusGameEnd
	r.stopTimerLocked()

	high := 0
	for _, p := range r.players {
		if p.Score > high {
			high = p.Score
		}
	}
	var winners []events.ScoreEntry
	scores := make([]events.ScoreEntry, 0, len(r.players))
	for _, p := range r.players {
		entry := events.ScoreEntry{ID: p.ID, Name: p.Name, Score: p.Score}
		scores = append(scores, entry)
		if p.Score == high {
			winners = append(winners, entry)
		}
	}
	end := events.GameEnd{
		Winners:         winners,
		Scores:          scores,
		TotalRounds:     r.totalRounds,
		CompletedRounds: r.currentRound,
	}
	if len(winners) == 1 {
		end.Winner = winners[0].ID
	}
	r.broker.Record(r.ID, events.EventGameEnd, end)
	r.emitRoomUpdateLocked("", "", "")
	return nil
}

// Reset returns the room to waiting, preserving settings. The host keeps
// the host flag and is forced ready.
func (r *Room) Reset(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.host != playerID {
		return ErrNotHost
	}
	r.stopTimerLocked()
	r.state = models.GameState{Status: models.StatusWaiting}
	r.currentRound = 0
	r.answer = nil
	for _, p := range r.players {
		p.ResetGame()
		p.IsReady = false
		if p.ID == r.host {
			p.IsReady = true
			p.IsHost = true
		}
	}
	r.emitRoomUpdateLocked("", "", "")
	return nil
}

// settingKeys is the fixed allowlist of host-mutable settings.
var settingKeys = map[string]struct{}{
	"startYear":         {},
	"endYear":           {},
	"topNSubjects":      {},
	"mainCharacterOnly": {},
	"characterNum":      {},
	"maxAttempts":       {},
	"enableHints":       {},
	"includeGame":       {},
	"timeLimit":         {},
	"subjectSearch":     {},
	"totalRounds":       {},
}

// UpdateSetting applies one host-issued settings change. Keys outside
// the allowlist are rejected and the settings are left untouched.
func (r *Room) UpdateSetting(playerID, key string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findPlayerLocked(playerID)
	if p == nil {
		return ErrNotMember
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if _, ok := settingKeys[key]; !ok {
		return ErrUnknownSetting
	}
	updated := r.settings
	var ok bool
	switch key {
	case "startYear":
		updated.StartYear, ok = intValue(value)
	case "endYear":
		updated.EndYear, ok = intValue(value)
	case "topNSubjects":
		updated.TopNSubjects, ok = intValue(value)
	case "mainCharacterOnly":
		updated.MainCharacterOnly, ok = value.(bool)
	case "characterNum":
		updated.CharacterNum, ok = intValue(value)
	case "maxAttempts":
		updated.MaxAttempts, ok = intValue(value)
	case "enableHints":
		updated.EnableHints, ok = value.(bool)
	case "includeGame":
		updated.IncludeGame, ok = value.(bool)
	case "timeLimit":
		updated.TimeLimit, ok = intValue(value)
	case "subjectSearch":
		updated.SubjectSearch, ok = value.(bool)
	case "totalRounds":
		updated.TotalRounds, ok = intValue(value)
	}
	if !ok {
		return ErrInvalidSetting
	}
	r.settings = updated
	r.emitRoomUpdateLocked("settings_update", "", key)
	return nil
}

// intValue coerces a decoded JSON number into an int.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// UpdateInfo lets the host rename the room or toggle its privacy.
func (r *Room) UpdateInfo(playerID string, name *string, private *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findPlayerLocked(playerID)
	if p == nil {
		return ErrNotMember
	}
	if !p.IsHost {
		return ErrNotHost
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return ErrInvalidSetting
		}
		r.name = truncateRunes(trimmed, 50)
	}
	if private != nil {
		r.private = *private
	}
	r.emitRoomUpdateLocked("", "", "")
	return nil
}

// Chat broadcasts a chat message from a room member.
func (r *Room) Chat(playerID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.findPlayerLocked(playerID)
	if p == nil {
		return ErrNotMember
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}
	r.broker.Record(r.ID, events.EventChat, events.Chat{
		PlayerID:   playerID,
		PlayerName: p.Name,
		Message:    message,
	})
	return nil
}

// Sync emits a roomUpdate targeted at one player (manual resync).
func (r *Room) Sync(playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findPlayerLocked(playerID) == nil {
		return ErrNotMember
	}
	r.emitRoomUpdateLocked("manual_sync", playerID, "")
	return nil
}

// remove splices the player out, reassigning the host role to the next
// remaining player by list order. Emits playerLeft unless the room
// became empty (the registry then deletes it). Returns whether the
// player was present, whether they were host, and whether the room is
// now empty.
func (r *Room) remove(playerID string) (removed, wasHost, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, false, len(r.players) == 0
	}
	p := r.players[idx]
	wasHost = p.IsHost
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		return true, wasHost, true
	}
	if wasHost {
		r.players[0].IsHost = true
		r.players[0].IsReady = true
		r.host = r.players[0].ID
	}
	r.broker.Record(r.ID, events.EventPlayerLeft, events.PlayerLeft{
		PlayerID:   playerID,
		PlayerName: p.Name,
	})
	return true, wasHost, false
}

// close marks the room deleted and stops its timer. Called by the
// registry with the registry lock held; a closed room rejects all
// further commands and its timer goroutine exits on the next tick.
func (r *Room) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.stopTimerLocked()
}

func (r *Room) playerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}
