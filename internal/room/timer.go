// internal/room/timer.go
package room

import (
	"context"
	"time"

	"github.com/animeguessr/server/internal/models"
)

// startTimerLocked (re)starts the per-round countdown goroutine. One
// timer runs per actively-playing room; rounds without a time limit get
// none. Caller holds r.mu.
func (r *Room) startTimerLocked() {
	r.stopTimerLocked()
	if r.settings.TimeLimit <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.timerCancel = cancel
	go r.runTimer(ctx)
}

func (r *Room) stopTimerLocked() {
	if r.timerCancel != nil {
		r.timerCancel()
		r.timerCancel = nil
	}
}

// runTimer ticks once per second, recomputing the remaining time from
// the round start timestamp and broadcasting a roomUpdate. Reaching zero
// forces the round to end with no winner. The loop stops itself when the
// room is deleted or the round ends some other way.
func (r *Room) runTimer(ctx context.Context) {
	ticker := time.NewTicker(r.tickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.tick() {
				return
			}
		}
	}
}

// tick advances the countdown once. Returns true when the timer should
// stop.
func (r *Room) tick() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state.Status != models.StatusPlaying || r.state.RoundStartTime == 0 {
		return true
	}
	elapsed := int(time.Since(time.UnixMilli(r.state.RoundStartTime)) / r.tickEvery)
	remaining := r.settings.TimeLimit - elapsed
	if remaining < 0 {
		remaining = 0
	}
	r.state.TimeRemaining = &remaining
	if remaining == 0 {
		r.endRoundLocked(nil)
		r.emitRoomUpdateLocked("", "", "")
		return true
	}
	r.emitRoomUpdateLocked("", "", "")
	return false
}
