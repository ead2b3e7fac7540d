package app

import (
	"sync"
	"time"

	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/game"
)

// SlotPhase is the sub-state of a session's single in-flight question.
type SlotPhase string

const (
	SlotIdle         SlotPhase = "idle"
	SlotAwaitingDice SlotPhase = "awaiting_dice"
	SlotActive       SlotPhase = "active"
)

// Slot is the in-flight question in whichever phase it is in. At most one
// exists per session; awaiting-dice and active are phases of the same slot,
// never two independent questions.
type Slot struct {
	Phase    SlotPhase
	Question domain.Question
	Team     domain.TeamRef
	Round    int

	// generation increments every time the slot is (re)filled so a reveal
	// timer scheduled for a superseded slot never fires.
	generation uint64
}

// Live is the in-memory authority for one running session: the engine with
// its allocation cursor, the question slot, and answers awaiting grading.
// All access goes through mu; the coordinator is the only writer.
type Live struct {
	sessionID int64

	mu      sync.Mutex
	engine  *game.Engine
	slot    Slot
	pending []domain.PendingAnswer
	reveal  *time.Timer
}

// NewLive is exported for live-store implementations that seed sessions.
func NewLive(sessionID int64) *Live {
	return &Live{sessionID: sessionID, slot: Slot{Phase: SlotIdle}}
}

// SessionID returns the session this live state belongs to.
func (l *Live) SessionID() int64 {
	return l.sessionID
}

// teardown cancels any scheduled reveal. Called with mu held or when the
// live state is already unreachable.
func (l *Live) teardown() {
	if l.reveal != nil {
		l.reveal.Stop()
		l.reveal = nil
	}
}

// fillSlotLocked moves the slot to awaiting_dice for a freshly served entry.
func (l *Live) fillSlotLocked(q domain.Question, team domain.TeamRef, round int) {
	l.generationBump()
	l.slot.Phase = SlotAwaitingDice
	l.slot.Question = q
	l.slot.Team = team
	l.slot.Round = round
}

// clearSlotLocked returns the slot to idle.
func (l *Live) clearSlotLocked() {
	l.generationBump()
	l.slot = Slot{Phase: SlotIdle, generation: l.slot.generation}
}

func (l *Live) generationBump() {
	l.slot.generation++
	l.teardown()
}
