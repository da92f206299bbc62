package session

import (
	"github.com/aguacasa/abc-learning/internal/domain/achievement"
	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
)

// State is the controller's position in the play loop.
type State string

const (
	// StateInitializing is the state before Start completes.
	StateInitializing State = "initializing"
	// StateReady shows a card front, waiting for a flip.
	StateReady State = "ready"
	// StateFlipped shows the answer face, waiting for an outcome.
	StateFlipped State = "flipped"
	// StateResolved holds between an outcome and the next card.
	StateResolved State = "resolved"
	// StateEmpty is terminal: the deck produced no cards to play.
	StateEmpty State = "empty"
)

// Snapshot is a read-only view of the session for the UI.
type Snapshot struct {
	State        State
	Deck         card.Deck
	Card         card.Card
	Record       progress.Record
	TotalStars   int
	Notification *achievement.Achievement
}
