package repository

import (
	"context"

	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
)

// ProgressStore persists per-identity learning progress. Two implementations
// exist: a device-local store for guest play and a durable store for
// authenticated users. Callers select an implementation by identity kind and
// never branch on the backend itself.
type ProgressStore interface {
	// LoadWorkingSet returns exactly one record per card of the deck,
	// synthesizing defaults for any card without a persisted record.
	LoadWorkingSet(ctx context.Context, identity progress.Identity, deckID card.DeckID) ([]progress.Record, error)

	// SaveRecords upserts the given records for the identity and deck.
	SaveRecords(ctx context.Context, identity progress.Identity, deckID card.DeckID, records []progress.Record) error

	// LoadStats returns the identity's aggregate stats; identities that have
	// never played get zero stats, not an error.
	LoadStats(ctx context.Context, identity progress.Identity) (progress.Stats, error)

	// SaveStats upserts the identity's aggregate stats.
	SaveStats(ctx context.Context, identity progress.Identity, stats progress.Stats) error

	// UnlockedAchievements returns the set of achievement keys the identity
	// has unlocked.
	UnlockedAchievements(ctx context.Context, identity progress.Identity) (map[string]bool, error)

	// RecordUnlock marks an achievement key unlocked. Recording an already
	// unlocked key is a no-op.
	RecordUnlock(ctx context.Context, identity progress.Identity, key string) error
}
