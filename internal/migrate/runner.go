// Package migrate reconciles device-local progress into the durable store
// when a user plays authenticated: a one-time import of the v1 single-blob
// save format, plus a merge of any guest-mode progress. Both paths write
// only idempotent upserts keyed by (user, card) or (user, achievement), so
// re-running with the same source data is a no-op.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
	"github.com/aguacasa/abc-learning/internal/localstore"
	"github.com/aguacasa/abc-learning/internal/repository"
)

// Runner performs the local-to-durable reconciliation.
type Runner struct {
	kv      *localstore.KV
	durable repository.ProgressStore
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a migration runner.
func New(kv *localstore.KV, durable repository.ProgressStore, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{kv: kv, durable: durable, logger: logger, now: time.Now}
}

// Result summarizes a legacy import.
type Result struct {
	Migrated      bool
	StarsImported int
	CardsImported int
}

// Run executes both migration steps for the authenticated user. The steps
// are independent: a failure in one does not stop the other, and any error
// returned means source data was preserved for a retry next session.
func (r *Runner) Run(ctx context.Context, userID string) error {
	identity := progress.Authenticated(userID)

	legacyErr := r.migrateLegacy(ctx, identity)
	guestErr := r.mergeGuest(ctx, identity)
	return errors.Join(legacyErr, guestErr)
}

// legacyState is the v1 save format: a single blob with a flat card list
// and interval in milliseconds.
type legacyState struct {
	Cards []struct {
		ID         string `json:"id"`
		Level      int    `json:"level"`
		NextReview int64  `json:"nextReview"`
		Interval   int64  `json:"interval"`
	} `json:"cards"`
	TotalStars int `json:"totalStars"`
}

// migrateLegacy imports the v1 blob once, guarded by a persisted flag. The
// flag is set even when there is nothing to migrate; only a failed durable
// write leaves it unset so the import can retry.
func (r *Runner) migrateLegacy(ctx context.Context, identity progress.Identity) error {
	flag, _, err := r.kv.Get(ctx, localstore.MigrationFlagKey)
	if err != nil {
		return fmt.Errorf("reading migration flag: %w", err)
	}
	if flag == "true" {
		return nil
	}

	raw, found, err := r.kv.Get(ctx, localstore.LegacyStateKey)
	if err != nil {
		return fmt.Errorf("reading legacy state: %w", err)
	}
	if !found {
		return r.setLegacyFlag(ctx)
	}

	var state legacyState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		r.logger.Warn("discarding corrupt legacy state", "error", err)
		if err := r.kv.Delete(ctx, localstore.LegacyStateKey); err != nil {
			return fmt.Errorf("deleting corrupt legacy state: %w", err)
		}
		return r.setLegacyFlag(ctx)
	}

	result := Result{}
	hasProgress := state.TotalStars > 0
	for _, c := range state.Cards {
		if c.Level > 0 {
			hasProgress = true
			result.CardsImported++
		}
	}
	if !hasProgress {
		return r.setLegacyFlag(ctx)
	}

	records := make([]progress.Record, 0, len(state.Cards))
	for _, c := range state.Cards {
		records = append(records, progress.Record{
			CardID:     c.ID,
			Level:      c.Level,
			NextReview: time.UnixMilli(c.NextReview),
			// The v1 format never stored a review count; the level is the
			// closest approximation.
			ReviewCount: c.Level,
		})
	}
	if err := r.durable.SaveRecords(ctx, identity, card.DeckUppercase, records); err != nil {
		return fmt.Errorf("importing legacy records: %w", err)
	}

	if state.TotalStars > 0 {
		stats := progress.Stats{TotalStars: state.TotalStars, LastPlayedAt: r.now()}
		if err := r.durable.SaveStats(ctx, identity, stats); err != nil {
			return fmt.Errorf("importing legacy stars: %w", err)
		}
		result.StarsImported = state.TotalStars
	}

	result.Migrated = true
	r.logger.Info("imported legacy progress",
		"cards", result.CardsImported,
		"stars", result.StarsImported,
	)
	return r.setLegacyFlag(ctx)
}

func (r *Runner) setLegacyFlag(ctx context.Context) error {
	if err := r.kv.Set(ctx, localstore.MigrationFlagKey, "true"); err != nil {
		return fmt.Errorf("setting migration flag: %w", err)
	}
	return nil
}

// guestSource names the local keys holding one slice of guest progress.
type guestSource struct {
	progressKey     string
	statsKey        string
	achievementsKey string
	deckID          card.DeckID
}

func guestSources() []guestSource {
	sources := make([]guestSource, 0, len(card.Decks())+1)
	for _, d := range card.Decks() {
		sources = append(sources, guestSource{
			progressKey:     localstore.ProgressKey(d.ID),
			statsKey:        localstore.StatsKey(d.ID),
			achievementsKey: localstore.AchievementsKey(d.ID),
			deckID:          d.ID,
		})
	}
	// Flat keys written before progress was partitioned per deck.
	sources = append(sources, guestSource{
		progressKey:     localstore.LegacyGuestProgressKey,
		statsKey:        localstore.LegacyGuestStatsKey,
		achievementsKey: localstore.LegacyGuestAchievementsKey,
		deckID:          card.DeckUppercase,
	})
	return sources
}

// mergeGuest upserts guest progress from every deck (and the legacy flat
// keys) into the durable store. Guest data is cleared only after every
// upsert succeeded; a partial failure keeps it on device so the next
// session retries, with already-merged rows absorbed by the upserts.
func (r *Runner) mergeGuest(ctx context.Context, identity progress.Identity) error {
	totalStars := 0
	achievementKeys := make(map[string]bool)
	merged := false

	for _, src := range guestSources() {
		records, err := r.readGuestRecords(ctx, src.progressKey)
		if err != nil {
			return err
		}
		qualifying := records[:0]
		for _, rec := range records {
			if rec.Level > 0 || rec.ReviewCount > 0 {
				qualifying = append(qualifying, rec)
			}
		}
		if len(qualifying) > 0 {
			if err := r.durable.SaveRecords(ctx, identity, src.deckID, qualifying); err != nil {
				return fmt.Errorf("merging guest records for %s: %w", src.deckID, err)
			}
			merged = true
		}

		stars, err := r.readGuestStars(ctx, src.statsKey)
		if err != nil {
			return err
		}
		totalStars += stars

		keys, err := r.readGuestAchievements(ctx, src.achievementsKey)
		if err != nil {
			return err
		}
		for _, k := range keys {
			achievementKeys[k] = true
		}
	}

	if totalStars > 0 {
		stats := progress.Stats{TotalStars: totalStars, LastPlayedAt: r.now()}
		if err := r.durable.SaveStats(ctx, identity, stats); err != nil {
			return fmt.Errorf("merging guest stars: %w", err)
		}
		merged = true
	}

	for key := range achievementKeys {
		if err := r.durable.RecordUnlock(ctx, identity, key); err != nil {
			return fmt.Errorf("merging guest achievement %s: %w", key, err)
		}
		merged = true
	}

	if !merged {
		return nil
	}

	for _, src := range guestSources() {
		for _, key := range []string{src.progressKey, src.statsKey, src.achievementsKey} {
			if err := r.kv.Delete(ctx, key); err != nil {
				return fmt.Errorf("clearing guest data: %w", err)
			}
		}
	}

	r.logger.Info("merged guest progress",
		"stars", totalStars,
		"achievements", len(achievementKeys),
	)
	return nil
}

func (r *Runner) readGuestRecords(ctx context.Context, key string) ([]progress.Record, error) {
	raw, found, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	var records []progress.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		r.logger.Warn("discarding corrupt guest progress", "key", key, "error", err)
		if err := r.kv.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("deleting corrupt %q: %w", key, err)
		}
		return nil, nil
	}
	return records, nil
}

func (r *Runner) readGuestStars(ctx context.Context, key string) (int, error) {
	raw, found, err := r.kv.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("reading %q: %w", key, err)
	}
	if !found {
		return 0, nil
	}
	stars, err := strconv.Atoi(raw)
	if err != nil || stars < 0 {
		r.logger.Warn("discarding corrupt guest stats", "key", key, "value", raw)
		return 0, nil
	}
	return stars, nil
}

func (r *Runner) readGuestAchievements(ctx context.Context, key string) ([]string, error) {
	raw, found, err := r.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	if !found {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		r.logger.Warn("discarding corrupt guest achievements", "key", key, "error", err)
		return nil, nil
	}
	return keys, nil
}
