package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
	"github.com/aguacasa/abc-learning/internal/repository"
)

// Store implements repository.ProgressStore over the device-local KV for
// guest play. Progress blobs are keyed by the deck passed to each call;
// stats and achievements are keyed by the deck the store was opened for,
// matching how guest data has always been laid out on device.
type Store struct {
	kv     *KV
	deckID card.DeckID
	logger *slog.Logger
	now    func() time.Time
}

// New creates a guest store scoped to deckID for stats and achievements.
func New(kv *KV, deckID card.DeckID, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, deckID: deckID, logger: logger, now: time.Now}
}

// LoadWorkingSet reads the per-deck progress blob, healing it against the
// deck's current card list: records for cards no longer in the deck are
// dropped, missing cards get fresh default records, and existing per-card
// progress is preserved. A corrupt blob is discarded and resynthesized.
func (s *Store) LoadWorkingSet(ctx context.Context, _ progress.Identity, deckID card.DeckID) ([]progress.Record, error) {
	cards := card.ForDeck(deckID)
	key := ProgressKey(deckID)

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}

	var records []progress.Record
	if found {
		if err := json.Unmarshal([]byte(raw), &records); err != nil {
			s.logger.Warn("discarding corrupt guest progress", "key", key, "error", err)
			if err := s.kv.Delete(ctx, key); err != nil {
				return nil, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
			}
			records = nil
		}
	}

	if len(records) == len(cards) {
		return records, nil
	}

	existing := make(map[string]progress.Record, len(records))
	for _, r := range records {
		existing[r.CardID] = r
	}

	now := s.now()
	healed := make([]progress.Record, 0, len(cards))
	for _, c := range cards {
		if r, ok := existing[c.ID]; ok {
			healed = append(healed, r)
			continue
		}
		healed = append(healed, progress.Record{
			ID:         c.ID,
			CardID:     c.ID,
			Level:      0,
			NextReview: now,
		})
	}

	if err := s.writeRecords(ctx, key, healed); err != nil {
		return nil, err
	}
	return healed, nil
}

// SaveRecords overwrites the per-deck progress blob. Local saves are whole-
// blob writes, so callers must pass the full working set.
func (s *Store) SaveRecords(ctx context.Context, _ progress.Identity, deckID card.DeckID, records []progress.Record) error {
	return s.writeRecords(ctx, ProgressKey(deckID), records)
}

func (s *Store) writeRecords(ctx context.Context, key string, records []progress.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding guest progress: %w", err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

// LoadStats reads the deck's guest star count. An unreadable count resets
// to zero rather than failing, as with any other corrupt local value.
func (s *Store) LoadStats(ctx context.Context, _ progress.Identity) (progress.Stats, error) {
	raw, found, err := s.kv.Get(ctx, StatsKey(s.deckID))
	if err != nil {
		return progress.Stats{}, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	if !found {
		return progress.Stats{}, nil
	}
	stars, err := strconv.Atoi(raw)
	if err != nil || stars < 0 {
		s.logger.Warn("discarding corrupt guest stats", "value", raw)
		return progress.Stats{}, nil
	}
	return progress.Stats{TotalStars: stars}, nil
}

// SaveStats stores the deck's guest star count.
func (s *Store) SaveStats(ctx context.Context, _ progress.Identity, stats progress.Stats) error {
	if err := s.kv.Set(ctx, StatsKey(s.deckID), strconv.Itoa(stats.TotalStars)); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

// UnlockedAchievements reads the deck's guest achievement keys.
func (s *Store) UnlockedAchievements(ctx context.Context, _ progress.Identity) (map[string]bool, error) {
	keys, err := s.achievementKeys(ctx)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[string]bool, len(keys))
	for _, k := range keys {
		unlocked[k] = true
	}
	return unlocked, nil
}

// RecordUnlock appends an achievement key if it is not already present.
func (s *Store) RecordUnlock(ctx context.Context, _ progress.Identity, key string) error {
	keys, err := s.achievementKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	keys = append(keys, key)

	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encoding guest achievements: %w", err)
	}
	if err := s.kv.Set(ctx, AchievementsKey(s.deckID), string(data)); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) achievementKeys(ctx context.Context) ([]string, error) {
	storeKey := AchievementsKey(s.deckID)
	raw, found, err := s.kv.Get(ctx, storeKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	if !found {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		s.logger.Warn("discarding corrupt guest achievements", "key", storeKey, "error", err)
		if err := s.kv.Delete(ctx, storeKey); err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
		}
		return nil, nil
	}
	return keys, nil
}
