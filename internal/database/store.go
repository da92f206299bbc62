package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
	"github.com/aguacasa/abc-learning/internal/repository"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxRetries = 3

// Store implements repository.ProgressStore against the durable backend,
// keyed by the authenticated user id. Every call runs under a bounded
// exponential retry; exhaustion surfaces as repository.ErrUnavailable.
type Store struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a durable progress store.
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

type progressRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	LetterID    string `db:"letter_id"`
	Level       int    `db:"level"`
	NextReview  string `db:"next_review"`
	ReviewCount int    `db:"review_count"`
}

func (row progressRow) toRecord() (progress.Record, error) {
	next, err := time.Parse(time.RFC3339Nano, row.NextReview)
	if err != nil {
		return progress.Record{}, fmt.Errorf("%w: next_review for %s: %v", repository.ErrMalformedData, row.LetterID, err)
	}
	return progress.Record{
		ID:          row.ID,
		CardID:      row.LetterID,
		Level:       row.Level,
		NextReview:  next,
		ReviewCount: row.ReviewCount,
	}, nil
}

// LoadWorkingSet returns one record per deck card for the user, inserting
// defaults for exactly the cards that have none, then re-reading the full
// set.
func (s *Store) LoadWorkingSet(ctx context.Context, identity progress.Identity, deckID card.DeckID) ([]progress.Record, error) {
	if identity.IsGuest() {
		return nil, errAuthenticatedOnly
	}
	cards := card.ForDeck(deckID)
	if len(cards) == 0 {
		return nil, nil
	}
	cardIDs := make([]string, len(cards))
	for i, c := range cards {
		cardIDs[i] = c.ID
	}

	rows, err := s.selectProgress(ctx, identity.UserID, cardIDs)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(rows))
	for _, row := range rows {
		present[row.LetterID] = true
	}
	var missing []string
	for _, id := range cardIDs {
		if !present[id] {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		if err := s.insertDefaults(ctx, identity.UserID, missing); err != nil {
			return nil, err
		}
		rows, err = s.selectProgress(ctx, identity.UserID, cardIDs)
		if err != nil {
			return nil, err
		}
	}

	byCard := make(map[string]progressRow, len(rows))
	for _, row := range rows {
		byCard[row.LetterID] = row
	}
	records := make([]progress.Record, 0, len(cards))
	for _, id := range cardIDs {
		row, ok := byCard[id]
		if !ok {
			return nil, fmt.Errorf("%w: card_progress row for %s after insert", repository.ErrNotFound, id)
		}
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) selectProgress(ctx context.Context, userID string, cardIDs []string) ([]progressRow, error) {
	query, args, err := sqlx.In(`
		SELECT id, user_id, letter_id, level, next_review, review_count
		FROM card_progress
		WHERE user_id = ? AND letter_id IN (?)
	`, userID, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("building progress query: %w", err)
	}
	query = s.db.Rebind(query)

	var rows []progressRow
	err = s.withRetry(ctx, func() error {
		rows = rows[:0]
		return s.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) insertDefaults(ctx context.Context, userID string, cardIDs []string) error {
	query := s.db.Rebind(`
		INSERT INTO card_progress (id, user_id, letter_id, level, next_review, review_count)
		VALUES (?, ?, ?, 0, ?, 0)
		ON CONFLICT (user_id, letter_id) DO NOTHING
	`)
	now := s.now().Format(time.RFC3339Nano)
	for _, id := range cardIDs {
		rowID := uuid.NewString()
		err := s.withRetry(ctx, func() error {
			_, execErr := s.db.ExecContext(ctx, query, rowID, userID, id, now)
			return execErr
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveRecords upserts each record keyed by (user_id, letter_id).
func (s *Store) SaveRecords(ctx context.Context, identity progress.Identity, _ card.DeckID, records []progress.Record) error {
	if identity.IsGuest() {
		return errAuthenticatedOnly
	}
	query := s.db.Rebind(`
		INSERT INTO card_progress (id, user_id, letter_id, level, next_review, review_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, letter_id) DO UPDATE SET
			level = excluded.level,
			next_review = excluded.next_review,
			review_count = excluded.review_count
	`)
	for _, r := range records {
		rowID := r.ID
		if rowID == "" || rowID == r.CardID {
			rowID = uuid.NewString()
		}
		next := r.NextReview.Format(time.RFC3339Nano)
		rec := r
		err := s.withRetry(ctx, func() error {
			_, execErr := s.db.ExecContext(ctx, query, rowID, identity.UserID, rec.CardID, rec.Level, next, rec.ReviewCount)
			return execErr
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadStats returns the user's aggregate stats; a user with no stats row
// gets zero stats.
func (s *Store) LoadStats(ctx context.Context, identity progress.Identity) (progress.Stats, error) {
	if identity.IsGuest() {
		return progress.Stats{}, errAuthenticatedOnly
	}
	query := s.db.Rebind(`
		SELECT total_stars, last_played_at FROM user_stats WHERE user_id = ?
	`)

	var row struct {
		TotalStars   int    `db:"total_stars"`
		LastPlayedAt string `db:"last_played_at"`
	}
	found := true
	err := s.withRetry(ctx, func() error {
		getErr := s.db.GetContext(ctx, &row, query, identity.UserID)
		if errors.Is(getErr, sql.ErrNoRows) {
			found = false
			return nil
		}
		return getErr
	})
	if err != nil {
		return progress.Stats{}, err
	}
	if !found {
		return progress.Stats{}, nil
	}

	lastPlayed, err := time.Parse(time.RFC3339Nano, row.LastPlayedAt)
	if err != nil {
		return progress.Stats{}, fmt.Errorf("%w: last_played_at: %v", repository.ErrMalformedData, err)
	}
	return progress.Stats{TotalStars: row.TotalStars, LastPlayedAt: lastPlayed}, nil
}

// SaveStats upserts the user's aggregate stats. A zero LastPlayedAt is
// stamped with the current time.
func (s *Store) SaveStats(ctx context.Context, identity progress.Identity, stats progress.Stats) error {
	if identity.IsGuest() {
		return errAuthenticatedOnly
	}
	lastPlayed := stats.LastPlayedAt
	if lastPlayed.IsZero() {
		lastPlayed = s.now()
	}
	query := s.db.Rebind(`
		INSERT INTO user_stats (user_id, total_stars, last_played_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			total_stars = excluded.total_stars,
			last_played_at = excluded.last_played_at
	`)
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, identity.UserID, stats.TotalStars, lastPlayed.Format(time.RFC3339Nano))
		return err
	})
}

// UnlockedAchievements returns the user's unlocked achievement keys.
func (s *Store) UnlockedAchievements(ctx context.Context, identity progress.Identity) (map[string]bool, error) {
	if identity.IsGuest() {
		return nil, errAuthenticatedOnly
	}
	query := s.db.Rebind(`
		SELECT achievement_key FROM user_achievements WHERE user_id = ?
	`)

	var keys []string
	err := s.withRetry(ctx, func() error {
		keys = keys[:0]
		return s.db.SelectContext(ctx, &keys, query, identity.UserID)
	})
	if err != nil {
		return nil, err
	}

	unlocked := make(map[string]bool, len(keys))
	for _, k := range keys {
		unlocked[k] = true
	}
	return unlocked, nil
}

// RecordUnlock inserts an achievement key, ignoring keys already present.
func (s *Store) RecordUnlock(ctx context.Context, identity progress.Identity, key string) error {
	if identity.IsGuest() {
		return errAuthenticatedOnly
	}
	query := s.db.Rebind(`
		INSERT INTO user_achievements (user_id, achievement_key)
		VALUES (?, ?)
		ON CONFLICT (user_id, achievement_key) DO NOTHING
	`)
	return s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, identity.UserID, key)
		return err
	})
}

var errAuthenticatedOnly = errors.New("durable store requires an authenticated identity")

func (s *Store) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}
