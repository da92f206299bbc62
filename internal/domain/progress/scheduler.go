package progress

import (
	"math/rand"
	"sort"
	"time"
)

// Review intervals by the level just reached. Level 0 is always due.
var levelIntervals = []time.Duration{
	0,
	2 * time.Minute,
	10 * time.Minute,
	time.Hour,
}

const (
	// failInterval applies after any wrong answer, regardless of level.
	failInterval = 30 * time.Second
	// overflowInterval applies if a level ever lands beyond the table.
	overflowInterval = 24 * time.Hour
	// dueCandidates caps how many of the weakest due cards compete for
	// selection, so the card order is not fully predictable.
	dueCandidates = 3
)

// Scheduler computes review outcomes and picks the next card to show.
// The clock and randomness source are injectable so selection is
// reproducible under test.
type Scheduler struct {
	now func() time.Time
	rng *rand.Rand
}

// NewScheduler creates a scheduler. A nil clock defaults to time.Now and a
// nil rng defaults to an unseeded source.
func NewScheduler(now func() time.Time, rng *rand.Rand) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{now: now, rng: rng}
}

// Outcome is the result of applying one review to a record.
type Outcome struct {
	NewLevel   int
	NextReview time.Time
}

// ReviewOutcome computes the level transition and next review time for one
// review. Levels move by one step, clamped to [0, MaxLevel]; out-of-range
// input is clamped the same way, never rejected.
func (s *Scheduler) ReviewOutcome(level int, success bool) Outcome {
	now := s.now()

	if !success {
		newLevel := level - 1
		if newLevel < 0 {
			newLevel = 0
		}
		return Outcome{NewLevel: newLevel, NextReview: now.Add(failInterval)}
	}

	newLevel := level + 1
	if newLevel > MaxLevel {
		newLevel = MaxLevel
	}
	interval := overflowInterval
	if newLevel >= 0 && newLevel < len(levelIntervals) {
		interval = levelIntervals[newLevel]
	}
	return Outcome{NewLevel: newLevel, NextReview: now.Add(interval)}
}

// NextCard picks the next card to present. It returns nil only for an empty
// input. Due cards are preferred, weakest first, with a random pick among
// the top few so a child cannot memorize the order. With nothing due it
// falls back to a random unmastered card, or any card once all are mastered.
func (s *Scheduler) NextCard(records []Record) *Record {
	if len(records) == 0 {
		return nil
	}

	now := s.now()
	due := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.NextReview.After(now) {
			due = append(due, r)
		}
	}

	if len(due) == 0 {
		unmastered := make([]Record, 0, len(records))
		for _, r := range records {
			if !r.Mastered() {
				unmastered = append(unmastered, r)
			}
		}
		if len(unmastered) == 0 {
			pick := records[s.rng.Intn(len(records))]
			return &pick
		}
		pick := unmastered[s.rng.Intn(len(unmastered))]
		return &pick
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Level < due[j].Level
	})
	limit := dueCandidates
	if len(due) < limit {
		limit = len(due)
	}
	pick := due[s.rng.Intn(limit)]
	return &pick
}
