package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aguacasa/abc-learning/internal/domain/achievement"
	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
	"github.com/aguacasa/abc-learning/internal/repository"
)

const (
	defaultNextCardDelay   = time.Second
	defaultNotificationTTL = 3 * time.Second
)

// Spoken feedback lines.
const (
	speakGreatJob    = "Great job!"
	speakMastered    = "You are a master!"
	speakTryAgain    = "That's okay, let's learn it."
	speakAchievement = "Achievement unlocked! "
)

// Config assembles a session controller. Store and DeckID are required;
// everything else has a sensible default or may be nil.
type Config struct {
	Store    repository.ProgressStore
	Identity progress.Identity
	DeckID   card.DeckID

	// Migrator runs once per session before any other durable read when the
	// identity is authenticated.
	Migrator Migrator

	Scheduler *progress.Scheduler
	Speaker   Speaker
	Notifier  Notifier
	Logger    *slog.Logger

	// NextCardDelay is how long the outcome stays visible before the next
	// card is selected.
	NextCardDelay time.Duration
	// NotificationTTL is how long an achievement notification stays up.
	NotificationTTL time.Duration

	// OnChange, if set, fires after timer-driven transitions so the UI can
	// re-read the snapshot.
	OnChange func()
}

// Controller owns one play session: the in-memory working set for the
// active deck, the current card, and the timers driving delayed
// transitions. All mutations come from one sequential user-interaction
// stream; the mutex only guards against the controller's own timers.
type Controller struct {
	store     repository.ProgressStore
	identity  progress.Identity
	deck      card.Deck
	cards     map[string]card.Card
	migrator  Migrator
	scheduler *progress.Scheduler
	speaker   Speaker
	notifier  Notifier
	logger    *slog.Logger
	onChange  func()

	nextCardDelay   time.Duration
	notificationTTL time.Duration

	mu           sync.Mutex
	state        State
	started      bool
	closed       bool
	records      []progress.Record
	stats        progress.Stats
	unlocked     map[string]bool
	current      progress.Record
	currentCard  card.Card
	subset       map[string]bool
	notification *achievement.Achievement
	nextTimer    *time.Timer
	notifyTimer  *time.Timer
}

// NewController creates a controller in the Initializing state.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	deck, ok := card.DeckByID(cfg.DeckID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDeck, cfg.DeckID)
	}

	cards := make(map[string]card.Card)
	for _, c := range card.ForDeck(deck.ID) {
		cards[c.ID] = c
	}

	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = progress.NewScheduler(nil, nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nextCardDelay := cfg.NextCardDelay
	if nextCardDelay <= 0 {
		nextCardDelay = defaultNextCardDelay
	}
	notificationTTL := cfg.NotificationTTL
	if notificationTTL <= 0 {
		notificationTTL = defaultNotificationTTL
	}

	return &Controller{
		store:           cfg.Store,
		identity:        cfg.Identity,
		deck:            deck,
		cards:           cards,
		migrator:        cfg.Migrator,
		scheduler:       scheduler,
		speaker:         cfg.Speaker,
		notifier:        cfg.Notifier,
		logger:          logger,
		onChange:        cfg.OnChange,
		nextCardDelay:   nextCardDelay,
		notificationTTL: notificationTTL,
		state:           StateInitializing,
		unlocked:        make(map[string]bool),
	}, nil
}

// Start resolves migration, loads the working set and stats, and selects
// the first card. On storage failure the controller stays in Initializing
// and Start may be called again.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	if !c.identity.IsGuest() && c.migrator != nil {
		// Migration failures are silent: local data is preserved and the
		// next session retries.
		if err := c.migrator.Run(ctx, c.identity.UserID); err != nil {
			c.logger.Warn("progress migration incomplete", "error", err)
		}
	}

	records, err := c.store.LoadWorkingSet(ctx, c.identity, c.deck.ID)
	if err != nil {
		return fmt.Errorf("loading working set: %w", err)
	}
	stats, err := c.store.LoadStats(ctx, c.identity)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}
	unlocked, err := c.store.UnlockedAchievements(ctx, c.identity)
	if err != nil {
		return fmt.Errorf("loading achievements: %w", err)
	}
	if unlocked == nil {
		unlocked = make(map[string]bool)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	c.records = records
	c.stats = stats
	c.unlocked = unlocked
	c.selectLocked()
	return nil
}

// Flip reveals the current card's answer face and speaks its prompt.
// Flipping an already flipped card is a no-op.
func (c *Controller) Flip() error {
	c.mu.Lock()
	if c.state == StateFlipped {
		c.mu.Unlock()
		return nil
	}
	if c.state != StateReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.state = StateFlipped
	sound := c.currentCard.Sound
	c.mu.Unlock()

	c.speak(sound)
	return nil
}

// Resolve applies the review outcome for the flipped card: it persists the
// updated record first, then commits it in memory, updates stars and
// achievements on success, and schedules the next-card transition. On
// storage failure nothing changes and the card stays flipped, so the
// outcome can be reported again.
func (c *Controller) Resolve(ctx context.Context, success bool) error {
	c.mu.Lock()
	if c.state != StateFlipped {
		c.mu.Unlock()
		return ErrNotFlipped
	}

	outcome := c.scheduler.ReviewOutcome(c.current.Level, success)
	updated := c.current
	updated.Level = outcome.NewLevel
	updated.NextReview = outcome.NextReview
	updated.ReviewCount++

	newRecords := make([]progress.Record, len(c.records))
	copy(newRecords, c.records)
	for i := range newRecords {
		if newRecords[i].CardID == updated.CardID {
			newRecords[i] = updated
			break
		}
	}
	c.mu.Unlock()

	if err := c.store.SaveRecords(ctx, c.identity, c.deck.ID, newRecords); err != nil {
		return fmt.Errorf("saving review outcome: %w", err)
	}

	c.mu.Lock()
	c.records = newRecords
	c.current = updated
	c.state = StateResolved

	var line string
	if success {
		c.stats.TotalStars++
		c.stats.LastPlayedAt = time.Now()
		stats := c.stats
		c.mu.Unlock()

		if err := c.store.SaveStats(ctx, c.identity, stats); err != nil {
			// The star still counts in memory; only this update is lost.
			c.logger.Warn("failed to persist stats", "error", err)
		}

		c.mu.Lock()
		line = c.resolveAchievementsLocked(ctx, updated)
	} else {
		line = speakTryAgain
	}

	c.scheduleNextCardLocked()
	c.mu.Unlock()

	c.speak(line)
	return nil
}

// resolveAchievementsLocked evaluates thresholds against the updated stats
// and progress and unlocks the first newly crossed achievement. It returns
// the line to speak. Caller holds the lock.
func (c *Controller) resolveAchievementsLocked(ctx context.Context, updated progress.Record) string {
	earned := achievement.NewlyEarned(c.stats.TotalStars, c.records, c.unlocked)
	if len(earned) == 0 {
		if updated.Mastered() {
			return speakMastered
		}
		return speakGreatJob
	}

	first := earned[0]
	if err := c.store.RecordUnlock(ctx, c.identity, first.Key); err != nil {
		// Not marked unlocked in memory either, so a later review can earn
		// and persist it again.
		c.logger.Warn("failed to persist achievement unlock", "key", first.Key, "error", err)
		if updated.Mastered() {
			return speakMastered
		}
		return speakGreatJob
	}

	c.unlocked[first.Key] = true
	c.notification = &first
	if c.notifier != nil {
		c.notifier.NotifyAchievement(first)
	}
	if c.notifyTimer != nil {
		c.notifyTimer.Stop()
	}
	c.notifyTimer = time.AfterFunc(c.notificationTTL, c.clearNotification)
	return speakAchievement + first.Name
}

// SetSubset narrows card selection to the given card ids ("study just
// these cards"). All records remain persisted; only selection is filtered.
// An empty list clears the subset.
func (c *Controller) SetSubset(cardIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(cardIDs) == 0 {
		c.subset = nil
		return
	}
	subset := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		subset[id] = true
	}
	c.subset = subset
}

// ClearSubset restores selection over the full deck.
func (c *Controller) ClearSubset() {
	c.SetSubset(nil)
}

// Reselect immediately picks a new card, superseding any pending next-card
// timer. Used when the study subset changes.
func (c *Controller) Reselect() {
	c.mu.Lock()
	if !c.started || c.state == StateFlipped {
		c.mu.Unlock()
		return
	}
	if c.nextTimer != nil {
		c.nextTimer.Stop()
		c.nextTimer = nil
	}
	c.selectLocked()
	c.mu.Unlock()
	c.notifyChange()
}

// Snapshot returns a copy of the current session state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:      c.state,
		Deck:       c.deck,
		Card:       c.currentCard,
		Record:     c.current,
		TotalStars: c.stats.TotalStars,
	}
	if c.notification != nil {
		n := *c.notification
		snap.Notification = &n
	}
	return snap
}

// Unlocked returns the achievement keys unlocked so far this session.
func (c *Controller) Unlocked() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.unlocked))
	for k, v := range c.unlocked {
		out[k] = v
	}
	return out
}

// Close stops the controller's timers. The controller cannot be restarted.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.nextTimer != nil {
		c.nextTimer.Stop()
		c.nextTimer = nil
	}
	if c.notifyTimer != nil {
		c.notifyTimer.Stop()
		c.notifyTimer = nil
	}
}

// scheduleNextCardLocked arms the next-card timer, superseding any pending
// one so rapid reviews cannot fire stale transitions. Caller holds the lock.
func (c *Controller) scheduleNextCardLocked() {
	if c.closed {
		return
	}
	if c.nextTimer != nil {
		c.nextTimer.Stop()
	}
	c.nextTimer = time.AfterFunc(c.nextCardDelay, c.advance)
}

// advance runs on the next-card timer: select a new card and re-enter Ready.
func (c *Controller) advance() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.selectLocked()
	c.mu.Unlock()
	c.notifyChange()
}

// selectLocked picks the next card from the (possibly subset-filtered)
// working set and sets Ready, or Empty when there is nothing to play.
// Caller holds the lock.
func (c *Controller) selectLocked() {
	pool := c.records
	if len(c.subset) > 0 {
		pool = make([]progress.Record, 0, len(c.records))
		for _, r := range c.records {
			if c.subset[r.CardID] {
				pool = append(pool, r)
			}
		}
	}

	pick := c.scheduler.NextCard(pool)
	if pick == nil {
		c.state = StateEmpty
		c.current = progress.Record{}
		c.currentCard = card.Card{}
		return
	}

	c.current = *pick
	c.currentCard = c.cards[pick.CardID]
	c.state = StateReady
}

func (c *Controller) clearNotification() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.notification = nil
	c.mu.Unlock()
	c.notifyChange()
}

func (c *Controller) speak(text string) {
	if c.speaker != nil && text != "" {
		c.speaker.Speak(text)
	}
}

func (c *Controller) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}
