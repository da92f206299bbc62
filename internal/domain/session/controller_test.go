package session_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/aguacasa/abc-learning/internal/domain/achievement"
	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
	"github.com/aguacasa/abc-learning/internal/domain/session"
	"github.com/aguacasa/abc-learning/internal/repository"
	"github.com/aguacasa/abc-learning/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

type fakeSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeSpeaker) Speak(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, text)
}

func (f *fakeSpeaker) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	unlocked []achievement.Achievement
}

func (f *fakeNotifier) NotifyAchievement(a achievement.Achievement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocked = append(f.unlocked, a)
}

func (f *fakeNotifier) notified() []achievement.Achievement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]achievement.Achievement(nil), f.unlocked...)
}

func freshRecords(cardIDs ...string) []progress.Record {
	records := make([]progress.Record, len(cardIDs))
	for i, id := range cardIDs {
		records[i] = progress.Record{ID: id, CardID: id, NextReview: testTime}
	}
	return records
}

func testScheduler() *progress.Scheduler {
	return progress.NewScheduler(
		func() time.Time { return testTime },
		rand.New(rand.NewSource(1)),
	)
}

func newController(t *testing.T, cfg session.Config) *session.Controller {
	t.Helper()
	if cfg.DeckID == "" {
		cfg.DeckID = card.DeckUppercase
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = testScheduler()
	}
	if cfg.NextCardDelay == 0 {
		cfg.NextCardDelay = 5 * time.Millisecond
	}
	if cfg.NotificationTTL == 0 {
		cfg.NotificationTTL = 5 * time.Millisecond
	}
	ctrl, err := session.NewController(cfg)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestNewController_UnknownDeck(t *testing.T) {
	_, err := session.NewController(session.Config{
		Store:  &mocks.ProgressStore{},
		DeckID: "runes",
	})
	require.ErrorIs(t, err, session.ErrUnknownDeck)
}

func TestStart_LoadsAndSelects(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A", "B", "C"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{TotalStars: 2}, nil)
	store.On("UnlockedAchievements", ctx, guest).
		Return(map[string]bool{"first_star": true}, nil)

	ctrl := newController(t, session.Config{Store: store})
	require.NoError(t, ctrl.Start(ctx))

	snap := ctrl.Snapshot()
	require.Equal(t, session.StateReady, snap.State)
	require.Contains(t, []string{"A", "B", "C"}, snap.Card.ID)
	require.Equal(t, 2, snap.TotalStars)
	require.Nil(t, snap.Notification)
}

func TestStart_EmptyWorkingSet(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return([]progress.Record{}, nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)

	ctrl := newController(t, session.Config{Store: store})
	require.NoError(t, ctrl.Start(ctx))
	require.Equal(t, session.StateEmpty, ctrl.Snapshot().State)
}

func TestStart_RunsMigratorOnceForAuthenticatedUser(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	user := progress.Authenticated("user-1")

	migrator := &mocks.Migrator{}
	migrator.On("Run", ctx, "user-1").Return(nil).Once()

	store.On("LoadWorkingSet", ctx, user, card.DeckUppercase).
		Return(freshRecords("A"), nil)
	store.On("LoadStats", ctx, user).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, user).Return(map[string]bool{}, nil)

	ctrl := newController(t, session.Config{
		Store:    store,
		Identity: user,
		Migrator: migrator,
	})
	require.NoError(t, ctrl.Start(ctx))
	require.ErrorIs(t, ctrl.Start(ctx), session.ErrAlreadyStarted)

	migrator.AssertExpectations(t)
}

func TestStart_GuestSkipsMigrator(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()
	migrator := &mocks.Migrator{}

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)

	ctrl := newController(t, session.Config{Store: store, Migrator: migrator})
	require.NoError(t, ctrl.Start(ctx))

	migrator.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestFlip_SpeaksOnceAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()
	speaker := &fakeSpeaker{}

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)

	ctrl := newController(t, session.Config{Store: store, Speaker: speaker})
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.Flip())
	require.NoError(t, ctrl.Flip())

	require.Equal(t, session.StateFlipped, ctrl.Snapshot().State)
	require.Equal(t, []string{"A is for Apple"}, speaker.spoken())
}

func TestResolve_RequiresFlippedCard(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)

	ctrl := newController(t, session.Config{Store: store})
	require.NoError(t, ctrl.Start(ctx))

	require.ErrorIs(t, ctrl.Resolve(ctx, true), session.ErrNotFlipped)
}

func TestResolve_FirstSuccessUnlocksFirstStar(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()
	speaker := &fakeSpeaker{}
	notifier := &fakeNotifier{}

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)

	store.On("SaveRecords", ctx, guest, card.DeckUppercase, mock.MatchedBy(func(records []progress.Record) bool {
		return len(records) == 1 &&
			records[0].CardID == "A" &&
			records[0].Level == 1 &&
			records[0].ReviewCount == 1 &&
			records[0].NextReview.Equal(testTime.Add(2*time.Minute))
	})).Return(nil)
	store.On("SaveStats", ctx, guest, mock.MatchedBy(func(stats progress.Stats) bool {
		return stats.TotalStars == 1
	})).Return(nil)
	store.On("RecordUnlock", ctx, guest, "first_star").Return(nil)

	ctrl := newController(t, session.Config{
		Store:           store,
		Speaker:         speaker,
		Notifier:        notifier,
		NextCardDelay:   100 * time.Millisecond,
		NotificationTTL: 150 * time.Millisecond,
	})
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Flip())
	require.NoError(t, ctrl.Resolve(ctx, true))

	snap := ctrl.Snapshot()
	require.Equal(t, 1, snap.TotalStars)
	require.NotNil(t, snap.Notification)
	require.Equal(t, "first_star", snap.Notification.Key)

	notified := notifier.notified()
	require.Len(t, notified, 1)
	require.Equal(t, "first_star", notified[0].Key)
	require.Contains(t, speaker.spoken(), "Achievement unlocked! First Star!")

	// After the short delay a new card is selected and the notification
	// auto-clears.
	require.Eventually(t, func() bool {
		snap := ctrl.Snapshot()
		return snap.State == session.StateReady && snap.Notification == nil
	}, 2*time.Second, 10*time.Millisecond)

	store.AssertExpectations(t)
}

func TestResolve_FailureDropsLevelWithoutStars(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()
	speaker := &fakeSpeaker{}

	records := freshRecords("A")
	records[0].Level = 2
	records[0].ReviewCount = 4

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).Return(records, nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{TotalStars: 6}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)
	store.On("SaveRecords", ctx, guest, card.DeckUppercase, mock.MatchedBy(func(records []progress.Record) bool {
		return len(records) == 1 &&
			records[0].Level == 1 &&
			records[0].ReviewCount == 5 &&
			records[0].NextReview.Equal(testTime.Add(30*time.Second))
	})).Return(nil)

	ctrl := newController(t, session.Config{Store: store, Speaker: speaker})
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Flip())
	require.NoError(t, ctrl.Resolve(ctx, false))

	require.Equal(t, 6, ctrl.Snapshot().TotalStars)
	require.Contains(t, speaker.spoken(), "That's okay, let's learn it.")
	store.AssertNotCalled(t, "SaveStats", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "RecordUnlock", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_StorageFailureKeepsStateIntact(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{TotalStars: 3}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)
	store.On("SaveRecords", ctx, guest, card.DeckUppercase, mock.Anything).
		Return(repository.ErrUnavailable)

	ctrl := newController(t, session.Config{Store: store})
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Flip())

	err := ctrl.Resolve(ctx, true)
	require.ErrorIs(t, err, repository.ErrUnavailable)

	// In-memory progress is untouched and the outcome can be retried.
	snap := ctrl.Snapshot()
	require.Equal(t, session.StateFlipped, snap.State)
	require.Equal(t, 0, snap.Record.Level)
	require.Equal(t, 3, snap.TotalStars)
}

func TestResolve_DoubleReportRejectedDuringDelay(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)
	store.On("SaveRecords", ctx, guest, card.DeckUppercase, mock.Anything).Return(nil)
	store.On("SaveStats", ctx, guest, mock.Anything).Return(nil)
	store.On("RecordUnlock", ctx, guest, mock.Anything).Return(nil)

	ctrl := newController(t, session.Config{
		Store:         store,
		NextCardDelay: 200 * time.Millisecond,
	})
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Flip())
	require.NoError(t, ctrl.Resolve(ctx, true))

	// The outcome is resolved; reporting again before the next card is an
	// error instead of a double-count.
	require.ErrorIs(t, ctrl.Resolve(ctx, true), session.ErrNotFlipped)
}

func TestSubset_NarrowsSelection(t *testing.T) {
	ctx := context.Background()
	store := &mocks.ProgressStore{}
	guest := progress.Guest()

	store.On("LoadWorkingSet", ctx, guest, card.DeckUppercase).
		Return(freshRecords("A", "B", "C", "D"), nil)
	store.On("LoadStats", ctx, guest).Return(progress.Stats{}, nil)
	store.On("UnlockedAchievements", ctx, guest).Return(map[string]bool{}, nil)

	ctrl := newController(t, session.Config{Store: store})
	require.NoError(t, ctrl.Start(ctx))

	ctrl.SetSubset([]string{"C"})
	ctrl.Reselect()
	require.Equal(t, "C", ctrl.Snapshot().Card.ID)

	ctrl.ClearSubset()
	ctrl.Reselect()
	require.Equal(t, session.StateReady, ctrl.Snapshot().State)
}
