package mocks

import (
	"context"

	"github.com/aguacasa/abc-learning/internal/domain/card"
	"github.com/aguacasa/abc-learning/internal/domain/progress"
	"github.com/stretchr/testify/mock"
)

// ProgressStore is a mock for repository.ProgressStore.
type ProgressStore struct {
	mock.Mock
}

func (m *ProgressStore) LoadWorkingSet(ctx context.Context, identity progress.Identity, deckID card.DeckID) ([]progress.Record, error) {
	args := m.Called(ctx, identity, deckID)
	if records, ok := args.Get(0).([]progress.Record); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProgressStore) SaveRecords(ctx context.Context, identity progress.Identity, deckID card.DeckID, records []progress.Record) error {
	args := m.Called(ctx, identity, deckID, records)
	return args.Error(0)
}

func (m *ProgressStore) LoadStats(ctx context.Context, identity progress.Identity) (progress.Stats, error) {
	args := m.Called(ctx, identity)
	if stats, ok := args.Get(0).(progress.Stats); ok {
		return stats, args.Error(1)
	}
	return progress.Stats{}, args.Error(1)
}

func (m *ProgressStore) SaveStats(ctx context.Context, identity progress.Identity, stats progress.Stats) error {
	args := m.Called(ctx, identity, stats)
	return args.Error(0)
}

func (m *ProgressStore) UnlockedAchievements(ctx context.Context, identity progress.Identity) (map[string]bool, error) {
	args := m.Called(ctx, identity)
	if keys, ok := args.Get(0).(map[string]bool); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProgressStore) RecordUnlock(ctx context.Context, identity progress.Identity, key string) error {
	args := m.Called(ctx, identity, key)
	return args.Error(0)
}

// Migrator is a mock for session.Migrator.
type Migrator struct {
	mock.Mock
}

func (m *Migrator) Run(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
