package session

import (
	"context"

	"github.com/aguacasa/abc-learning/internal/domain/achievement"
)

// Speaker voices prompts and feedback. Fire-and-forget.
type Speaker interface {
	Speak(text string)
}

// Notifier surfaces a newly unlocked achievement. Fire-and-forget; the
// controller clears its own notification state after a fixed delay.
type Notifier interface {
	NotifyAchievement(a achievement.Achievement)
}

// Migrator reconciles local progress into the durable store for an
// authenticated user. It runs before any other durable read of the session.
type Migrator interface {
	Run(ctx context.Context, userID string) error
}
