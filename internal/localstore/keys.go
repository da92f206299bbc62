package localstore

import "github.com/aguacasa/abc-learning/internal/domain/card"

// Legacy flat guest keys, written before progress was partitioned per deck.
// Kept for the guest-to-authenticated merge.
const (
	LegacyGuestProgressKey     = "abc_guest_progress"
	LegacyGuestStatsKey        = "abc_guest_stats"
	LegacyGuestAchievementsKey = "abc_guest_achievements"
)

// Keys of the v1 single-blob save format and its one-time migration flag.
const (
	LegacyStateKey   = "toddlerABC_v1"
	MigrationFlagKey = "toddlerABC_migrated"
)

// ProgressKey returns the per-deck guest progress blob key.
func ProgressKey(deckID card.DeckID) string {
	return LegacyGuestProgressKey + "_" + string(deckID)
}

// StatsKey returns the per-deck guest star-count key.
func StatsKey(deckID card.DeckID) string {
	return LegacyGuestStatsKey + "_" + string(deckID)
}

// AchievementsKey returns the per-deck guest achievement-list key.
func AchievementsKey(deckID card.DeckID) string {
	return LegacyGuestAchievementsKey + "_" + string(deckID)
}
