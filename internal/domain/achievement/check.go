package achievement

import "github.com/aguacasa/abc-learning/internal/domain/progress"

// NewlyEarned returns achievements whose threshold is met by the given stats
// and progress but whose key is not yet in the unlocked set, in catalog
// order.
func NewlyEarned(totalStars int, records []progress.Record, unlocked map[string]bool) []Achievement {
	mastered := 0
	for _, r := range records {
		if r.Mastered() {
			mastered++
		}
	}

	var earned []Achievement
	for _, a := range Catalog {
		if unlocked[a.Key] {
			continue
		}
		met := false
		switch a.Category {
		case CategoryStars:
			met = totalStars >= a.Requirement
		case CategoryLetters:
			met = mastered >= a.Requirement
		case CategoryStreak:
			// Streak data is not tracked.
		}
		if met {
			earned = append(earned, a)
		}
	}
	return earned
}
