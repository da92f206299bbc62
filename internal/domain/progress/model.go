package progress

import "time"

// MaxLevel is the mastery ceiling: three stars.
const MaxLevel = 3

// Record tracks one identity's progress on one card.
type Record struct {
	ID          string    `json:"id" db:"id"`
	CardID      string    `json:"letter_id" db:"letter_id"`
	Level       int       `json:"level" db:"level"`
	NextReview  time.Time `json:"next_review" db:"next_review"`
	ReviewCount int       `json:"review_count" db:"review_count"`
}

// Mastered reports whether the card has reached the top level.
func (r Record) Mastered() bool {
	return r.Level >= MaxLevel
}

// Stats aggregates per-identity totals across reviews.
type Stats struct {
	TotalStars   int       `json:"total_stars" db:"total_stars"`
	LastPlayedAt time.Time `json:"last_played_at" db:"last_played_at"`
}

// Identity is the resolved player identity. The zero value is a guest;
// authenticated identities carry the durable user id.
type Identity struct {
	UserID string
}

// Guest returns the anonymous identity.
func Guest() Identity {
	return Identity{}
}

// Authenticated returns an identity backed by a durable user id.
func Authenticated(userID string) Identity {
	return Identity{UserID: userID}
}

// IsGuest reports whether the identity has no durable user.
func (i Identity) IsGuest() bool {
	return i.UserID == ""
}
