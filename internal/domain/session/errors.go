package session

import "errors"

var (
	// ErrAlreadyStarted indicates Start ran twice on one controller.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrNotReady indicates there is no card face up to flip.
	ErrNotReady = errors.New("no card ready to flip")
	// ErrNotFlipped indicates an outcome was reported without a flipped card.
	ErrNotFlipped = errors.New("card not flipped")
	// ErrUnknownDeck indicates the configured deck id is not in the catalog.
	ErrUnknownDeck = errors.New("unknown deck")
)
