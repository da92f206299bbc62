package card

// DeckID identifies one of the built-in letter decks.
type DeckID string

const (
	DeckUppercase DeckID = "uppercase"
	DeckLowercase DeckID = "lowercase"
	DeckMixed     DeckID = "mixed"
)

// Card is one learnable unit: a letter with its example word and spoken prompt.
type Card struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
	Word  string `json:"word"`
	Sound string `json:"sound"`
}

// Deck describes a selectable card set.
type Deck struct {
	ID          DeckID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	CardCount   int    `json:"card_count"`
}
