package card

import "strings"

// baseAlphabet is the fixed table every deck derives from.
var baseAlphabet = []struct {
	Letter string
	Word   string
}{
	{"A", "Apple"},
	{"B", "Ball"},
	{"C", "Cat"},
	{"D", "Dog"},
	{"E", "Elephant"},
	{"F", "Fish"},
	{"G", "Guitar"},
	{"H", "Hat"},
	{"I", "Igloo"},
	{"J", "Juice"},
	{"K", "Kite"},
	{"L", "Lion"},
	{"M", "Moon"},
	{"N", "Nest"},
	{"O", "Octopus"},
	{"P", "Pig"},
	{"Q", "Queen"},
	{"R", "Rainbow"},
	{"S", "Sun"},
	{"T", "Turtle"},
	{"U", "Umbrella"},
	{"V", "Violin"},
	{"W", "Whale"},
	{"X", "X-Ray"},
	{"Y", "Yo-Yo"},
	{"Z", "Zebra"},
}

var decks = []Deck{
	{
		ID:          DeckUppercase,
		Name:        "Uppercase Letters",
		Description: "Learn A B C to Z",
		Icon:        "ABC",
		CardCount:   len(baseAlphabet),
	},
	{
		ID:          DeckLowercase,
		Name:        "Lowercase Letters",
		Description: "Learn a b c to z",
		Icon:        "abc",
		CardCount:   len(baseAlphabet),
	},
	{
		ID:          DeckMixed,
		Name:        "All Letters",
		Description: "Both Aa Bb Cc to Zz",
		Icon:        "AaBb",
		CardCount:   2 * len(baseAlphabet),
	},
}

// Decks returns the catalog of selectable decks.
func Decks() []Deck {
	out := make([]Deck, len(decks))
	copy(out, decks)
	return out
}

// DeckByID looks up a deck by its id.
func DeckByID(id DeckID) (Deck, bool) {
	for _, d := range decks {
		if d.ID == id {
			return d, true
		}
	}
	return Deck{}, false
}

// ForDeck derives the card list for a deck from the base alphabet table.
// Generation is deterministic and order-preserving; the mixed deck lists
// uppercase cards first. Unknown ids return nil.
func ForDeck(id DeckID) []Card {
	switch id {
	case DeckUppercase:
		return uppercaseCards()
	case DeckLowercase:
		return lowercaseCards()
	case DeckMixed:
		return append(uppercaseCards(), lowercaseCards()...)
	default:
		return nil
	}
}

func uppercaseCards() []Card {
	cards := make([]Card, 0, len(baseAlphabet))
	for _, entry := range baseAlphabet {
		cards = append(cards, Card{
			ID:    entry.Letter,
			Front: entry.Letter,
			Back:  entry.Letter,
			Word:  entry.Word,
			Sound: entry.Letter + " is for " + entry.Word,
		})
	}
	return cards
}

func lowercaseCards() []Card {
	cards := make([]Card, 0, len(baseAlphabet))
	for _, entry := range baseAlphabet {
		lower := strings.ToLower(entry.Letter)
		cards = append(cards, Card{
			ID:    lower + "_lower",
			Front: lower,
			Back:  lower,
			Word:  entry.Word,
			Sound: lower + " is for " + entry.Word,
		})
	}
	return cards
}
