package achievement

// Category groups achievements by what they measure.
type Category string

const (
	CategoryStars   Category = "stars"
	CategoryLetters Category = "letters"
	CategoryStreak  Category = "streak"
)

// Achievement is one entry of the static badge table.
type Achievement struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Category    Category `json:"category"`
	Requirement int      `json:"requirement"`
}

// Catalog is the immutable achievement table. No streak achievements are
// defined yet; the category is reserved until streak data is tracked.
var Catalog = []Achievement{
	{
		Key:         "first_star",
		Name:        "First Star!",
		Description: "Earned your first star",
		Icon:        "⭐",
		Category:    CategoryStars,
		Requirement: 1,
	},
	{
		Key:         "ten_stars",
		Name:        "Star Collector",
		Description: "Earned 10 stars",
		Icon:        "🌟",
		Category:    CategoryStars,
		Requirement: 10,
	},
	{
		Key:         "fifty_stars",
		Name:        "Shining Bright",
		Description: "Earned 50 stars",
		Icon:        "💫",
		Category:    CategoryStars,
		Requirement: 50,
	},
	{
		Key:         "hundred_stars",
		Name:        "Superstar!",
		Description: "Earned 100 stars",
		Icon:        "🏆",
		Category:    CategoryStars,
		Requirement: 100,
	},
	{
		Key:         "first_mastered",
		Name:        "Letter Learner",
		Description: "Mastered your first letter",
		Icon:        "📖",
		Category:    CategoryLetters,
		Requirement: 1,
	},
	{
		Key:         "five_mastered",
		Name:        "Word Builder",
		Description: "Mastered 5 letters",
		Icon:        "📚",
		Category:    CategoryLetters,
		Requirement: 5,
	},
	{
		Key:         "thirteen_mastered",
		Name:        "Halfway There!",
		Description: "Mastered half the alphabet",
		Icon:        "🎯",
		Category:    CategoryLetters,
		Requirement: 13,
	},
	{
		Key:         "alphabet_master",
		Name:        "Alphabet Champion",
		Description: "Mastered all 26 letters!",
		Icon:        "👑",
		Category:    CategoryLetters,
		Requirement: 26,
	},
}

// ByKey looks up an achievement definition by key.
func ByKey(key string) (Achievement, bool) {
	for _, a := range Catalog {
		if a.Key == key {
			return a, true
		}
	}
	return Achievement{}, false
}
