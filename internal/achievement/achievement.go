// Package achievement classifies which hydration badges a user has earned from a
// snapshot of their intake data.
package achievement

// Achievement is a static badge definition. IDs are stable because clients store them.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Badge identifiers.
const (
	FirstDrink        = "first-drink"
	ThreeDayStreak    = "3-day-streak"
	SevenDayStreak    = "7-day-streak"
	FourteenDayStreak = "14-day-streak"
	PerfectWeek       = "perfect-week"
	GallonClub        = "1-gallon-club"
	Hydrator          = "hydrator"
	MasterHydrator    = "master-hydrator"
)

// Thresholds in ounces.
const (
	GallonOz         = 128
	HydratorOz       = 1000
	MasterHydratorOz = 5000
)

var catalog = []Achievement{
	{ID: FirstDrink, Name: "First Drink", Description: "Logged your first water intake.", Icon: "💧"},
	{ID: ThreeDayStreak, Name: "3-Day Streak", Description: "Drank your daily goal for 3 days in a row.", Icon: "🥉"},
	{ID: SevenDayStreak, Name: "7-Day Streak", Description: "Drank your daily goal for 7 days in a row.", Icon: "🔥"},
	{ID: FourteenDayStreak, Name: "14-Day Streak", Description: "Drank your daily goal for 14 days in a row.", Icon: "🏆"},
	{ID: PerfectWeek, Name: "Perfect Week", Description: "Met your daily goal every day of a calendar week.", Icon: "⭐"},
	{ID: GallonClub, Name: "1 Gallon Club", Description: "Drank over a gallon (128 oz) in a single day.", Icon: "gallon"},
	{ID: Hydrator, Name: "Hydrator", Description: "Drank 1000 oz of water in total.", Icon: "🌊"},
	{ID: MasterHydrator, Name: "Master Hydrator", Description: "Drank 5000 oz of water in total.", Icon: "👑"},
}

var byID = func() map[string]Achievement {
	m := make(map[string]Achievement, len(catalog))
	for _, a := range catalog {
		m[a.ID] = a
	}
	return m
}()

// streakBadges maps streak badge ids to the trailing streak length they require.
var streakBadges = map[string]int{
	ThreeDayStreak:    3,
	SevenDayStreak:    7,
	FourteenDayStreak: 14,
}

// Catalog returns every known achievement in display order.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the achievement registered under id.
func Lookup(id string) (Achievement, bool) {
	a, ok := byID[id]
	return a, ok
}
