// Package projection folds events into the derived views the app reads:
// the entry log, per-day aggregate stats, favourites, and goal settings.
//
// The fold is pure: Apply returns a new State and never mutates its
// input. Replaying the full event log from scratch and applying events
// incrementally produce identical states, which is what lets the client
// rehydrate from the store on load and ingest remote events mid-session
// through the same code path.
package projection

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/platelog/internal/event"
)

// DailyStats aggregates the nutrition totals of all entries on one date.
// Invariant: each total equals the sum of that field over log entries
// whose Date matches, at all times.
type DailyStats struct {
	Date          string
	TotalCalories float64
	TotalProtein  float64
	TotalFat      float64
	TotalCarbs    float64
}

// Nutrition is a favourite's default nutrition snapshot.
type Nutrition struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Details  event.DetailedNutrients
}

// Favourite is a "log again" catalog item, keyed by case-insensitive
// description.
type Favourite struct {
	Description      string
	DefaultNutrition Nutrition
	LastUsed         string
	UsageCount       int
	DefaultImage     string
}

// Settings holds the macro goal configuration.
type Settings struct {
	TargetCalories float64
	MacroRatios    event.MacroRatios
}

// Calories per gram of each macro, used to convert ratio goals to grams.
const (
	caloriesPerGramProtein = 4
	caloriesPerGramFat     = 9
	caloriesPerGramCarbs   = 4
)

// MacroTargetsGrams converts ratio-based goals into gram targets.
func (s Settings) MacroTargetsGrams() (protein, fat, carbs int) {
	protein = int(math.Round(s.TargetCalories * float64(s.MacroRatios.Protein) / caloriesPerGramProtein))
	fat = int(math.Round(s.TargetCalories * float64(s.MacroRatios.Fat) / caloriesPerGramFat))
	carbs = int(math.Round(s.TargetCalories * float64(s.MacroRatios.Carbs) / caloriesPerGramCarbs))
	return protein, fat, carbs
}

// State is the full derived state. It is rebuildable at any time by
// replaying all events in timestamp order and is never independently
// persisted.
type State struct {
	Log        []event.LogEntry
	Stats      map[string]DailyStats // keyed by YYYY-MM-DD
	Favourites []Favourite
	Settings   Settings
}

// NewState returns the initial state with default goal settings.
func NewState() State {
	return State{
		Log:        []event.LogEntry{},
		Stats:      map[string]DailyStats{},
		Favourites: []Favourite{},
		Settings: Settings{
			TargetCalories: 2000,
			MacroRatios: event.MacroRatios{
				Protein: 0.3,
				Fat:     0.35,
				Carbs:   0.35,
			},
		},
	}
}

// clone returns a state whose containers can be mutated without aliasing
// the original. Entries are value types; the slice itself is fresh.
func (s State) clone() State {
	out := s
	out.Log = make([]event.LogEntry, len(s.Log))
	copy(out.Log, s.Log)
	out.Stats = make(map[string]DailyStats, len(s.Stats))
	for k, v := range s.Stats {
		out.Stats[k] = v
	}
	out.Favourites = make([]Favourite, len(s.Favourites))
	copy(out.Favourites, s.Favourites)
	return out
}

// Entry returns the log entry with the given business ID, if present.
func (s State) Entry(id string) (event.LogEntry, bool) {
	for _, e := range s.Log {
		if e.ID == id {
			return e, true
		}
	}
	return event.LogEntry{}, false
}

// foldKey canonicalises a favourite description for matching: NFC
// normalised and case-folded, so "Café Latte" and "café latte" collide.
func foldKey(description string) string {
	return norm.NFC.String(strings.ToLower(description))
}
