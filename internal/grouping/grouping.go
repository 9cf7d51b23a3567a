// Package grouping clusters a day's log entries into display groups.
//
// Two policies apply by category. Meal types (breakfast, lunch, dinner)
// merge into exactly one group per business day, anchored in the feed at
// their first occurrence. Snacks chain: consecutive snacks merge while
// each adjacent pair is at most 30 minutes apart, so a chain can span
// more than 30 minutes total.
package grouping

import (
	"fmt"
	"sort"
	"time"

	"github.com/roach88/platelog/internal/event"
)

// GroupType distinguishes the two clustering policies.
type GroupType string

const (
	TypeMeal  GroupType = "Meal"
	TypeSnack GroupType = "Snack"
)

// Snacks further apart than this start a new group. The gap is measured
// between adjacent items, not from the first item of the chain.
const snackGapLimit = 30 * time.Minute

// MealTypeSnack is the snack category name in log entries.
const MealTypeSnack = "Snack"

// ActivityGroup is one card in the day feed.
type ActivityGroup struct {
	ID        string
	Type      GroupType
	Title     string
	StartTime string // HH:MM of the first item
	EndTime   string // HH:MM of the last item
	Calories  float64
	Protein   float64
	Fat       float64
	Carbs     float64
	Items     []event.LogEntry
}

// BusinessDate maps a timestamp to its business day: the day boundary is
// 04:00, so anything logged before 4 AM belongs to the previous calendar
// date. A snack at 1 AM shows in the prior day's feed.
func BusinessDate(t time.Time) string {
	if t.Hour() < 4 {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format("2006-01-02")
}

// EntryTime combines an entry's date and time fields into a full
// timestamp. Entries with unparseable fields sort to the zero time.
func EntryTime(e event.LogEntry) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, e.Date+"T"+e.Time); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FilterBusinessDate returns the entries belonging to one business day.
// This filtering is a precondition for Group, not part of grouping
// itself: an entry dated after midnight but before 04:00 is a candidate
// for the previous day's groups.
func FilterBusinessDate(entries []event.LogEntry, date string) []event.LogEntry {
	var out []event.LogEntry
	for _, e := range entries {
		if BusinessDate(EntryTime(e)) == date {
			out = append(out, e)
		}
	}
	return out
}

// Group clusters entries (assumed pre-filtered to one business day) into
// feed cards, ordered by each group's earliest item's full timestamp.
// Meals are merged per type but keep the feed position of their first
// occurrence, interleaving correctly with snack groups.
func Group(entries []event.LogEntry) []ActivityGroup {
	sorted := make([]event.LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return EntryTime(sorted[i]).Before(EntryTime(sorted[j]))
	})

	var groups []ActivityGroup
	var snack *ActivityGroup

	for _, entry := range sorted {
		if entry.MealType == MealTypeSnack {
			if snack != nil {
				last := snack.Items[len(snack.Items)-1]
				gap := EntryTime(entry).Sub(EntryTime(last))
				if gap <= snackGapLimit {
					addToGroup(snack, entry)
					continue
				}
				groups = append(groups, *snack)
			}
			g := newGroup(TypeSnack, "Snack", entry)
			snack = &g
			continue
		}

		// A meal closes any snack chain in progress; iteration is
		// time-sorted, so the snack group precedes it.
		if snack != nil {
			groups = append(groups, *snack)
			snack = nil
		}

		merged := false
		for i := range groups {
			if groups[i].Type == TypeMeal && groups[i].Title == entry.MealType {
				addToGroup(&groups[i], entry)
				merged = true
				break
			}
		}
		if !merged {
			groups = append(groups, newGroup(TypeMeal, entry.MealType, entry))
		}
	}

	if snack != nil {
		groups = append(groups, *snack)
	}

	// Feed order is by earliest item, not by when the group closed. A
	// late lunch item hoists into the early lunch card without moving it.
	sort.SliceStable(groups, func(i, j int) bool {
		return EntryTime(groups[i].Items[0]).Before(EntryTime(groups[j].Items[0]))
	})
	return groups
}

func newGroup(typ GroupType, title string, entry event.LogEntry) ActivityGroup {
	return ActivityGroup{
		ID:        fmt.Sprintf("group-%s", entry.ID),
		Type:      typ,
		Title:     title,
		StartTime: entry.Time,
		EndTime:   entry.Time,
		Calories:  float64(entry.Calories),
		Protein:   float64(entry.Protein),
		Fat:       float64(entry.Fat),
		Carbs:     float64(entry.Carbs),
		Items:     []event.LogEntry{entry},
	}
}

func addToGroup(g *ActivityGroup, entry event.LogEntry) {
	g.Items = append(g.Items, entry)
	g.EndTime = entry.Time
	g.Calories += float64(entry.Calories)
	g.Protein += float64(entry.Protein)
	g.Fat += float64(entry.Fat)
	g.Carbs += float64(entry.Carbs)
}
