package projection

import (
	"strings"

	"github.com/roach88/platelog/internal/event"
)

// Apply folds one event into the state and returns the resulting state.
// The input state is never mutated.
//
// Idempotency is per event kind: a replayed entryConfirmed is a no-op
// (business-ID check), a replayed delete is a no-op (entry already gone),
// but a replayed entryUpdated would double-subtract - the store's
// event-ID deduplication guarantees each update event is applied once.
func Apply(s State, e event.Event) State {
	switch p := e.Payload.(type) {
	case event.EntryConfirmed:
		return applyConfirmed(s, p)
	case event.EntryUpdated:
		return applyUpdated(s, p)
	case event.EntryDeleted:
		return applyDeleted(s, p)
	case event.LogAgain:
		return applyLogAgain(s, p)
	case event.MediaUploaded:
		return applyMediaUploaded(s, p)
	case event.GoalsUpdated:
		return applyGoalsUpdated(s, p)
	default:
		// Unknown kinds carry no projection effect.
		return s
	}
}

// ApplyAll folds a batch. Equivalent to applying each event individually
// in the same order - there are no batch shortcuts that change results.
func ApplyAll(s State, events []event.Event) State {
	for _, e := range events {
		s = Apply(s, e)
	}
	return s
}

func applyConfirmed(s State, p event.EntryConfirmed) State {
	entry := p.Entry
	if entry.ID == "" {
		return s
	}
	if _, ok := s.Entry(entry.ID); ok {
		// Already confirmed: replay no-op.
		return s
	}

	out := s.clone()
	out.Log = append(out.Log, entry)
	out.Stats[entry.Date] = addStats(statsFor(out, entry.Date), entry)
	return out
}

func applyUpdated(s State, p event.EntryUpdated) State {
	idx := entryIndex(s.Log, p.EntryID)
	if idx < 0 {
		return s
	}

	out := s.clone()
	old := out.Log[idx]
	updated := mergeChanges(old, p.Changes)
	out.Log[idx] = updated

	// Subtract the old entry's values, then add the new - the entry may
	// have moved to a different date.
	if stat, ok := out.Stats[old.Date]; ok {
		out.Stats[old.Date] = subStats(stat, old)
	}
	out.Stats[updated.Date] = addStats(statsFor(out, updated.Date), updated)
	return out
}

func applyDeleted(s State, p event.EntryDeleted) State {
	idx := entryIndex(s.Log, p.EntryID)
	if idx < 0 {
		return s
	}

	out := s.clone()
	entry := out.Log[idx]
	if stat, ok := out.Stats[entry.Date]; ok {
		out.Stats[entry.Date] = subStats(stat, entry)
	}
	out.Log = append(out.Log[:idx], out.Log[idx+1:]...)
	return out
}

// applyLogAgain upserts a favourite. The nutrition snapshot comes from
// the referenced source entry in *current* state, not the payload, so a
// logAgain must be processed after the entry it references. If the
// source entry is gone (deleted on another device before this one
// ingested both events), an existing favourite still gets its count
// bumped; a new favourite cannot be created.
func applyLogAgain(s State, p event.LogAgain) State {
	source, hasSource := s.Entry(p.SourceEntryID)
	key := foldKey(p.Description)

	idx := -1
	for i, f := range s.Favourites {
		if foldKey(f.Description) == key {
			idx = i
			break
		}
	}

	if idx >= 0 {
		out := s.clone()
		fav := out.Favourites[idx]
		fav.UsageCount++
		fav.LastUsed = p.Timestamp
		if hasSource && source.ImageDriveURL != "" {
			fav.DefaultImage = source.ImageDriveURL
		}
		out.Favourites[idx] = fav
		return out
	}

	if !hasSource {
		return s
	}

	out := s.clone()
	fav := Favourite{
		Description: source.Description,
		DefaultNutrition: Nutrition{
			Calories: float64(source.Calories),
			Protein:  float64(source.Protein),
			Carbs:    float64(source.Carbs),
			Fat:      float64(source.Fat),
		},
		LastUsed:     p.Timestamp,
		UsageCount:   1,
		DefaultImage: source.ImageDriveURL,
	}
	if source.Details != nil {
		fav.DefaultNutrition.Details = *source.Details
	}
	out.Favourites = append(out.Favourites, fav)
	return out
}

// applyMediaUploaded appends the resolved URL to every entry that
// references the temp ID, de-duplicated. Re-applying the same event is a
// no-op because the URL is already present.
func applyMediaUploaded(s State, p event.MediaUploaded) State {
	if p.TempID == "" || p.URL == "" {
		return s
	}

	out := s.clone()
	changed := false
	for i, entry := range out.Log {
		if !containsString(entry.MediaIDs, p.TempID) {
			continue
		}

		urls := splitURLs(entry.ImageDriveURL)
		if containsString(urls, p.URL) {
			continue
		}
		urls = append(urls, p.URL)
		out.Log[i].ImageDriveURL = strings.Join(urls, ", ")
		changed = true
	}

	if !changed {
		return s
	}
	return out
}

func applyGoalsUpdated(s State, p event.GoalsUpdated) State {
	out := s.clone()
	out.Settings = Settings{
		TargetCalories: float64(p.TargetCalories),
		MacroRatios:    p.MacroRatios,
	}
	return out
}

func entryIndex(log []event.LogEntry, id string) int {
	if id == "" {
		return -1
	}
	for i, e := range log {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func statsFor(s State, date string) DailyStats {
	if stat, ok := s.Stats[date]; ok {
		return stat
	}
	return DailyStats{Date: date}
}

func addStats(stat DailyStats, e event.LogEntry) DailyStats {
	stat.TotalCalories += float64(e.Calories)
	stat.TotalProtein += float64(e.Protein)
	stat.TotalFat += float64(e.Fat)
	stat.TotalCarbs += float64(e.Carbs)
	return stat
}

func subStats(stat DailyStats, e event.LogEntry) DailyStats {
	stat.TotalCalories -= float64(e.Calories)
	stat.TotalProtein -= float64(e.Protein)
	stat.TotalFat -= float64(e.Fat)
	stat.TotalCarbs -= float64(e.Carbs)
	return stat
}

func mergeChanges(entry event.LogEntry, c event.EntryChanges) event.LogEntry {
	if c.Date != nil {
		entry.Date = *c.Date
	}
	if c.Time != nil {
		entry.Time = *c.Time
	}
	if c.MealType != nil {
		entry.MealType = *c.MealType
	}
	if c.Description != nil {
		entry.Description = *c.Description
	}
	if c.Calories != nil {
		entry.Calories = *c.Calories
	}
	if c.Protein != nil {
		entry.Protein = *c.Protein
	}
	if c.Fat != nil {
		entry.Fat = *c.Fat
	}
	if c.Carbs != nil {
		entry.Carbs = *c.Carbs
	}
	if c.ImageDriveURL != nil {
		entry.ImageDriveURL = *c.ImageDriveURL
	}
	if c.Rationale != nil {
		entry.Rationale = *c.Rationale
	}
	if c.Details != nil {
		details := *c.Details
		entry.Details = &details
	}
	if c.MediaIDs != nil {
		ids := make([]string, len(*c.MediaIDs))
		copy(ids, *c.MediaIDs)
		entry.MediaIDs = ids
	}
	return entry
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func splitURLs(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
