// Package entities extracts castells domain entities (teams, construction
// codes, years, places, events) from free-form Catalan questions using
// deterministic parsing plus fuzzy matching against the canonical
// vocabularies. Identical input and vocabularies always yield identical
// output.
package entities

// Status is the completion outcome of a construction in a performance.
type Status string

const (
	StatusCompleted         Status = "Descarregat"
	StatusLoaded            Status = "Carregat"
	StatusAttempt           Status = "Intent"
	StatusAttemptDismantled Status = "Intent desmuntat"
)

// ValidStatus reports whether s belongs to the closed status set.
func ValidStatus(s Status) bool {
	switch s {
	case StatusCompleted, StatusLoaded, StatusAttempt, StatusAttemptDismantled:
		return true
	}
	return false
}

// Construction pairs a canonical short code with an optional status.
type Construction struct {
	Code   string `json:"code"`
	Status Status `json:"status,omitempty"`
}

// Entities is the full extraction result. Teams, places and events hold
// canonical display forms; years are 4-digit; editions, tracks and positions
// only appear on contest questions.
type Entities struct {
	Teams         []string       `json:"teams,omitempty"`
	Constructions []Construction `json:"constructions,omitempty"`
	Years         []int          `json:"years,omitempty"`
	Places        []string       `json:"places,omitempty"`
	Events        []string       `json:"events,omitempty"`
	Editions      []string       `json:"editions,omitempty"`
	Tracks        []int          `json:"tracks,omitempty"`
	Positions     []int          `json:"positions,omitempty"`
}

// Empty reports whether nothing at all was extracted.
func (e Entities) Empty() bool {
	return len(e.Teams) == 0 &&
		len(e.Constructions) == 0 &&
		len(e.Years) == 0 &&
		len(e.Places) == 0 &&
		len(e.Events) == 0 &&
		len(e.Editions) == 0 &&
		len(e.Tracks) == 0 &&
		len(e.Positions) == 0
}
