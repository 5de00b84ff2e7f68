package pipeline

import "github.com/sells-group/thesis-scout/internal/model"

// Event is the closed union of pipeline output events. A run emits zero or
// more Progress and Company events followed by exactly one terminal event
// (Complete or Error), after which the channel is closed.
type Event interface {
	isEvent()
}

// Progress carries human-readable status text. Purely informational; the
// only guarantee is emission order.
type Progress struct {
	Message string `json:"message"`
}

// Company carries one fully merged, analyzed company. Emitted in analysis
// completion order, not final rank order.
type Company struct {
	Record model.Candidate `json:"record"`
}

// Complete is the terminal success event.
type Complete struct {
	Companies      []model.Candidate     `json:"companies"`
	PublicComps    []string              `json:"public_comps"`
	Summary        string                `json:"summary"`
	AdjacentThemes []model.AdjacentTheme `json:"adjacent_themes"`
	Stats          model.DiscoveryStats  `json:"discovery_stats"`
	ThesisSources  []model.ThesisSource  `json:"thesis_sources"`
}

// Error terminates the sequence; at most one is emitted and it is always
// the last event when present.
type Error struct {
	Message string `json:"message"`
}

func (Progress) isEvent() {}
func (Company) isEvent()  {}
func (Complete) isEvent() {}
func (Error) isEvent()    {}
