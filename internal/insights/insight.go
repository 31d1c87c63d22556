package insights

// Severity grades an insight.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
	SeverityInfo    Severity = "info"
)

// Category groups insights by the habit they address.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryRisk       Category = "risk"
	CategoryPsychology Category = "psychology"
	CategoryTiming     Category = "timing"
	CategorySymbol     Category = "symbol"
)

// Insight is one piece of coaching feedback. The JSON shape is shared with
// the completion service response.
type Insight struct {
	Severity    Severity `json:"type"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action,omitempty"`
}

func validSeverity(s Severity) bool {
	switch s {
	case SeveritySuccess, SeverityWarning, SeverityDanger, SeverityInfo:
		return true
	}
	return false
}
