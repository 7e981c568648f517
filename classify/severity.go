package classify

import (
	"strings"

	"github.com/hazyhaar/clarity/segment"
)

// Severity is the risk tier assigned to a clause.
type Severity string

const (
	High     Severity = "high"
	Caution  Severity = "caution"
	Standard Severity = "standard"

	// Unrecognized marks a clause whose classification could not be mapped
	// to one of the three tiers. It is never produced by ParseSeverity.
	Unrecognized Severity = "unrecognized"
)

// Severities lists the three tiers, most severe first.
var Severities = []Severity{High, Caution, Standard}

// Symbol returns the traffic-light form used in reports.
func (s Severity) Symbol() string {
	switch s {
	case High:
		return "🔴"
	case Caution:
		return "🟡"
	case Standard:
		return "🟢"
	}
	return "⚪"
}

// Valid reports whether s is one of the three tiers.
func (s Severity) Valid() bool {
	return s == High || s == Caution || s == Standard
}

// DefaultRiskScore is the score reported when the classifier gave none.
func (s Severity) DefaultRiskScore() float64 {
	switch s {
	case High:
		return 0.85
	case Caution:
		return 0.5
	case Standard:
		return 0.2
	}
	return 0
}

// ParseSeverity maps a model label to a Severity. Matching is strict:
// tier names, their traffic-light emoji and the colour names are accepted,
// case-insensitively and ignoring surrounding punctuation. Anything else is
// an *UnrecognizedError.
func ParseSeverity(label string) (Severity, error) {
	l := strings.ToLower(strings.Trim(strings.TrimSpace(label), " \t\n\"'`.,;:!*_()[]{}<>"))
	switch l {
	case "high", "🔴", "red":
		return High, nil
	case "caution", "🟡", "yellow":
		return Caution, nil
	case "standard", "🟢", "green":
		return Standard, nil
	}
	return "", &UnrecognizedError{Label: label}
}

// Result is the classification of one clause.
type Result struct {
	Clause            segment.Clause   `json:"clause"`
	Severity          Severity         `json:"severity"`
	RiskScore         float64          `json:"risk_score"`
	Category          string           `json:"category,omitempty"`
	Rationale         string           `json:"rationale,omitempty"`
	Recommendations   []string         `json:"recommendations,omitempty"`
	LegalImplications string           `json:"legal_implications,omitempty"`
	Provider          string           `json:"provider,omitempty"`
	Attempts          int              `json:"attempts,omitempty"`
	Injection         *InjectionResult `json:"injection,omitempty"`
}
