package analysis

import (
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/clarity/classify"
)

// Report is the result of analysing one document. Analysis holds exactly
// one entry per clause, in document order.
type Report struct {
	ID           string    `json:"id"`
	Document     string    `json:"document"`
	DocumentType string    `json:"document_type"`
	Format       string    `json:"format"`
	Provider     string    `json:"provider"`
	GeneratedAt  time.Time `json:"generated_at"`
	Analysis     []Entry   `json:"analysis"`
	Summary      Summary   `json:"summary"`
	Redactions   int       `json:"redactions,omitempty"`
}

// Entry is the verdict for one clause. A clause that could not be
// classified has no Severity and an Error kind instead.
type Entry struct {
	Index             int                       `json:"index"`
	Clause            string                    `json:"clause"`
	Severity          classify.Severity         `json:"severity,omitempty"`
	Symbol            string                    `json:"symbol"`
	RiskScore         float64                   `json:"risk_score,omitempty"`
	Category          string                    `json:"category,omitempty"`
	Rationale         string                    `json:"rationale,omitempty"`
	Recommendations   []string                  `json:"recommendations,omitempty"`
	LegalImplications string                    `json:"legal_implications,omitempty"`
	Error             string                    `json:"error,omitempty"`
	Detail            string                    `json:"detail,omitempty"`
	Injection         *classify.InjectionResult `json:"injection,omitempty"`
}

// Classified reports whether the entry carries a severity.
func (e Entry) Classified() bool { return e.Error == "" && e.Severity.Valid() }

// Summary aggregates a report.
type Summary struct {
	TotalClauses     int      `json:"total_clauses"`
	High             int      `json:"high"`
	Caution          int      `json:"caution"`
	Standard         int      `json:"standard"`
	Failed           int      `json:"failed"`
	OverallRiskScore float64  `json:"overall_risk_score"`
	KeyConcerns      []string `json:"key_concerns"`
	InjectionFlags   int      `json:"injection_flags,omitempty"`
}

const (
	maxConcerns      = 3
	concernMaxLength = 160
)

// Summarize counts severities, averages the risk score over classified
// clauses and lists the first high-severity clauses as key concerns.
func Summarize(entries []Entry) Summary {
	s := Summary{TotalClauses: len(entries), KeyConcerns: []string{}}
	var total float64
	for _, e := range entries {
		if e.Injection != nil {
			s.InjectionFlags++
		}
		if !e.Classified() {
			s.Failed++
			continue
		}
		total += e.RiskScore
		switch e.Severity {
		case classify.High:
			s.High++
			if len(s.KeyConcerns) < maxConcerns {
				s.KeyConcerns = append(s.KeyConcerns, truncate(e.Clause, concernMaxLength))
			}
		case classify.Caution:
			s.Caution++
		case classify.Standard:
			s.Standard++
		}
	}
	if n := s.High + s.Caution + s.Standard; n > 0 {
		s.OverallRiskScore = total / float64(n)
	}
	return s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
