package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/clarity/segment"
)

var highRiskKeywords = []string{
	"penalty", "forfeit", "without notice", "sole discretion",
	"unlimited liability", "irrevocable", "waive", "indemnify",
}

var mediumRiskKeywords = []string{
	"reasonable discretion", "may be deemed", "including but not limited",
	"minor repairs", "appropriate action", "from time to time",
}

// Keyword scores clauses locally from risk keyword tables. It makes no
// network call and never fails; it is only used when configured
// explicitly.
type Keyword struct{}

func (Keyword) Name() string { return ProviderKeyword }

// Score returns the keyword risk score: 0.1 base, +0.3 per high-risk
// keyword, +0.15 per medium-risk keyword, capped at 1.
func (Keyword) Score(text string) (float64, []string) {
	lower := strings.ToLower(text)
	score := 0.1
	var hits []string
	for _, k := range highRiskKeywords {
		if strings.Contains(lower, k) {
			score += 0.3
			hits = append(hits, k)
		}
	}
	for _, k := range mediumRiskKeywords {
		if strings.Contains(lower, k) {
			score += 0.15
			hits = append(hits, k)
		}
	}
	return min(score, 1.0), hits
}

func (k Keyword) Classify(_ context.Context, c segment.Clause) (Result, error) {
	score, hits := k.Score(c.Text)
	sev := Standard
	switch {
	case score > 0.7:
		sev = High
	case score > 0.3:
		sev = Caution
	}
	res := Result{Clause: c, Severity: sev, RiskScore: score, Category: "keyword", Provider: k.Name()}
	if len(hits) > 0 {
		res.Rationale = fmt.Sprintf("matched: %s", strings.Join(hits, ", "))
	}
	return res, nil
}
