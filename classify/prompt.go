package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/clarity/segment"
)

const systemPrompt = `You are an expert legal analyst reviewing contract clauses for the party who has to sign them.
Classify each clause into exactly one severity tier:
- high: strong obligations, penalties, forfeiture, waivers of rights, unlimited liability or clearly one-sided terms.
- caution: vague, unusual or ambiguous language that needs clarification or negotiation.
- standard: normal, fair terms expected in this kind of document.
Answer with a single JSON object and nothing else.`

// BuildPrompt returns the user prompt asking the model to classify one
// clause, prefixed with the document type when the clause carries one. The
// answer format is the JSON object decoded by ParseResponse.
func BuildPrompt(c segment.Clause) string {
	var b strings.Builder
	if c.DocumentType != "" {
		fmt.Fprintf(&b, "DOCUMENT TYPE: %s\n\n", c.DocumentType)
	}
	fmt.Fprintf(&b, "CLAUSE %d:\n%s\n\n", c.Index, c.Text)
	b.WriteString(`Respond only with this JSON object:
{"severity": "high" | "caution" | "standard", "risk_score": 0.0-1.0, "category": "short legal category", "rationale": "one sentence in plain English", "recommendations": ["short action for the signing party"], "legal_implications": "what the clause means legally, one or two sentences"}`)
	return b.String()
}

// Verdict is a parsed model answer.
type Verdict struct {
	Severity          Severity
	RiskScore         float64
	Category          string
	Rationale         string
	Recommendations   []string
	LegalImplications string
}

type verdictJSON struct {
	Severity          string   `json:"severity"`
	Label             string   `json:"label"`
	RiskScore         *float64 `json:"risk_score"`
	Category          string   `json:"category"`
	Rationale         string   `json:"rationale"`
	Recommendations   []string `json:"recommendations"`
	LegalImplications string   `json:"legal_implications"`
}

// ParseResponse decodes a model answer. Code fences and chatter around the
// JSON object are ignored; an answer without JSON must be a bare label on
// its first non-empty line ("high", "Severity: caution"). Nothing is ever
// defaulted: an unmappable answer is an *UnrecognizedError.
func ParseResponse(text string) (Verdict, error) {
	text = stripFences(text)

	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		var v verdictJSON
		if err := json.Unmarshal([]byte(text[start:end+1]), &v); err == nil {
			label := v.Severity
			if label == "" {
				label = v.Label
			}
			sev, err := ParseSeverity(label)
			if err != nil {
				return Verdict{}, err
			}
			out := Verdict{
				Severity:          sev,
				RiskScore:         sev.DefaultRiskScore(),
				Category:          strings.TrimSpace(v.Category),
				Rationale:         strings.TrimSpace(v.Rationale),
				Recommendations:   nonEmpty(v.Recommendations),
				LegalImplications: strings.TrimSpace(v.LegalImplications),
			}
			if v.RiskScore != nil {
				out.RiskScore = clamp01(*v.RiskScore)
			}
			return out, nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(k), "severity") {
			line = v
		}
		sev, err := ParseSeverity(line)
		if err != nil {
			return Verdict{}, &UnrecognizedError{Label: text}
		}
		return Verdict{Severity: sev, RiskScore: sev.DefaultRiskScore()}, nil
	}
	return Verdict{}, &UnrecognizedError{Label: text}
}

func nonEmpty(items []string) []string {
	var out []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
