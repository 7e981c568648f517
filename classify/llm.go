package classify

import (
	"context"

	"github.com/hazyhaar/clarity/segment"
)

// Completer sends a prompt to a hosted model and returns its raw answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// LLM classifies clauses with a Completer: one prompt per clause, answer
// decoded by ParseResponse.
type LLM struct {
	c Completer
}

func NewLLM(c Completer) *LLM { return &LLM{c: c} }

func (l *LLM) Name() string { return l.c.Name() }

func (l *LLM) Classify(ctx context.Context, clause segment.Clause) (Result, error) {
	answer, err := l.c.Complete(ctx, systemPrompt, BuildPrompt(clause))
	if err != nil {
		return Result{Clause: clause}, err
	}
	v, err := ParseResponse(answer)
	if err != nil {
		return Result{Clause: clause}, err
	}
	return Result{
		Clause:            clause,
		Severity:          v.Severity,
		RiskScore:         v.RiskScore,
		Category:          v.Category,
		Rationale:         v.Rationale,
		Recommendations:   v.Recommendations,
		LegalImplications: v.LegalImplications,
		Provider:          l.c.Name(),
	}, nil
}
