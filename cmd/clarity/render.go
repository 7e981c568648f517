package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/hazyhaar/clarity/analysis"
	"github.com/hazyhaar/clarity/classify"
)

var (
	colorHigh     = color.New(color.FgRed, color.Bold)
	colorCaution  = color.New(color.FgYellow, color.Bold)
	colorStandard = color.New(color.FgGreen)
	colorFailed   = color.New(color.FgMagenta)
	colorDim      = color.New(color.Faint)
	colorTitle    = color.New(color.FgCyan, color.Bold)
)

const clauseWidth = 100

func severityColor(s classify.Severity) *color.Color {
	switch s {
	case classify.High:
		return colorHigh
	case classify.Caution:
		return colorCaution
	case classify.Standard:
		return colorStandard
	}
	return colorFailed
}

// renderReport prints a report for a terminal: one line per clause, then
// the summary.
func renderReport(w io.Writer, r *analysis.Report) {
	colorTitle.Fprintf(w, "%s", r.Document)
	colorDim.Fprintf(w, "  %s · %s · %s\n\n", r.DocumentType, r.Format, r.Provider)

	if len(r.Analysis) == 0 {
		colorDim.Fprintln(w, "no clauses found")
		return
	}
	for _, e := range r.Analysis {
		label := string(e.Severity)
		if !e.Classified() {
			label = e.Error
		}
		fmt.Fprintf(w, "%s %3d ", e.Symbol, e.Index)
		severityColor(e.Severity).Fprintf(w, "%-8s", label)
		fmt.Fprintf(w, " %s\n", clip(e.Clause, clauseWidth))
		if e.Rationale != "" {
			colorDim.Fprintf(w, "             %s\n", clip(e.Rationale, clauseWidth))
		}
		for _, rec := range e.Recommendations {
			colorDim.Fprintf(w, "             → %s\n", clip(rec, clauseWidth))
		}
		if e.Injection != nil {
			colorFailed.Fprintf(w, "             injection risk %s: %s\n", e.Injection.Risk, strings.Join(e.Injection.Matches, ", "))
		}
	}

	s := r.Summary
	fmt.Fprintln(w)
	colorHigh.Fprintf(w, "%d high", s.High)
	fmt.Fprint(w, "  ")
	colorCaution.Fprintf(w, "%d caution", s.Caution)
	fmt.Fprint(w, "  ")
	colorStandard.Fprintf(w, "%d standard", s.Standard)
	if s.Failed > 0 {
		fmt.Fprint(w, "  ")
		colorFailed.Fprintf(w, "%d unclassified", s.Failed)
	}
	fmt.Fprintf(w, "  overall risk %.2f\n", s.OverallRiskScore)
}

func writeReportJSON(w io.Writer, r *analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// clip flattens s to one line of at most n runes.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
