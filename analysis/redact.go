package analysis

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hazyhaar/clarity/idgen"
)

// Redaction maps a placeholder back to the text it replaced.
type Redaction struct {
	Placeholder string `json:"placeholder"`
	Original    string `json:"-"`
	Type        string `json:"type"`
}

type entityPattern struct {
	typ string
	re  *regexp.Regexp
	// group is the submatch replaced; 0 replaces the whole match.
	group int
}

var entityPatterns = []entityPattern{
	{"CONTRACT_ID", regexp.MustCompile(`(?i:contract)\s*(?:(?i:no)\.?|#|(?i:id))\s*:?\s*([A-Z0-9][A-Z0-9\-/]{2,})`), 1},
	{"CASE_NUMBER", regexp.MustCompile(`(?i:case)\s*(?:(?i:no)\.?|#)\s*:?\s*([A-Z0-9][A-Z0-9\-/]{2,})`), 1},
	{"LICENSE_NUMBER", regexp.MustCompile(`(?i:licen[cs]e)\s*(?:(?i:no)\.?|#)\s*:?\s*([A-Z0-9][A-Z0-9\-/]{2,})`), 1},
	{"GST", regexp.MustCompile(`\b\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]\b`), 0},
	{"PAN", regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`), 0},
	{"AADHAAR", regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`), 0},
	{"EMAIL", regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), 0},
	{"PHONE", regexp.MustCompile(`\+\d{1,3}[\s.\-]?\d{1,4}(?:[\s.\-]?\d{2,4}){2,4}\b|\(\d{3}\)\s?\d{3}[\s.\-]\d{4}\b|\b\d{3}[.\-]\d{3}[.\-]\d{4}\b`), 0},
}

// Redactor replaces identifying entities (contract, case and licence
// numbers, PAN, Aadhaar, GST, e-mail addresses, phone numbers) with
// TYPE_xxxxxxxx placeholders before text leaves the process.
type Redactor struct {
	gen idgen.Generator
}

// NewRedactor uses gen for placeholder suffixes; nil means 8 random
// base-36 characters.
func NewRedactor(gen idgen.Generator) *Redactor {
	if gen == nil {
		gen = idgen.NanoID(8)
	}
	return &Redactor{gen: gen}
}

type span struct {
	start, end int
	typ        string
}

// Redact returns text with every entity replaced and the placeholders
// used. Identical entities share a placeholder. Overlapping matches are
// resolved in favour of the one starting first, then the longest.
func (r *Redactor) Redact(text string) (string, *Redactions) {
	var spans []span
	for _, p := range entityPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			s, e := m[2*p.group], m[2*p.group+1]
			if s >= 0 {
				spans = append(spans, span{s, e, p.typ})
			}
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	out := &Redactions{byOriginal: map[string]string{}}
	var sb strings.Builder
	last := 0
	for _, sp := range spans {
		if sp.start < last {
			continue
		}
		sb.WriteString(text[last:sp.start])
		sb.WriteString(out.placeholder(sp.typ, text[sp.start:sp.end], r.gen))
		last = sp.end
	}
	sb.WriteString(text[last:])

	pairs := make([]string, 0, 2*len(out.List))
	for _, r := range out.List {
		pairs = append(pairs, r.Placeholder, r.Original)
	}
	out.replacer = strings.NewReplacer(pairs...)
	return sb.String(), out
}

// Redactions is the placeholder table of one Redact call. It is read-only
// once Redact returns.
type Redactions struct {
	List       []Redaction
	byOriginal map[string]string
	replacer   *strings.Replacer
}

func (rs *Redactions) placeholder(typ, original string, gen idgen.Generator) string {
	key := typ + "\x00" + original
	if ph, ok := rs.byOriginal[key]; ok {
		return ph
	}
	ph := typ + "_" + gen()
	rs.byOriginal[key] = ph
	rs.List = append(rs.List, Redaction{Placeholder: ph, Original: original, Type: typ})
	return ph
}

// Len returns the number of distinct entities replaced.
func (rs *Redactions) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.List)
}

// Restore puts the original entities back into s.
func (rs *Redactions) Restore(s string) string {
	if rs.Len() == 0 || s == "" {
		return s
	}
	return rs.replacer.Replace(s)
}
