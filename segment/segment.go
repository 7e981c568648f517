// CLAUDE:SUMMARY Lexical clause segmentation: numbered/lettered markers, headings, paragraphs, then sentences as a last resort.
// Package segment splits extracted document text into ordered clauses.
//
// Boundaries, coarsest first:
//   - numbered and lettered list markers ("1.", "2)", "4.1", "(a)", "(iv)")
//   - "Article N", "Section N" and "Clause N" headings at the start of a line
//   - blank-line paragraph breaks
//   - sentence-terminal punctuation followed by a capitalised word
//
// Sentence splitting only applies to text that has none of the coarser
// boundaries, so a numbered clause is never cut into sentences.
package segment

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Clause is one unit of legal text. Index is 1-based and follows document
// order. DocumentType is never set by the splitter; callers fill it in as
// context for classification.
type Clause struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Marker       string `json:"marker,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
}

// Options tunes SplitWith.
type Options struct {
	// MinLength merges fragments shorter than this many runes into the
	// previous clause (or the next one, for the first fragment).
	// Zero keeps every fragment.
	MinLength int `json:"min_length" yaml:"min_length"`
}

// Split segments text with default options.
func Split(text string) []Clause {
	return SplitWith(text, Options{})
}

// SplitWith segments text. Empty or whitespace-only input yields an empty
// slice. Text with no detectable boundary yields a single clause holding
// the whole trimmed text.
func SplitWith(text string, opts Options) []Clause {
	text = normalize(text)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []Clause{}
	}

	paragraphs := paragraphRe.Split(stripBoilerplate(text), -1)

	var (
		frags  []fragment
		coarse = countNonEmpty(paragraphs) > 1
	)
	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		bounds := markers(p)
		if len(bounds) > 0 {
			coarse = true
		}
		frags = append(frags, cut(p, bounds)...)
	}

	if !coarse && len(frags) == 1 {
		frags = sentences(frags[0].text)
	}

	frags = mergeShort(frags, opts.MinLength)
	if len(frags) == 0 {
		return []Clause{{Index: 1, Text: trimmed}}
	}

	clauses := make([]Clause, len(frags))
	for i, f := range frags {
		clauses[i] = Clause{Index: i + 1, Text: f.text, Marker: f.marker}
	}
	return clauses
}

type fragment struct {
	text   string
	marker string
}

type boundary struct {
	start     int // first byte of the marker (or of the line holding it)
	textStart int // first byte of the clause body
	marker    string
}

var (
	paragraphRe = regexp.MustCompile(`\n[ \t]*\n`)

	// Markers recognised at the start of a line.
	lineMarkerRe = regexp.MustCompile(`^[ \t]*((?i:article|section|clause)\s+[0-9IVXivx]+(?:\.\d+)*[.:)]?|\d{1,3}(?:\.\d{1,3})+\.?|\d{1,3}[.)]|\(?[a-zA-Z]\)|\((?:[ivxIVX]{1,5}|\d{1,3})\)|[a-z]\.)(?:[ \t]*[-–—:][ \t]*|\s+|$)`)

	// Markers recognised mid-line, right after a sentence or list terminator.
	inlineMarkerRe = regexp.MustCompile(`[.;:]\s+(\d{1,3}(?:\.\d{1,3})*[.)]|\((?:[a-zA-Z]|[ivxIVX]{1,5}|\d{1,3})\))\s`)

	sentenceEndRe = regexp.MustCompile(`[.!?]["'”’)\]]?\s+`)

	// Page furniture that never belongs to a clause: page numbers and
	// copyright notices.
	furnitureRe = regexp.MustCompile(`^(?i:page\s*\d+(?:\s*(?:of|/)\s*\d+)?|-\s*\d+\s*-|©.*|(?:copyright\s*)?\(c\)\s*(?:19|20)\d{2}\b.*|copyright\s+(?:19|20)\d{2}\b.*|.*\ball\s+rights\s+reserved\.?)$`)

	// Lines that are furniture only when they stand alone: a bare number
	// can be a wrapped year, "draft" a wrapped verb.
	looseFurnitureRe = regexp.MustCompile(`^(?i:\d+|(?:strictly\s+)?confidential|draft)$`)
)

// markers returns the clause boundaries of one paragraph in offset order.
func markers(p string) []boundary {
	seen := map[int]bool{}
	var out []boundary

	var (
		offset      int
		prevEnds    = true // a paragraph start counts as a clean break
		prevHeading bool
		lastNumeric string
	)
	for _, line := range strings.SplitAfter(p, "\n") {
		heading := false
		if m := lineMarkerRe.FindStringSubmatchIndex(line); m != nil {
			marker, body := line[m[2]:m[3]], line[m[1]:]
			numeric := isNumericMarker(marker)
			switch {
			case wrappedReference(marker, body):
			case numeric && !prevEnds && !prevHeading && !follows(lastNumeric, marker) && !firstItem(marker, body):
				// "...a penalty of\n2.5 percent": a wrapped amount, not a marker.
			default:
				heading = !numeric && utf8.RuneCountInString(marker) > 3
				out = append(out, boundary{
					start:     offset,
					textStart: offset + m[1],
					marker:    marker,
				})
				seen[offset] = true
				if numeric {
					lastNumeric = marker
				}
			}
		}
		if t := strings.TrimSpace(line); t != "" {
			prevEnds, prevHeading = endsClause(t), heading
		}
		offset += len(line)
	}

	for _, m := range inlineMarkerRe.FindAllStringSubmatchIndex(p, -1) {
		start := m[2]
		if seen[start] || isLineStart(p, start) {
			continue
		}
		out = append(out, boundary{start: start, textStart: m[1], marker: p[m[2]:m[3]]})
		seen[start] = true
	}

	sortBoundaries(out)
	return out
}

// wrappedReference reports a heading word that merely starts a wrapped
// line, as in "...defined in\nSection 3 of this Lease".
func wrappedReference(marker, body string) bool {
	first, _ := utf8.DecodeRuneInString(marker)
	if !unicode.IsLetter(first) || utf8.RuneCountInString(marker) <= 3 {
		return false
	}
	next, _ := utf8.DecodeRuneInString(body)
	return unicode.IsLower(next)
}

func isNumericMarker(marker string) bool {
	return marker != "" && marker[0] >= '0' && marker[0] <= '9'
}

// endsClause reports a line ending in a sentence or list terminator.
func endsClause(line string) bool {
	r, _ := utf8.DecodeLastRuneInString(strings.TrimRightFunc(line, unicode.IsSpace))
	return strings.ContainsRune(".;:!?", r)
}

// follows reports whether next continues the numbering of prev: the next
// sibling ("4.1" then "4.2"), a first child ("4" then "4.1") or the next
// parent ("4.3" then "5").
func follows(prev, next string) bool {
	p, n := markerLevels(prev), markerLevels(next)
	if len(p) == 0 || len(n) == 0 {
		return false
	}
	switch {
	case len(n) == len(p)+1:
		return n[len(n)-1] == 1 && equalLevels(p, n[:len(p)])
	case len(n) <= len(p):
		k := len(n) - 1
		return n[k] == p[k]+1 && equalLevels(p[:k], n[:k])
	}
	return false
}

// firstItem reports a list opening such as "1. The Tenant" or "1.1 Rent",
// which may follow an unpunctuated title line.
func firstItem(marker, body string) bool {
	for _, n := range markerLevels(marker) {
		if n != 1 {
			return false
		}
	}
	next, _ := utf8.DecodeRuneInString(body)
	return markerLevels(marker) != nil && unicode.IsUpper(next)
}

func markerLevels(marker string) []int {
	marker = strings.TrimRight(marker, ".)")
	if marker == "" {
		return nil
	}
	parts := strings.Split(marker, ".")
	levels := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		levels[i] = n
	}
	return levels
}

func equalLevels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isLineStart(p string, i int) bool {
	j := strings.LastIndexByte(p[:i], '\n')
	return strings.TrimSpace(p[j+1:i]) == ""
}

func sortBoundaries(b []boundary) {
	for i := 1; i < len(b); i++ {
		for j := i; j > 0 && b[j].start < b[j-1].start; j-- {
			b[j], b[j-1] = b[j-1], b[j]
		}
	}
}

// cut slices a paragraph at its boundaries. Text before the first marker
// is kept as its own fragment.
func cut(p string, bounds []boundary) []fragment {
	var out []fragment
	add := func(s, marker string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, fragment{text: s, marker: marker})
		}
	}
	if len(bounds) == 0 {
		add(p, "")
		return out
	}
	add(p[:bounds[0].start], "")
	for i, b := range bounds {
		end := len(p)
		if i+1 < len(bounds) {
			end = bounds[i+1].start
		}
		if b.textStart > end {
			continue
		}
		add(p[b.textStart:end], strings.TrimSpace(b.marker))
	}
	return out
}

var abbreviations = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "no.": true,
	"nos.": true, "inc.": true, "ltd.": true, "co.": true, "corp.": true,
	"vs.": true, "v.": true, "e.g.": true, "i.e.": true, "etc.": true,
	"art.": true, "sec.": true, "st.": true, "para.": true, "cf.": true,
}

// sentences splits on terminal punctuation followed by a capitalised word.
func sentences(text string) []fragment {
	var out []fragment
	last := 0
	for _, m := range sentenceEndRe.FindAllStringIndex(text, -1) {
		next, _ := utf8.DecodeRuneInString(text[m[1]:])
		if !unicode.IsUpper(next) || isAbbreviation(text[:m[0]+1]) {
			continue
		}
		end := m[0] + len(strings.TrimRightFunc(text[m[0]:m[1]], unicode.IsSpace))
		if s := strings.TrimSpace(text[last:end]); s != "" {
			out = append(out, fragment{text: s})
		}
		last = m[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, fragment{text: s})
	}
	return out
}

// isAbbreviation reports whether head ends with a known abbreviation or a
// single capital initial ("J.").
func isAbbreviation(head string) bool {
	word := head[strings.LastIndexFunc(head, unicode.IsSpace)+1:]
	if abbreviations[strings.ToLower(word)] {
		return true
	}
	r, size := utf8.DecodeRuneInString(word)
	return size+1 == len(word) && word[size] == '.' && unicode.IsUpper(r)
}

func mergeShort(frags []fragment, minLen int) []fragment {
	if minLen <= 0 || len(frags) < 2 {
		return frags
	}
	var out []fragment
	var carry string
	for _, f := range frags {
		if carry != "" {
			f.text = carry + " " + f.text
			carry = ""
		}
		if utf8.RuneCountInString(f.text) >= minLen {
			out = append(out, f)
			continue
		}
		if len(out) > 0 {
			out[len(out)-1].text += " " + f.text
			continue
		}
		carry = f.text
	}
	if carry != "" {
		out = append(out, fragment{text: carry})
	}
	return out
}

// stripBoilerplate drops short page furniture lines. Page numbers and
// copyright notices always go; bare numbers, "confidential" and "draft"
// only when they do not continue the surrounding sentence.
func stripBoilerplate(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" && utf8.RuneCountInString(t) < 50 {
			if furnitureRe.MatchString(t) {
				continue
			}
			if looseFurnitureRe.MatchString(t) && standsAlone(lines, i) {
				continue
			}
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

// standsAlone reports whether lines[i] neither ends an open sentence on
// the line above nor runs into a lower-case continuation below.
func standsAlone(lines []string, i int) bool {
	if i > 0 {
		if prev := strings.TrimSpace(lines[i-1]); prev != "" && !endsClause(prev) {
			return false
		}
	}
	if i+1 < len(lines) {
		next, _ := utf8.DecodeRuneInString(strings.TrimSpace(lines[i+1]))
		if unicode.IsLower(next) {
			return false
		}
	}
	return true
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func countNonEmpty(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
