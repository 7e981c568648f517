// CLAUDE:SUMMARY PDF text extractor: pdfcpu content streams per page, ledongthuc/pdf fallback, quality scoring.
// CLAUDE:DEPENDS docpipe/quality.go
package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	ledongpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// extractPDF returns one section per page with text, in page order.
// pdfcpu is tried first; when it parses the file but finds no text, the
// ledongthuc reader is tried before giving up.
func (p *Pipeline) extractPDF(ctx context.Context, data []byte) (string, []Section, *ExtractionQuality, error) {
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return "", nil, nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	pages := make([]string, pctx.PageCount)
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", nil, nil, err
		}
		pages[pageNr-1] = extractPageText(pctx, pageNr)
	}

	if totalChars(pages) == 0 && !p.cfg.DisablePDFFallback {
		p.logger.DebugContext(ctx, "pdfcpu found no text, trying fallback extractor", "pages", pctx.PageCount)
		if alt, err := extractPDFFallback(ctx, data); err == nil {
			pages = alt
		} else {
			p.logger.DebugContext(ctx, "pdf fallback failed", "error", err)
		}
	}

	pages = stripPageHeaders(pages)

	var sections []Section
	var title string
	for i, text := range pages {
		if text == "" {
			continue
		}
		if title == "" {
			title = firstLine(text)
		}
		sections = append(sections, Section{
			Text:     text,
			Type:     "page",
			Metadata: map[string]string{"page": strconv.Itoa(i + 1)},
		})
	}
	if len(sections) == 0 {
		return "", nil, nil, fmt.Errorf("no text content found in PDF (scanned document?)")
	}

	full := joinSections(FormatPDF, sections)
	quality := &ExtractionQuality{
		PageCount:       pctx.PageCount,
		PrintableRatio:  computePrintableRatio(full),
		WordlikeRatio:   computeWordlikeRatio(full),
		HasImageStreams: detectImageStreams(pctx),
	}
	if pctx.PageCount > 0 {
		quality.CharsPerPage = float64(len([]rune(full))) / float64(pctx.PageCount)
	}
	return title, sections, quality, nil
}

func totalChars(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(p)
	}
	return n
}

// extractPageText extracts text from a single page content stream.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// extractPDFFallback reads page text with ledongthuc/pdf.
func extractPDFFallback(ctx context.Context, data []byte) ([]string, error) {
	r, err := ledongpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	pages := make([]string, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = cleanPDFText(text)
	}
	return pages, nil
}

// detectImageStreams reports whether the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// textOpRe matches the text-showing and line-positioning operators of a
// content stream: TJ arrays, Tj / ' / " strings, Td / TD moves and T*.
var textOpRe = regexp.MustCompile(
	`\[((?:\\.|[^\]\\])*)\]\s*TJ` +
		`|\(((?:\\.|[^)\\])*)\)\s*(Tj|'|")` +
		`|(-?[\d.]+)\s+(-?[\d.]+)\s+T[dD]\b` +
		`|\bT\*`)

// pdfStringRe matches string literals inside a TJ array.
var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^)\\])*)\)|(-?[\d.]+)`)

// extractTextFromStream rebuilds the page text, keeping line breaks where
// the stream moves to a new line.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder
	newline := func() {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
	}

	for _, m := range textOpRe.FindAllSubmatch(data, -1) {
		switch {
		case m[1] != nil || bytes.HasSuffix(m[0], []byte("TJ")):
			for _, part := range pdfStringRe.FindAllSubmatch(m[1], -1) {
				if part[2] != nil {
					// Large negative kerning separates words.
					if v, err := strconv.ParseFloat(string(part[2]), 64); err == nil && v <= -200 {
						sb.WriteByte(' ')
					}
					continue
				}
				sb.WriteString(decodePDFString(part[1]))
			}
		case m[3] != nil:
			if op := string(m[3]); op == "'" || op == `"` {
				newline()
			}
			sb.WriteString(decodePDFString(m[2]))
		case m[5] != nil:
			if ty, err := strconv.ParseFloat(string(m[5]), 64); err == nil && ty != 0 {
				newline()
			} else if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		default: // T*
			newline()
		}
	}
	return cleanPDFText(sb.String())
}

// decodePDFString handles PDF literal string escapes.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// Octal escape, up to three digits (e.g. \040).
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// cleanPDFText collapses runs of spaces within lines and blank-line runs,
// and drops non-printable runes.
func cleanPDFText(text string) string {
	lines := strings.Split(normalizeLineEndings(text), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		var sb strings.Builder
		prevSpace := false
		for _, r := range line {
			switch {
			case unicode.IsSpace(r):
				if !prevSpace && sb.Len() > 0 {
					sb.WriteByte(' ')
					prevSpace = true
				}
			case unicode.IsPrint(r):
				sb.WriteRune(r)
				prevSpace = false
			}
		}
		cleaned := strings.TrimSpace(sb.String())
		if cleaned == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, cleaned)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var pageHeaderRe = regexp.MustCompile(`(?im)^\s*(page\s+\d+(\s+(of|/)\s+\d+)?|\d+\s*/\s*\d+|-\s*\d+\s*-)\s*$`)

// stripPageHeaders removes running "Page N of M" style lines.
func stripPageHeaders(pages []string) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = cleanPDFText(pageHeaderRe.ReplaceAllString(p, ""))
	}
	return out
}
