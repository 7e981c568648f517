package docpipe

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestExtractPDF_PagesInOrder(t *testing.T) {
	raw := buildTextPDF(
		[]string{"RESIDENTIAL LEASE", "1. Tenant must pay rent by the 5th.", "Page 1 of 2"},
		[]string{"2. Penalty of 10% per day applies if late.", "Page 2 of 2"},
	)

	pipe := New(Config{})
	doc, err := pipe.ExtractBytes(context.Background(), "lease.pdf", FormatPDF, raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if doc.Quality == nil || doc.Quality.PageCount != 2 {
		t.Fatalf("expected quality for 2 pages, got %+v", doc.Quality)
	}
	if len(doc.Sections) != 2 || doc.Sections[1].Metadata["page"] != "2" {
		t.Fatalf("expected 2 page sections, got %+v", doc.Sections)
	}

	first := strings.Index(doc.RawText, "Tenant must pay")
	second := strings.Index(doc.RawText, "Penalty of 10%")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("page text missing or out of order: %q", doc.RawText)
	}
	if strings.Contains(doc.RawText, "Page 1 of 2") {
		t.Errorf("running page header not removed: %q", doc.RawText)
	}
	if !strings.Contains(doc.RawText, "5th.\n\n2. Penalty") {
		t.Errorf("expected blank line between pages: %q", doc.RawText)
	}
	if doc.Title != "RESIDENTIAL LEASE" {
		t.Errorf("title = %q", doc.Title)
	}
}

func TestExtractPDF_Corrupt(t *testing.T) {
	pipe := New(Config{})
	_, err := pipe.ExtractBytes(context.Background(), "broken.pdf", FormatPDF, []byte("%PDF-1.4\nthis is not a pdf"))
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Name != "broken.pdf" || ee.Format != FormatPDF {
		t.Fatalf("expected *ExtractionError with name and format, got %#v", err)
	}
}

func TestExtractPDF_ImageOnly(t *testing.T) {
	pipe := New(Config{DisablePDFFallback: true})
	_, err := pipe.ExtractBytes(context.Background(), "scan.pdf", FormatPDF, buildImageOnlyPDF())
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("image-only PDF should fail extraction, got %v", err)
	}
}

func TestExtractTextFromStream(t *testing.T) {
	stream := []byte("BT /F1 12 Tf 72 720 Td (Article 1) Tj 0 -14 Td (The Tenant\\047s deposit) Tj T* [(non)-20(refundable)-300(fee)] TJ (next line) ' ET")
	got := extractTextFromStream(stream)
	want := "Article 1\nThe Tenant's deposit\nnonrefundable fee\nnext line"
	if got != want {
		t.Fatalf("extractTextFromStream:\n got %q\nwant %q", got, want)
	}
}

func TestDecodePDFString(t *testing.T) {
	tests := map[string]string{
		`plain`:           "plain",
		`a\(b\)c`:         "a(b)c",
		`tab\there`:       "tab\there",
		`sp\040ace`:       "sp ace",
		`back\\slash`:     `back\slash`,
		`unknown\qescape`: "unknownqescape",
	}
	for in, want := range tests {
		if got := decodePDFString([]byte(in)); got != want {
			t.Errorf("decodePDFString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripPageHeaders(t *testing.T) {
	pages := stripPageHeaders([]string{"Clause text.\nPage 3 of 9", "- 4 -\nMore text.\n4/9"})
	if pages[0] != "Clause text." || pages[1] != "More text." {
		t.Fatalf("unexpected pages: %q", pages)
	}
}

// --- PDF test helpers ---

// buildTextPDF creates a valid uncompressed PDF with one page per argument,
// each line drawn with its own Td move.
func buildTextPDF(pages ...[]string) []byte {
	n := len(pages)
	// Objects: 1 catalog, 2 pages, 3 font, then per page: page obj + content obj.
	total := 3 + 2*n
	offsets := make([]int, total+1)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	var kids []string
	for i := 0; i < n; i++ {
		kids = append(kids, strconv.Itoa(4+2*i)+" 0 R")
	}
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [" + strings.Join(kids, " ") + "] /Count " + strconv.Itoa(n) + " >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	for i, lines := range pages {
		pageObj, contentObj := 4+2*i, 5+2*i

		var s strings.Builder
		s.WriteString("BT\n/F1 12 Tf\n72 720 Td\n")
		for j, line := range lines {
			if j > 0 {
				s.WriteString("0 -14 Td\n")
			}
			esc := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
			s.WriteString("(" + esc + ") Tj\n")
		}
		s.WriteString("ET")
		stream := s.String()

		offsets[pageObj] = b.Len()
		b.WriteString(strconv.Itoa(pageObj) + " 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents " +
			strconv.Itoa(contentObj) + " 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n")

		offsets[contentObj] = b.Len()
		b.WriteString(strconv.Itoa(contentObj) + " 0 obj\n<< /Length " + strconv.Itoa(len(stream)) + " >>\nstream\n")
		b.WriteString(stream)
		b.WriteString("\nendstream\nendobj\n")
	}

	writeXref(&b, offsets)
	return []byte(b.String())
}

func buildImageOnlyPDF() []byte {
	imgData := "\xff\xd8\xff\xe0"
	drawStream := "q 100 0 0 100 72 692 cm /Im1 Do Q"
	offsets := make([]int, 6)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << /Im1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")
	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length " +
		strconv.Itoa(len(imgData)) + " >>\nstream\n" + imgData + "\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Length " + strconv.Itoa(len(drawStream)) + " >>\nstream\n" + drawStream + "\nendstream\nendobj\n")

	writeXref(&b, offsets)
	return []byte(b.String())
}

func writeXref(b *strings.Builder, offsets []int) {
	size := len(offsets)
	xrefOffset := b.Len()
	b.WriteString("xref\n0 " + strconv.Itoa(size) + "\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		off := strconv.Itoa(offsets[i])
		b.WriteString(strings.Repeat("0", 10-len(off)) + off + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size " + strconv.Itoa(size) + " /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")
}
