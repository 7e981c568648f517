package docpipe

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/clarity/segment"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		tag    string
		format Format
	}{
		{"pdf", FormatPDF},
		{".PDF", FormatPDF},
		{"application/pdf", FormatPDF},
		{"docx", FormatDocx},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", FormatDocx},
		{"txt", FormatTXT},
		{"text", FormatTXT},
		{"text/plain; charset=utf-8", FormatTXT},
	}
	for _, tt := range tests {
		f, err := ParseFormat(tt.tag)
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.tag, err)
			continue
		}
		if f != tt.format {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.tag, f, tt.format)
		}
	}

	for _, bad := range []string{"xlsx", "doc", "", "application/zip"} {
		_, err := ParseFormat(bad)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q): expected ErrUnsupportedFormat, got %v", bad, err)
		}
	}
}

func TestDetect(t *testing.T) {
	pipe := New(Config{})
	for name, want := range map[string]Format{"a.pdf": FormatPDF, "b.DOCX": FormatDocx, "c.txt": FormatTXT} {
		if f, err := pipe.Detect(name); err != nil || f != want {
			t.Errorf("Detect(%q) = %q, %v", name, f, err)
		}
	}
	if _, err := pipe.Detect("budget.xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for xlsx, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	pipe := New(Config{})
	pdf := buildTextPDF([]string{"hello"})

	tests := []struct {
		name, tag string
		data      []byte
		want      Format
		wantErr   bool
	}{
		{"upload", "", pdf, FormatPDF, false},
		{"upload", "", []byte("1. The Tenant shall pay."), FormatTXT, false},
		{"upload.bin", "", pdf, "", true},
		{"contract.pdf", "txt", []byte("x"), FormatTXT, false},
		{"upload", "xlsx", nil, "", true},
		{"upload", "", []byte{0x00, 0xff, 0x10, 0x80}, "", true},
	}
	for _, tt := range tests {
		got, err := pipe.Resolve(tt.name, tt.tag, tt.data)
		if (err != nil) != tt.wantErr {
			t.Errorf("Resolve(%q, %q): err = %v, wantErr %v", tt.name, tt.tag, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Resolve(%q, %q): expected ErrUnsupportedFormat, got %v", tt.name, tt.tag, err)
		}
		if got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.name, tt.tag, got, tt.want)
		}
	}
}

func TestExtractText_LineEndings(t *testing.T) {
	pipe := New(Config{})
	doc, err := pipe.ExtractBytes(context.Background(), "notes.txt", FormatTXT, []byte("Line one\r\nLine  two\rLine three\n"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.RawText != "Line one\nLine  two\nLine three\n" {
		t.Fatalf("expected passthrough with normalised line endings, got %q", doc.RawText)
	}
	if doc.Title != "Line one" {
		t.Fatalf("title = %q", doc.Title)
	}
}

func TestExtractText_Windows1252(t *testing.T) {
	pipe := New(Config{})
	// "Clause relative au dépôt" encoded in Windows-1252.
	raw := []byte("Clause relative au d\xe9p\xf4t")
	doc, err := pipe.ExtractBytes(context.Background(), "legacy.txt", FormatTXT, raw)
	if err != nil {
		t.Fatal(err)
	}
	if doc.RawText != "Clause relative au dépôt" {
		t.Fatalf("got %q", doc.RawText)
	}
}

func TestExtractText_Empty(t *testing.T) {
	pipe := New(Config{})
	doc, err := pipe.ExtractBytes(context.Background(), "empty.txt", FormatTXT, nil)
	if err != nil {
		t.Fatal(err)
	}
	if doc.RawText != "" || len(doc.Sections) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestFromText(t *testing.T) {
	doc := FromText("", "1. Pay rent.\r\n2. Keep quiet.")
	if doc.Name != PastedText {
		t.Fatalf("name = %q, want %q", doc.Name, PastedText)
	}
	if doc.RawText != "1. Pay rent.\n2. Keep quiet." {
		t.Fatalf("raw text = %q", doc.RawText)
	}
}

func TestExtractBytes_TooLarge(t *testing.T) {
	pipe := New(Config{MaxFileSize: 8})
	_, err := pipe.ExtractBytes(context.Background(), "big.txt", FormatTXT, []byte("more than eight bytes"))
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractBytes_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).ExtractBytes(ctx, "a.txt", FormatTXT, []byte("x"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractDocx(t *testing.T) {
	raw := buildDocx(t, `
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Service Agreement</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">1. The Provider </w:t></w:r><w:r><w:t>shall deliver monthly.</w:t></w:r></w:p>
<w:p><w:r><w:instrText>PAGE</w:instrText></w:r></w:p>
<w:tbl>
  <w:tr><w:tc><w:p><w:r><w:t>Fee</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>500 EUR</w:t></w:r></w:p></w:tc></w:tr>
  <w:tr><w:tc><w:p><w:r><w:t>Penalty</w:t></w:r></w:p></w:tc><w:tc><w:p/></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>2. Either party may terminate.</w:t></w:r></w:p>`)

	pipe := New(Config{})
	doc, err := pipe.ExtractBytes(context.Background(), "service.docx", FormatDocx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Service Agreement" {
		t.Fatalf("title = %q", doc.Title)
	}

	var texts []string
	for _, s := range doc.Sections {
		texts = append(texts, s.Type+":"+s.Text)
	}
	want := []string{
		"heading:Service Agreement",
		"paragraph:1. The Provider shall deliver monthly.",
		"table:Fee | 500 EUR",
		"table:Penalty",
		"paragraph:2. Either party may terminate.",
	}
	if strings.Join(texts, "\n") != strings.Join(want, "\n") {
		t.Fatalf("sections:\n got %q\nwant %q", texts, want)
	}
	if !strings.Contains(doc.RawText, "monthly.\n\nFee | 500 EUR") {
		t.Fatalf("raw text = %q", doc.RawText)
	}
}

func TestExtractDocx_NotZip(t *testing.T) {
	_, err := New(Config{}).ExtractBytes(context.Background(), "fake.docx", FormatDocx, []byte("plain text"))
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractDocx_MissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, _ := zw.Create("word/styles.xml")
	fw.Write([]byte("<styles/>"))
	zw.Close()

	_, err := New(Config{}).ExtractBytes(context.Background(), "empty.docx", FormatDocx, buf.Bytes())
	if !errors.Is(err, ErrExtraction) || !strings.Contains(err.Error(), "word/document.xml") {
		t.Fatalf("expected missing document.xml error, got %v", err)
	}
}

func TestExtract_FromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terms.txt")
	os.WriteFile(path, []byte("Section 1. Scope."), 0o644)

	doc, err := New(Config{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "terms.txt" || doc.Format != FormatTXT || doc.RawText != "Section 1. Scope." {
		t.Fatalf("unexpected doc: %+v", doc)
	}
}

func TestDocxHeadingLevel(t *testing.T) {
	tests := map[string]int{"Heading1": 1, "heading3": 3, "Titre2": 2, "Title": 1, "Subtitle": 2, "Normal": 0, "Heading9": 0}
	for style, want := range tests {
		if got := docxHeadingLevel(style); got != want {
			t.Errorf("docxHeadingLevel(%q) = %d, want %d", style, got, want)
		}
	}
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestJoinSections_PDFPages(t *testing.T) {
	pages := []Section{
		{Text: "1. The Tenant shall pay the rent and all\nutility charges\n", Type: "page"},
		{Text: "on the first day of each month.\n2. The Landlord insures the building.", Type: "page"},
		{Text: "3. This lease is governed by French law.", Type: "page"},
	}
	got := joinSections(FormatPDF, pages)
	want := "1. The Tenant shall pay the rent and all\nutility charges\non the first day of each month.\n2. The Landlord insures the building.\n\n3. This lease is governed by French law."
	if got != want {
		t.Fatalf("joined = %q\nwant %q", got, want)
	}

	clauses := segment.Split(got)
	if len(clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %d: %+v", len(clauses), clauses)
	}
	if clauses[0].Text != "The Tenant shall pay the rent and all\nutility charges\non the first day of each month." {
		t.Errorf("clause across the page break = %q", clauses[0].Text)
	}
}

func TestJoinSections_DocxParagraphs(t *testing.T) {
	got := joinSections(FormatDocx, []Section{{Text: "Rent is due"}, {Text: ""}, {Text: "monthly."}})
	if got != "Rent is due\n\nmonthly." {
		t.Fatalf("joined = %q", got)
	}
}
