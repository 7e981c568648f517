// CLAUDE:SUMMARY Ingestion engine: resolves the format of an input and dispatches text extraction (pdf, docx, txt).
// Package docpipe turns an uploaded legal document into plain text.
//
// Supported formats:
//   - .pdf   per-page text via pdfcpu, ledongthuc/pdf as fallback
//   - .docx  paragraphs and table rows from word/document.xml
//   - .txt   passthrough with line endings normalised
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{})
//	doc, err := pipe.ExtractBytes(ctx, "lease.pdf", docpipe.FormatPDF, data)
//	fmt.Println(doc.Name, len(doc.RawText))
package docpipe

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// Pipeline is the document ingestion engine. Safe for concurrent use.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

const mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ParseFormat maps a type tag to a Format. Tags may be format names
// ("pdf", "docx", "txt", "text"), extensions (".pdf") or MIME types
// ("application/pdf", "text/plain; charset=utf-8").
func ParseFormat(tag string) (Format, error) {
	t := strings.ToLower(strings.TrimSpace(tag))
	if mt, _, err := mime.ParseMediaType(t); err == nil && strings.Contains(mt, "/") {
		t = mt
	}
	switch strings.TrimPrefix(t, ".") {
	case "pdf", "application/pdf":
		return FormatPDF, nil
	case "docx", mimeDocx:
		return FormatDocx, nil
	case "txt", "text", "plain", "text/plain":
		return FormatTXT, nil
	}
	return "", &UnsupportedFormatError{Tag: tag}
}

// Detect returns the document format based on the file extension.
func (p *Pipeline) Detect(name string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "", &UnsupportedFormatError{Tag: name}
	}
	return ParseFormat(ext)
}

// Resolve decides the format of an input. An explicit tag wins and is
// parsed strictly; otherwise the file extension is used; inputs without an
// extension are sniffed (PDF and DOCX magic, then valid UTF-8 text).
func (p *Pipeline) Resolve(name, tag string, data []byte) (Format, error) {
	if tag != "" {
		return ParseFormat(tag)
	}
	if filepath.Ext(name) != "" {
		return p.Detect(name)
	}

	kind, _ := filetype.Match(data)
	switch kind.Extension {
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDocx, nil
	}
	if kind == filetype.Unknown && utf8.Valid(data) && !strings.ContainsRune(string(data), 0) {
		return FormatTXT, nil
	}
	if kind.MIME.Value != "" {
		return "", &UnsupportedFormatError{Tag: kind.MIME.Value}
	}
	return "", &UnsupportedFormatError{Tag: "unknown"}
}

// Extract reads a file from disk and extracts its text.
func (p *Pipeline) Extract(ctx context.Context, path string) (*Document, error) {
	format, err := p.Detect(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ExtractionError{Name: path, Format: format, Err: err}
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, &ExtractionError{Name: path, Format: format,
			Err: fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), p.cfg.MaxFileSize)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Name: path, Format: format, Err: err}
	}
	return p.ExtractBytes(ctx, filepath.Base(path), format, data)
}

// ExtractBytes extracts text from in-memory content of the given format.
// Corrupt or oversized content yields an *ExtractionError; nothing is
// written to disk.
func (p *Pipeline) ExtractBytes(ctx context.Context, name string, format Format, data []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, &ExtractionError{Name: name, Format: format,
			Err: fmt.Errorf("content too large: %d bytes (max %d)", len(data), p.cfg.MaxFileSize)}
	}

	p.logger.DebugContext(ctx, "extracting document", "name", name, "format", format, "bytes", len(data))

	var (
		title    string
		sections []Section
		quality  *ExtractionQuality
		err      error
	)
	switch format {
	case FormatPDF:
		title, sections, quality, err = p.extractPDF(ctx, data)
	case FormatDocx:
		title, sections, err = extractDocx(data)
	case FormatTXT:
		title, sections = extractText(data)
	default:
		return nil, &UnsupportedFormatError{Tag: string(format)}
	}
	if err != nil {
		return nil, &ExtractionError{Name: name, Format: format, Err: err}
	}

	return &Document{
		Name:     name,
		Format:   format,
		Title:    title,
		Sections: sections,
		RawText:  joinSections(format, sections),
		Size:     int64(len(data)),
		Quality:  quality,
	}, nil
}

// FromText wraps already-decoded text as a Document. An empty name becomes
// PastedText.
func FromText(name, text string) *Document {
	if strings.TrimSpace(name) == "" {
		name = PastedText
	}
	title, sections := extractText([]byte(text))
	return &Document{
		Name:     name,
		Format:   FormatTXT,
		Title:    title,
		Sections: sections,
		RawText:  joinSections(FormatTXT, sections),
		Size:     int64(len(text)),
	}
}

// joinSections rebuilds the full text. Paragraphs are separated by a blank
// line so the segmenter sees them as paragraph breaks. A PDF page break is
// a paragraph break only when the page ends a sentence; otherwise the text
// runs on to the next page with a single newline.
func joinSections(format Format, sections []Section) string {
	if format == FormatTXT && len(sections) == 1 {
		return sections[0].Text
	}
	var b strings.Builder
	prev := ""
	for _, s := range sections {
		text := s.Text
		if format == FormatPDF {
			text = strings.TrimSpace(text)
		}
		if text == "" {
			continue
		}
		switch {
		case prev == "":
		case format == FormatPDF && !endsSentence(prev):
			b.WriteString("\n")
		default:
			b.WriteString("\n\n")
		}
		b.WriteString(text)
		prev = text
	}
	return b.String()
}

func endsSentence(text string) bool {
	r, _ := utf8.DecodeLastRuneInString(strings.TrimRightFunc(text, unicode.IsSpace))
	return strings.ContainsRune(".;:!?", r)
}

// SupportedFormats returns all supported format names.
func SupportedFormats() []string {
	return []string{string(FormatPDF), string(FormatDocx), string(FormatTXT)}
}
