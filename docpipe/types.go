// CLAUDE:SUMMARY Defines Format, Section, and Document types produced by ingestion.
package docpipe

// Format identifies a document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatTXT  Format = "txt"
)

// PastedText is the document name used when raw text is submitted without one.
const PastedText = "pasted-text"

// Section is a structural unit of a document: a PDF page, a DOCX paragraph
// or table row, or the whole of a text file.
type Section struct {
	Title    string            `json:"title,omitempty"`
	Level    int               `json:"level"` // heading level 1-6, 0 for body
	Text     string            `json:"text"`
	Type     string            `json:"type"` // heading, paragraph, table, page
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Document is the immutable result of ingesting one input.
type Document struct {
	Name     string             `json:"name"`
	Format   Format             `json:"format"`
	Title    string             `json:"title,omitempty"`
	Sections []Section          `json:"sections"`
	RawText  string             `json:"raw_text"`
	Size     int64              `json:"size"`
	Quality  *ExtractionQuality `json:"quality,omitempty"` // PDF only
}
