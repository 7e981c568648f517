// CLAUDE:SUMMARY Configuration struct and defaults for document ingestion.
package docpipe

import "log/slog"

// Config configures the ingestion pipeline.
type Config struct {
	// MaxFileSize is the largest input accepted (default: 50 MB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`

	// DisablePDFFallback turns off the secondary PDF extractor used when
	// pdfcpu yields no text.
	DisablePDFFallback bool `json:"disable_pdf_fallback" yaml:"disable_pdf_fallback"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 50 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
