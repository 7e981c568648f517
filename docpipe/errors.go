package docpipe

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrExtraction        = errors.New("extraction failed")
)

// UnsupportedFormatError is returned when a type tag or file extension does
// not name a supported format.
type UnsupportedFormatError struct {
	Tag string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("docpipe: unsupported format %q (supported: pdf, docx, txt)", e.Tag)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// ExtractionError is returned when content of a supported format is corrupt,
// unreadable or oversized. It is terminal for the request.
type ExtractionError struct {
	Name   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("docpipe: extract %s (%s): %v", e.Name, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }
