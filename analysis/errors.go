package analysis

import (
	"context"
	"errors"
	"net/http"

	"github.com/hazyhaar/clarity/classify"
	"github.com/hazyhaar/clarity/docpipe"
	"github.com/hazyhaar/clarity/horosafe"
)

// ErrNoInputProvided is returned when a request carries neither a file nor
// text.
var ErrNoInputProvided = errors.New("analysis: no input provided: send a file or text")

// Error kinds reported in HTTP error bodies and report entries.
const (
	KindNoInput           = "no_input_provided"
	KindUnsupportedFormat = "unsupported_format"
	KindExtraction        = "extraction_error"
	KindUnrecognized      = "unrecognized_classification"
	KindFailed            = "classification_failed"
	KindBadRequest        = "bad_request"
	KindTooLarge          = "request_too_large"
	KindCancelled         = "cancelled"
	KindInternal          = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, ErrNoInputProvided):
		return KindNoInput
	case errors.Is(err, docpipe.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, docpipe.ErrExtraction):
		return KindExtraction
	case errors.Is(err, classify.ErrUnrecognizedClassification):
		return KindUnrecognized
	case errors.Is(err, classify.ErrClassificationFailed):
		return KindFailed
	case errors.As(err, &tooLarge), errors.Is(err, horosafe.ErrTooLarge):
		return KindTooLarge
	case errors.Is(err, errBadRequest):
		return KindBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	}
	return KindInternal
}

var errBadRequest = errors.New("bad request")

// statusFor maps a request-fatal error to an HTTP status code.
func statusFor(kind string) int {
	switch kind {
	case KindNoInput, KindExtraction, KindBadRequest:
		return http.StatusBadRequest
	case KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindCancelled:
		return 499
	}
	return http.StatusInternalServerError
}
