package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/clarity/classify"
	"github.com/hazyhaar/clarity/docpipe"
	"github.com/hazyhaar/clarity/horosafe"
	"github.com/hazyhaar/clarity/kit"
	"github.com/hazyhaar/clarity/shield"
)

// multipartMemory is the part of a multipart upload kept in memory; the
// rest spills to temporary files.
const multipartMemory = 32 << 20

// textRequest is the body of POST /api/analyze-text.
type textRequest struct {
	Text         *string `json:"text"`
	DocumentName string  `json:"document_name"`
	Redact       bool    `json:"redact"`
}

// Handler returns the HTTP API:
//
//	POST /api/analyze       multipart: file and/or text, document_name, type, redact
//	POST /api/analyze-text  JSON: {"text", "document_name", "redact"}
//	GET  /api/formats
//	GET  /health
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.APIStack(shield.StackConfig{
		MaxBodyBytes: s.cfg.MaxUploadBytes,
		RateLimit:    s.cfg.RateLimit,
	}) {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze-text", s.handleAnalyzeText)
		r.Get("/formats", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"formats": docpipe.SupportedFormats()})
		})
	})
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "ok", "classifier": s.classifier.Name()}
	if c, ok := s.classifier.(interface{ Breaker() *classify.Breaker }); ok && c.Breaker() != nil {
		body["breaker"] = c.Breaker().State().String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	err := r.ParseMultipartForm(multipartMemory)
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			s.fail(w, r, badRequest(err))
			return
		}
	case err != nil:
		s.fail(w, r, badRequest(err))
		return
	default:
		defer r.MultipartForm.RemoveAll()
	}

	in := Input{
		DocumentName: r.FormValue("document_name"),
		Redact:       formBool(r.FormValue("redact")),
	}
	if vals := r.PostForm["text"]; len(vals) > 0 {
		in.Text = &vals[0]
	}

	if r.MultipartForm != nil {
		file, err := s.uploadedFile(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		in.File = file
	}

	s.analyze(w, r, in)
}

// uploadedFile reads the "file" part, or returns nil when there is none.
func (s *Service) uploadedFile(r *http.Request) (*File, error) {
	f, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, badRequest(err)
	}
	defer f.Close()

	data, err := horosafe.LimitedReadAll(f, s.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	tag := r.FormValue("type")
	if tag == "" {
		tag = uploadType(hdr.Header.Get("Content-Type"))
	}
	return &File{Name: hdr.Filename, Data: data, Type: tag}, nil
}

func (s *Service) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	s.analyze(w, r, Input{Text: req.Text, DocumentName: req.DocumentName, Redact: req.Redact})
}

func (s *Service) analyze(w http.ResponseWriter, r *http.Request, in Input) {
	ctx := r.Context()
	if in.File != nil {
		ctx = kit.WithDocument(ctx, in.File.Name)
	} else {
		ctx = kit.WithDocument(ctx, in.DocumentName)
	}
	report, err := s.Analyze(ctx, in)
	if err != nil {
		s.fail(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := ErrorKind(err)
	code := statusFor(kind)
	if code >= http.StatusInternalServerError {
		shield.GetLogger(r.Context()).Error("analysis failed",
			"document", kit.GetDocument(r.Context()), "error", err, "kind", kind)
	}
	writeError(w, code, kind, err)
}

// uploadType keeps a part's Content-Type as a type tag unless it is the
// generic one browsers and curl send for any file.
func uploadType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil || mt == "application/octet-stream" {
		return ""
	}
	return mt
}

func formBool(v string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(v))
	return b || strings.EqualFold(strings.TrimSpace(v), "on")
}

func badRequest(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind string, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error(), "kind": kind})
}
