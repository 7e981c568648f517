// CLAUDE:SUMMARY Analysis pipeline: ingest → (redact) → segment → concurrent classify → ordered report, plus HTTP and MCP surfaces.
// Package analysis runs one document through ingestion, segmentation and
// classification and assembles the per-clause risk report.
//
// Request-fatal errors (no input, unsupported format, extraction failure)
// abort before any classification call. Clause-level failures are recorded
// in the report and never abort sibling clauses.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/clarity/classify"
	"github.com/hazyhaar/clarity/docpipe"
	"github.com/hazyhaar/clarity/idgen"
	"github.com/hazyhaar/clarity/kit"
	"github.com/hazyhaar/clarity/observability"
	"github.com/hazyhaar/clarity/segment"
	"github.com/hazyhaar/clarity/shield"
)

// Config configures the analysis service.
type Config struct {
	// Concurrency bounds classification calls in flight for one request.
	// The classifier Client enforces its own process-wide bound. Default: 4.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Segment tunes clause splitting.
	Segment segment.Options `json:"segment" yaml:"segment"`

	// Redact replaces identifying entities before classification for every
	// request, in addition to requests asking for it.
	Redact bool `json:"redact" yaml:"redact"`

	// OutputDir, when set, receives a JSON copy of every report.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// MaxUploadBytes caps HTTP request bodies. Default: 50 MB.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// ToolTimeout bounds one MCP tool call. Default: 10m.
	ToolTimeout time.Duration `json:"tool_timeout" yaml:"tool_timeout"`

	// RateLimit guards the /api routes of Handler.
	RateLimit shield.RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	IDGen    idgen.Generator        `json:"-" yaml:"-"`
	Now      func() time.Time       `json:"-" yaml:"-"`
	Recorder observability.Recorder `json:"-" yaml:"-"`
	Logger   *slog.Logger           `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 50 << 20
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 10 * time.Minute
	}
	if c.IDGen == nil {
		c.IDGen = idgen.Report
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Recorder == nil {
		c.Recorder = observability.Nop{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Service runs analyses. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	cfg        Config
	ingest     *docpipe.Pipeline
	classifier classify.Classifier
	redactor   *Redactor
}

// New builds a Service. The classifier is shared by every request; pass a
// *classify.Client to get retries and the global call bound.
func New(ingest *docpipe.Pipeline, classifier classify.Classifier, cfg Config) *Service {
	cfg.defaults()
	return &Service{
		cfg:        cfg,
		ingest:     ingest,
		classifier: classifier,
		redactor:   NewRedactor(nil),
	}
}

// File is an uploaded document.
type File struct {
	Name string
	Data []byte
	// Type is an optional type tag or content type; empty means detect
	// from the name and content.
	Type string
}

// Input is one analysis request. File wins when both File and Text are
// set. Text is a pointer so that an explicitly empty submission (a valid
// document with no clauses) is distinct from a missing one.
type Input struct {
	File         *File
	Text         *string
	DocumentName string
	Redact       bool
}

// TextInput is shorthand for an Input carrying pasted text.
func TextInput(name, text string) Input {
	return Input{Text: &text, DocumentName: name}
}

// Analyze runs the pipeline for one input.
func (s *Service) Analyze(ctx context.Context, in Input) (*Report, error) {
	start := s.cfg.Now()
	logger := shield.GetLogger(ctx)

	doc, err := s.load(ctx, in)
	if err != nil {
		logger.WarnContext(ctx, "ingest failed", "document", kit.GetDocument(ctx), "error", err, "kind", ErrorKind(err))
		return nil, err
	}

	text := doc.RawText
	var redactions *Redactions
	if in.Redact || s.cfg.Redact {
		text, redactions = s.redactor.Redact(text)
	}

	docType := DetectDocumentType(doc.RawText)
	clauses := segment.SplitWith(text, s.cfg.Segment)
	for i := range clauses {
		clauses[i].DocumentType = docType
	}
	logger.InfoContext(ctx, "document segmented",
		"document", doc.Name, "format", doc.Format, "type", docType,
		"clauses", len(clauses), "redactions", redactions.Len())

	entries, err := s.classifyAll(ctx, clauses, redactions)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:           s.cfg.IDGen(),
		Document:     doc.Name,
		DocumentType: docType,
		Format:       string(doc.Format),
		Provider:     s.classifier.Name(),
		GeneratedAt:  s.cfg.Now().UTC(),
		Analysis:     entries,
		Summary:      Summarize(entries),
		Redactions:   redactions.Len(),
	}
	s.recordReport(report, doc.Size, s.cfg.Now().Sub(start))

	if s.cfg.OutputDir != "" {
		if _, err := WriteReport(s.cfg.OutputDir, report); err != nil {
			logger.ErrorContext(ctx, "write report", "error", err, "report", report.ID)
		}
	}

	logger.InfoContext(ctx, "analysis complete",
		"report", report.ID, "document", report.Document,
		"high", report.Summary.High, "caution", report.Summary.Caution,
		"standard", report.Summary.Standard, "failed", report.Summary.Failed)
	return report, nil
}

func (s *Service) load(ctx context.Context, in Input) (*docpipe.Document, error) {
	switch {
	case in.File != nil:
		name := in.File.Name
		if in.DocumentName != "" && name == "" {
			name = in.DocumentName
		}
		format, err := s.ingest.Resolve(name, in.File.Type, in.File.Data)
		if err != nil {
			return nil, err
		}
		doc, err := s.ingest.ExtractBytes(ctx, name, format, in.File.Data)
		if err != nil {
			return nil, err
		}
		if in.DocumentName != "" {
			doc.Name = in.DocumentName
		}
		return doc, nil
	case in.Text != nil:
		return docpipe.FromText(in.DocumentName, *in.Text), nil
	}
	return nil, ErrNoInputProvided
}

// classifyAll classifies clauses concurrently and returns one entry per
// clause in clause order. Only cancellation of ctx aborts the batch.
func (s *Service) classifyAll(ctx context.Context, clauses []segment.Clause, redactions *Redactions) ([]Entry, error) {
	entries := make([]Entry, len(clauses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, cl := range clauses {
		g.Go(func() error {
			res, err := s.classifier.Classify(gctx, cl)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			entries[i] = entryFor(cl, res, err, redactions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("analysis: classify: %w", err)
	}
	return entries, nil
}

func entryFor(cl segment.Clause, res classify.Result, err error, redactions *Redactions) Entry {
	e := Entry{
		Index:  cl.Index,
		Clause: redactions.Restore(cl.Text),
	}
	if err != nil {
		e.Symbol = classify.Unrecognized.Symbol()
		e.Error = KindFailed
		if ErrorKind(err) == KindUnrecognized {
			e.Error = KindUnrecognized
		}
		e.Detail = redactions.Restore(err.Error())
		return e
	}
	if !res.Severity.Valid() {
		e.Symbol = classify.Unrecognized.Symbol()
		e.Error = KindUnrecognized
		return e
	}
	e.Severity = res.Severity
	e.Symbol = res.Severity.Symbol()
	e.RiskScore = res.RiskScore
	e.Category = res.Category
	e.Rationale = redactions.Restore(res.Rationale)
	e.LegalImplications = redactions.Restore(res.LegalImplications)
	for _, rec := range res.Recommendations {
		e.Recommendations = append(e.Recommendations, redactions.Restore(rec))
	}
	e.Injection = res.Injection
	return e
}

func (s *Service) recordReport(r *Report, size int64, elapsed time.Duration) {
	rec := s.cfg.Recorder
	labels := map[string]string{"provider": r.Provider, "format": r.Format}
	rec.Record(&observability.Metric{Name: observability.MetricAnalysisDurationMs, Value: float64(elapsed.Milliseconds()), Unit: "milliseconds", Labels: labels})
	rec.Record(&observability.Metric{Name: observability.MetricClausesTotal, Value: float64(len(r.Analysis)), Unit: "count", Labels: labels})
	rec.Record(&observability.Metric{Name: observability.MetricIngestBytes, Value: float64(size), Unit: "bytes", Labels: labels})
	for sev, n := range map[classify.Severity]int{
		classify.High:         r.Summary.High,
		classify.Caution:      r.Summary.Caution,
		classify.Standard:     r.Summary.Standard,
		classify.Unrecognized: r.Summary.Failed,
	} {
		if n > 0 {
			rec.Record(&observability.Metric{Name: observability.MetricSeverityCount, Value: float64(n), Unit: "count",
				Labels: map[string]string{"severity": string(sev)}})
		}
	}
}
