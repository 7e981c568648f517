package analysis

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/clarity/classify"
	"github.com/hazyhaar/clarity/docpipe"
	"github.com/hazyhaar/clarity/idgen"
	"github.com/hazyhaar/clarity/observability"
	"github.com/hazyhaar/clarity/segment"
)

// fakeClassifier answers with fn and remembers every clause text it saw.
type fakeClassifier struct {
	fn    func(ctx context.Context, c segment.Clause) (classify.Result, error)
	calls atomic.Int32

	mu   sync.Mutex
	seen []string
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(ctx context.Context, c segment.Clause) (classify.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.seen = append(f.seen, c.Text)
	f.mu.Unlock()
	return f.fn(ctx, c)
}

// byLabel classifies a clause with the label of the first key it contains.
func byLabel(labels map[string]string) *fakeClassifier {
	return &fakeClassifier{fn: func(_ context.Context, c segment.Clause) (classify.Result, error) {
		for k, label := range labels {
			if strings.Contains(c.Text, k) {
				sev, err := classify.ParseSeverity(label)
				if err != nil {
					return classify.Result{}, err
				}
				return classify.Result{Clause: c, Severity: sev, RiskScore: sev.DefaultRiskScore(), Rationale: "because " + k}, nil
			}
		}
		return classify.Result{Clause: c, Severity: classify.Standard, RiskScore: 0.2}, nil
	}}
}

type memRecorder struct {
	mu      sync.Mutex
	metrics []*observability.Metric
}

func (r *memRecorder) Record(m *observability.Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

func (r *memRecorder) find(name string) []*observability.Metric {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*observability.Metric
	for _, m := range r.metrics {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

func newService(c classify.Classifier, cfg Config) *Service {
	if cfg.IDGen == nil {
		cfg.IDGen = idgen.Sequence("rpt_")
	}
	return New(docpipe.New(docpipe.Config{}), c, cfg)
}

const leaseText = "1. Tenant must pay rent by the 5th. 2. Penalty of 10% per day applies if late."

func TestAnalyze_RoundTrip(t *testing.T) {
	svc := newService(byLabel(map[string]string{"Tenant": "standard", "Penalty": "high"}), Config{})

	report, err := svc.Analyze(context.Background(), TextInput("", leaseText))
	if err != nil {
		t.Fatal(err)
	}
	if report.Document != docpipe.PastedText {
		t.Errorf("document: got %q", report.Document)
	}

	want := []struct {
		clause   string
		severity classify.Severity
	}{
		{"Tenant must pay rent by the 5th.", classify.Standard},
		{"Penalty of 10% per day applies if late.", classify.High},
	}
	if len(report.Analysis) != len(want) {
		t.Fatalf("entries: got %d, want %d", len(report.Analysis), len(want))
	}
	for i, w := range want {
		got := report.Analysis[i]
		if got.Clause != w.clause || got.Severity != w.severity {
			t.Errorf("entry %d: got (%q, %s), want (%q, %s)", i, got.Clause, got.Severity, w.clause, w.severity)
		}
		if got.Index != i+1 {
			t.Errorf("entry %d: index %d", i, got.Index)
		}
	}
	if report.Analysis[1].Symbol != "🔴" {
		t.Errorf("symbol: got %q", report.Analysis[1].Symbol)
	}

	// The wire shape keeps the two documented keys.
	data, _ := json.Marshal(report)
	var wire struct {
		Document string `json:"document"`
		Analysis []struct {
			Clause   string `json:"clause"`
			Severity string `json:"severity"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}
	if wire.Analysis[0].Severity != "standard" || wire.Analysis[1].Severity != "high" {
		t.Errorf("wire severities: %+v", wire.Analysis)
	}
}

func TestAnalyze_OrderPreservedUnderConcurrency(t *testing.T) {
	// WHAT: results come back in clause order whatever the completion order.
	// WHY: classification calls finish in arbitrary order.
	var parts []string
	for i := 1; i <= 20; i++ {
		parts = append(parts, strings.Repeat("x", i)+" clause number "+string(rune('A'+i-1))+".")
	}
	text := strings.Join(parts, "\n\n")

	c := &fakeClassifier{fn: func(ctx context.Context, cl segment.Clause) (classify.Result, error) {
		time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
		return classify.Result{Clause: cl, Severity: classify.Caution, RiskScore: 0.5}, nil
	}}
	svc := newService(c, Config{Concurrency: 6})

	clauses := segment.Split(text)
	report, err := svc.Analyze(context.Background(), TextInput("order", text))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Analysis) != len(clauses) || len(clauses) != 20 {
		t.Fatalf("entries: got %d, clauses %d", len(report.Analysis), len(clauses))
	}
	for i, e := range report.Analysis {
		if e.Clause != clauses[i].Text || e.Index != clauses[i].Index {
			t.Fatalf("entry %d out of order: %q", i, e.Clause)
		}
	}
}

func TestAnalyze_PartialFailureIsolated(t *testing.T) {
	c := &fakeClassifier{fn: func(_ context.Context, cl segment.Clause) (classify.Result, error) {
		switch cl.Index {
		case 2:
			return classify.Result{}, &classify.FailedError{Clause: 2, Provider: "fake", Attempts: 3, Err: errors.New("HTTP 503")}
		case 3:
			return classify.Result{}, &classify.UnrecognizedError{Label: "maybe"}
		}
		return classify.Result{Clause: cl, Severity: classify.High, RiskScore: 0.9}, nil
	}}
	svc := newService(c, Config{})

	report, err := svc.Analyze(context.Background(), TextInput("x", "1. First term. 2. Second term. 3. Third term. 4. Fourth term."))
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Analysis) != 4 {
		t.Fatalf("entries: got %d", len(report.Analysis))
	}
	for _, i := range []int{0, 3} {
		if e := report.Analysis[i]; e.Severity != classify.High || e.Error != "" {
			t.Errorf("entry %d: %+v", i, e)
		}
	}
	if e := report.Analysis[1]; e.Error != KindFailed || e.Severity != "" || e.Symbol != "⚪" {
		t.Errorf("failed entry: %+v", e)
	}
	if e := report.Analysis[2]; e.Error != KindUnrecognized || e.Severity != "" {
		t.Errorf("unrecognized entry: %+v", e)
	}
	if report.Summary.Failed != 2 || report.Summary.High != 2 {
		t.Errorf("summary: %+v", report.Summary)
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	c := byLabel(nil)
	svc := newService(c, Config{})

	for _, text := range []string{"", "   \n\t "} {
		report, err := svc.Analyze(context.Background(), TextInput("", text))
		if err != nil {
			t.Fatalf("%q: %v", text, err)
		}
		if report.Analysis == nil || len(report.Analysis) != 0 {
			t.Fatalf("%q: analysis %v", text, report.Analysis)
		}
		data, _ := json.Marshal(report)
		if !bytes.Contains(data, []byte(`"analysis":[]`)) {
			t.Errorf("%q: json %s", text, data)
		}
	}
	if c.calls.Load() != 0 {
		t.Errorf("classifier called %d times", c.calls.Load())
	}
}

func TestAnalyze_NoInput(t *testing.T) {
	svc := newService(byLabel(nil), Config{})
	_, err := svc.Analyze(context.Background(), Input{DocumentName: "nothing"})
	if !errors.Is(err, ErrNoInputProvided) {
		t.Fatalf("got %v", err)
	}
	if ErrorKind(err) != KindNoInput {
		t.Errorf("kind: %s", ErrorKind(err))
	}
}

func TestAnalyze_UnsupportedFormat(t *testing.T) {
	c := byLabel(nil)
	svc := newService(c, Config{})

	report, err := svc.Analyze(context.Background(), Input{
		File: &File{Name: "sheet.xlsx", Data: []byte("PK\x03\x04"), Type: "xlsx"},
	})
	if !errors.Is(err, docpipe.ErrUnsupportedFormat) {
		t.Fatalf("got %v", err)
	}
	if report != nil {
		t.Error("report produced for unsupported format")
	}
	if c.calls.Load() != 0 {
		t.Error("classifier called before ingestion succeeded")
	}
}

func TestAnalyze_ExtractionError(t *testing.T) {
	c := byLabel(nil)
	svc := newService(c, Config{})
	_, err := svc.Analyze(context.Background(), Input{File: &File{Name: "broken.docx", Data: []byte("not a zip")}})
	if ErrorKind(err) != KindExtraction {
		t.Fatalf("got %v (%s)", err, ErrorKind(err))
	}
	if c.calls.Load() != 0 {
		t.Error("classifier called")
	}
}

func TestAnalyze_DocxFileWinsOverText(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, _ := zw.Create("word/document.xml")
	fw.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>1. The Employee shall not compete for five years.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>2. Salary is paid monthly.</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	zw.Close()

	svc := newService(byLabel(map[string]string{"compete": "high"}), Config{})
	text := "ignored text"
	report, err := svc.Analyze(context.Background(), Input{
		File:         &File{Name: "contract.docx", Data: buf.Bytes()},
		Text:         &text,
		DocumentName: "Employment 2026",
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Document != "Employment 2026" || report.Format != "docx" {
		t.Errorf("document: %q %q", report.Document, report.Format)
	}
	if len(report.Analysis) != 2 || report.Analysis[0].Severity != classify.High {
		t.Fatalf("analysis: %+v", report.Analysis)
	}
	if report.DocumentType != "Employment Contract" {
		t.Errorf("document type: %q", report.DocumentType)
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	started := make(chan struct{}, 8)
	c := &fakeClassifier{fn: func(ctx context.Context, _ segment.Clause) (classify.Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return classify.Result{}, ctx.Err()
	}}
	svc := newService(c, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	report, err := svc.Analyze(ctx, TextInput("", leaseText))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if report != nil {
		t.Error("report returned after cancellation")
	}
}

func TestAnalyze_RedactsBeforeClassification(t *testing.T) {
	c := byLabel(map[string]string{"Notices": "caution"})
	svc := newService(c, Config{})

	text := "1. Notices go to jane.doe@example.com within 5 days. 2. Contract No: AB-1234 governs."
	in := TextInput("redacted", text)
	in.Redact = true
	report, err := svc.Analyze(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range c.seen {
		if strings.Contains(s, "jane.doe@example.com") || strings.Contains(s, "AB-1234") {
			t.Errorf("classifier saw an identifier: %q", s)
		}
	}
	if report.Redactions != 2 {
		t.Errorf("redactions: got %d", report.Redactions)
	}
	if got := report.Analysis[0].Clause; got != "Notices go to jane.doe@example.com within 5 days." {
		t.Errorf("clause 1 not restored: %q", got)
	}
	if got := report.Analysis[1].Clause; got != "Contract No: AB-1234 governs." {
		t.Errorf("clause 2 not restored: %q", got)
	}
	if strings.Contains(report.Analysis[0].Rationale, "EMAIL_") {
		t.Errorf("rationale not restored: %q", report.Analysis[0].Rationale)
	}
}

func TestAnalyze_DocumentTypeAndAdvice(t *testing.T) {
	var mu sync.Mutex
	types := map[string]bool{}
	c := &fakeClassifier{fn: func(_ context.Context, cl segment.Clause) (classify.Result, error) {
		mu.Lock()
		types[cl.DocumentType] = true
		mu.Unlock()
		return classify.Result{
			Clause:            cl,
			Severity:          classify.Caution,
			RiskScore:         0.5,
			Recommendations:   []string{"Confirm: " + cl.Text},
			LegalImplications: "Binds " + cl.Text,
		}, nil
	}}
	svc := newService(c, Config{})

	in := TextInput("lease", "1. The Tenant sends notices to jane.doe@example.com. 2. The Landlord keeps the deposit.")
	in.Redact = true
	report, err := svc.Analyze(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	if len(types) != 1 || !types["Rental Agreement"] {
		t.Errorf("classifier saw document types %v", types)
	}
	if report.DocumentType != "Rental Agreement" {
		t.Errorf("report document type: %q", report.DocumentType)
	}
	e := report.Analysis[0]
	if len(e.Recommendations) != 1 || e.Recommendations[0] != "Confirm: The Tenant sends notices to jane.doe@example.com." {
		t.Errorf("recommendations not restored: %q", e.Recommendations)
	}
	if e.LegalImplications != "Binds The Tenant sends notices to jane.doe@example.com." {
		t.Errorf("legal implications not restored: %q", e.LegalImplications)
	}
}

func TestAnalyze_RecordsMetrics(t *testing.T) {
	rec := &memRecorder{}
	svc := newService(byLabel(map[string]string{"Penalty": "high"}), Config{Recorder: rec})

	if _, err := svc.Analyze(context.Background(), TextInput("", leaseText)); err != nil {
		t.Fatal(err)
	}
	if m := rec.find(observability.MetricClausesTotal); len(m) != 1 || m[0].Value != 2 {
		t.Errorf("clauses_total: %+v", m)
	}
	if len(rec.find(observability.MetricAnalysisDurationMs)) != 1 {
		t.Error("analysis_duration_ms not recorded")
	}
	severities := map[string]float64{}
	for _, m := range rec.find(observability.MetricSeverityCount) {
		severities[m.Labels["severity"]] = m.Value
	}
	if severities["high"] != 1 || severities["standard"] != 1 {
		t.Errorf("severity_count: %v", severities)
	}
}

func TestAnalyze_WritesOutputDir(t *testing.T) {
	dir := t.TempDir()
	svc := newService(byLabel(nil), Config{OutputDir: dir})

	report, err := svc.Analyze(context.Background(), TextInput("lease.txt", leaseText))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dir + "/lease_" + report.ID + ".json")
	if err != nil {
		t.Fatal(err)
	}
	var back Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.ID != report.ID || len(back.Analysis) != 2 {
		t.Errorf("written report: %+v", back)
	}
}

func TestAnalyze_WithClient(t *testing.T) {
	// The keyword provider behind the retrying client needs no network.
	client, err := classify.New(classify.Config{Provider: classify.ProviderKeyword})
	if err != nil {
		t.Fatal(err)
	}
	svc := newService(client, Config{})

	report, err := svc.Analyze(context.Background(), TextInput("", leaseText))
	if err != nil {
		t.Fatal(err)
	}
	if report.Provider != classify.ProviderKeyword {
		t.Errorf("provider: %q", report.Provider)
	}
	if report.Analysis[1].Severity == "" {
		t.Errorf("penalty clause unclassified: %+v", report.Analysis[1])
	}
}
