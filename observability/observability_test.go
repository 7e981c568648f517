package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/clarity/dbopen"
)

func TestMetricsManager_RecordAndQuery(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	mm := NewMetricsManager(db, WithBufferSize(2), WithFlushInterval(time.Hour))
	defer mm.Close()

	mm.Record(&Metric{Name: MetricClausesTotal, Value: 4, Unit: "count"})
	mm.Record(&Metric{
		Name:   MetricSeverityCount,
		Value:  2,
		Unit:   "count",
		Labels: map[string]string{"severity": "high"},
	})

	got, err := mm.Query(context.Background(), MetricSeverityCount, time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 severity metric, got %d", len(got))
	}
	if got[0].Labels["severity"] != "high" || got[0].Value != 2 {
		t.Fatalf("unexpected metric: %+v", got[0])
	}

	all, _ := mm.Query(context.Background(), "", time.Time{}, 0)
	if len(all) != 2 {
		t.Fatalf("expected 2 metrics total, got %d", len(all))
	}
}

func TestMetricsManager_CloseFlushes(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	mm := NewMetricsManager(db, WithFlushInterval(time.Hour))
	mm.Record(&Metric{Name: MetricAnalysisDurationMs, Value: 12.5, Unit: "milliseconds"})
	mm.Close()

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM metrics_timeseries`).Scan(&n)
	if n != 1 {
		t.Fatalf("expected 1 row after Close, got %d", n)
	}
}

func TestMetricsManager_FlushFailureLogged(t *testing.T) {
	db := dbopen.OpenMemory(t) // no schema: inserts fail
	var buf bytes.Buffer
	mm := NewMetricsManager(db,
		WithFlushInterval(time.Hour),
		WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	mm.Record(&Metric{Name: MetricClausesTotal, Value: 1})
	mm.Close()

	if !strings.Contains(buf.String(), "metrics flush failed") {
		t.Fatalf("expected flush failure log, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "info", "clarity").Debug("hidden")
	NewLogger(&buf, "info", "clarity").Info("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatal("debug line should be filtered at info level")
	}
	if !strings.Contains(out, `"service":"clarity"`) || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}
