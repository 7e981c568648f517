// CLAUDE:SUMMARY clarity binary: serve (HTTP API), analyze (one-shot CLI report) and mcp (stdio MCP server).
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/clarity/analysis"
	"github.com/hazyhaar/clarity/classify"
	"github.com/hazyhaar/clarity/config"
	"github.com/hazyhaar/clarity/dbopen"
	"github.com/hazyhaar/clarity/docpipe"
	"github.com/hazyhaar/clarity/observability"
)

const version = "0.3.0"

var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "clarity",
		Short:         "Clause-by-clause risk analysis of legal documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CLARITY_CONFIG"), "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(serveCmd(), analyzeCmd(), mcpCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "clarity:", err)
		os.Exit(1)
	}
}

// app is the wired service graph shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	ingest  *docpipe.Pipeline
	client  *classify.Client
	service *analysis.Service

	metricsDB *sql.DB
	metrics   *observability.MetricsManager
}

// newApp loads the configuration and wires the services. Logs go to w.
func newApp(w io.Writer) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := observability.NewLogger(w, cfg.LogLevel, "clarity")
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	var rec observability.Recorder = observability.Nop{}
	if cfg.MetricsDB != "" {
		db, err := dbopen.Open(cfg.MetricsDB, dbopen.WithMkdirAll(), dbopen.WithSchema(observability.Schema))
		if err != nil {
			return nil, fmt.Errorf("metrics db: %w", err)
		}
		a.metricsDB = db
		a.metrics = observability.NewMetricsManager(db, observability.WithLogger(logger))
		rec = a.metrics
	}

	cfg.Ingest.Logger = logger
	cfg.Classifier.Logger = logger
	cfg.Classifier.Recorder = rec
	cfg.Analysis.Logger = logger
	cfg.Analysis.Recorder = rec

	a.client, err = classify.New(cfg.Classifier)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ingest = docpipe.New(cfg.Ingest)
	a.service = analysis.New(a.ingest, a.client, cfg.Analysis)

	logger.Debug("clarity configured",
		"provider", cfg.Classifier.Provider, "model", cfg.Classifier.Model,
		"concurrency", cfg.Analysis.Concurrency, "metrics_db", cfg.MetricsDB)
	return a, nil
}

// Close flushes metrics and closes the metrics database.
func (a *app) Close() {
	if a.metrics != nil {
		a.metrics.Close()
	}
	if a.metricsDB != nil {
		a.metricsDB.Close()
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Listen, err)
	}
	if a.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, a.cfg.MaxConns)
	}

	srv := &http.Server{
		Handler:           a.service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// One request classifies every clause of a document.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", ln.Addr().String(), "provider", a.client.Name(), "version", version)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("shutdown", "error", err)
	}
	a.logger.Info("server stopped")
	return nil
}

func analyzeCmd() *cobra.Command {
	var (
		asJSON  bool
		outDir  string
		typeTag string
		name    string
		redact  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Analyse one document and print the report",
		Long:  "Analyse a pdf, docx or txt file, or text read from stdin when the argument is '-'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			if in.File != nil {
				in.File.Type = typeTag
			}
			if name != "" {
				in.DocumentName = name
			}
			in.Redact = redact

			report, err := a.service.Analyze(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("%s: %w", analysis.ErrorKind(err), err)
			}
			if outDir != "" {
				path, err := analysis.WriteReport(outDir, report)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "report written to", path)
			}
			if asJSON {
				return writeReportJSON(cmd.OutOrStdout(), report)
			}
			renderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVar(&outDir, "out", "", "also write the JSON report into this directory")
	cmd.Flags().StringVar(&typeTag, "type", "", "document type tag (pdf, docx, txt), detected when empty")
	cmd.Flags().StringVar(&name, "name", "", "document name shown in the report")
	cmd.Flags().BoolVar(&redact, "redact", false, "mask identifiers before classification")
	return cmd
}

// readInput reads a file argument, or text from stdin for "-".
func readInput(arg string, stdin io.Reader) (analysis.Input, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return analysis.Input{}, fmt.Errorf("read stdin: %w", err)
		}
		return analysis.TextInput("", string(data)), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return analysis.Input{}, fmt.Errorf("read %s: %w", arg, err)
	}
	return analysis.Input{File: &analysis.File{Name: filepath.Base(arg), Data: data}}, nil
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries the protocol.
			a, err := newApp(os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcp.NewServer(&mcp.Implementation{Name: "clarity", Version: version}, nil)
			a.ingest.RegisterMCP(srv)
			a.service.RegisterMCP(srv)
			a.logger.Info("mcp server starting", "transport", "stdio")
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
