package analysis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/clarity/horosafe"
	"github.com/hazyhaar/clarity/kit"
)

// RegisterMCP registers the analysis tools on an MCP server. Each tool
// runs through kit.Logging, so MCP calls are logged like HTTP requests,
// and is bounded by Config.ToolTimeout.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAnalyzeTextTool(srv)
	s.registerAnalyzeFileTool(srv)
}

type analyzeTextReq struct {
	Text         *string `json:"text"`
	DocumentName string  `json:"document_name"`
	Redact       bool    `json:"redact"`
}

func (s *Service) registerAnalyzeTextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "analyze_text",
		Description: "Split legal text into clauses and rate each clause high, caution or standard risk.",
		InputSchema: kit.InputSchema(map[string]any{
			"text":          map[string]any{"type": "string", "description": "Document text"},
			"document_name": map[string]any{"type": "string", "description": "Name reported back in the analysis"},
			"redact":        map[string]any{"type": "boolean", "description": "Mask identifiers before they reach the classifier"},
		}, "text"),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeTextReq)
		return s.Analyze(ctx, Input{
			Text:         r.Text,
			DocumentName: r.DocumentName,
			Redact:       r.Redact,
		})
	}

	decode := kit.DecodeJSONWith(func(ctx context.Context, r *analyzeTextReq) context.Context {
		return kit.WithDocument(ctx, r.DocumentName)
	})
	kit.RegisterMCPTool(srv, tool, s.toolMiddleware(tool.Name)(endpoint), decode)
}

func (s *Service) toolMiddleware(name string) kit.Middleware {
	return kit.Chain(
		kit.Logging(s.cfg.Logger, name),
		kit.Timeout(s.cfg.ToolTimeout),
	)
}

type analyzeFileReq struct {
	Path         string `json:"path"`
	Content      string `json:"content_base64"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	DocumentName string `json:"document_name"`
	Redact       bool   `json:"redact"`
}

func (s *Service) registerAnalyzeFileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "analyze_file",
		Description: "Analyse a pdf, docx or txt document given by path or as base64 content.",
		InputSchema: kit.InputSchema(map[string]any{
			"path":           map[string]any{"type": "string", "description": "File path readable by the server"},
			"content_base64": map[string]any{"type": "string", "description": "File content, base64 encoded"},
			"name":           map[string]any{"type": "string", "description": "File name for content_base64, used to detect the format"},
			"type":           map[string]any{"type": "string", "description": "Explicit type tag: pdf, docx, txt or a MIME type"},
			"document_name":  map[string]any{"type": "string", "description": "Name reported back in the analysis"},
			"redact":         map[string]any{"type": "boolean"},
		}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*analyzeFileReq)
		f, err := r.file(s.cfg.MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		return s.Analyze(ctx, Input{
			File:         f,
			DocumentName: r.DocumentName,
			Redact:       r.Redact,
		})
	}

	decode := kit.DecodeJSONWith(func(ctx context.Context, r *analyzeFileReq) context.Context {
		return kit.WithDocument(ctx, r.documentName())
	})
	kit.RegisterMCPTool(srv, tool, s.toolMiddleware(tool.Name)(endpoint), decode)
}

func (r *analyzeFileReq) documentName() string {
	switch {
	case r.DocumentName != "":
		return r.DocumentName
	case r.Path != "":
		return filepath.Base(r.Path)
	}
	return r.Name
}

// file loads the document, reading at most maxBytes from a path.
func (r *analyzeFileReq) file(maxBytes int64) (*File, error) {
	switch {
	case r.Path != "":
		f, err := os.Open(r.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.Path, err)
		}
		defer f.Close()
		data, err := horosafe.LimitedReadAll(f, maxBytes)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.Path, err)
		}
		return &File{Name: filepath.Base(r.Path), Data: data, Type: r.Type}, nil
	case r.Content != "":
		data, err := base64.StdEncoding.DecodeString(r.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: content_base64: %v", errBadRequest, err)
		}
		return &File{Name: r.Name, Data: data, Type: r.Type}, nil
	}
	return nil, errors.Join(ErrNoInputProvided, errors.New("path or content_base64 is required"))
}
