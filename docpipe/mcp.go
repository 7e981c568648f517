package docpipe

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/clarity/kit"
)

// RegisterMCP registers the ingestion tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerExtractTool(srv)
	p.registerDetectTool(srv)
	p.registerFormatsTool(srv)
}

type extractReq struct {
	Path string `json:"path"`
	Text string `json:"text"`
	Name string `json:"name"`
}

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ingest_extract",
		Description: "Extract plain text from a legal document (pdf, docx, txt) on disk, or wrap pasted text.",
		InputSchema: kit.InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to extract"},
			"text": map[string]any{"type": "string", "description": "Raw text, used when no path is given"},
			"name": map[string]any{"type": "string", "description": "Document name for raw text"},
		}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*extractReq)
		switch {
		case r.Path != "":
			return p.Extract(ctx, r.Path)
		case r.Text != "":
			return FromText(r.Name, r.Text), nil
		}
		return nil, errors.New("path or text is required")
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[extractReq]())
}

type detectReq struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

func (p *Pipeline) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ingest_detect",
		Description: "Resolve the document format from a type tag or a file extension.",
		InputSchema: kit.InputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File name or path"},
			"type": map[string]any{"type": "string", "description": "Explicit type tag or MIME type"},
		}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*detectReq)
		var (
			format Format
			err    error
		)
		if r.Type != "" {
			format, err = ParseFormat(r.Type)
		} else {
			format, err = p.Detect(r.Path)
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"format": string(format)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[detectReq]())
}

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ingest_formats",
		Description: "List the supported document formats.",
		InputSchema: kit.InputSchema(map[string]any{}),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": SupportedFormats()}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.NoArgs)
}
