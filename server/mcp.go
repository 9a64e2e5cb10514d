package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the bridge tools on an MCP server.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerTool(srv, &mcp.Tool{
		Name:        "invert_image",
		Description: "Invert the RGB channels of a base64 image (optionally a data URL). Alpha is preserved and the result is lossless.",
		InputSchema: inputSchema(map[string]any{
			"data":          map[string]any{"type": "string", "description": "Base64 image, with or without a data:image/...;base64, prefix"},
			"format":        map[string]any{"type": "string", "description": "Declared input format (png, jpeg, gif, webp, bmp, tiff)"},
			"output_format": map[string]any{"type": "string", "description": "png (default), bmp or tiff"},
		}, []string{"data"}),
	}, func(_ context.Context, args json.RawMessage) (any, error) {
		var req ImageRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, err
		}
		return s.InvertImage(req)
	})

	s.registerTool(srv, &mcp.Tool{
		Name:        "probe_capabilities",
		Description: "Report which host API tiers a described Office environment offers and which strategies an inversion run would try, in order.",
		InputSchema: inputSchema(map[string]any{
			"host":         map[string]any{"type": "string", "description": "Word, PowerPoint, Excel, OneNote or Outlook"},
			"requirements": map[string]any{"type": "object", "description": "Requirement set name to highest supported version, e.g. {\"PowerPointApi\": \"1.10\"}"},
			"source":       map[string]any{"type": "string", "enum": []string{"selection", "clipboard"}},
		}, []string{"host"}),
	}, func(_ context.Context, args json.RawMessage) (any, error) {
		var req CapabilitiesRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, err
		}
		return s.Capabilities(req), nil
	})

	s.registerTool(srv, &mcp.Tool{
		Name:        "invert_selection",
		Description: "Run the full inversion pipeline against a described document selection and return the result with the writes to apply.",
		InputSchema: inputSchema(map[string]any{
			"host":         map[string]any{"type": "string"},
			"requirements": map[string]any{"type": "object"},
			"source":       map[string]any{"type": "string", "enum": []string{"selection", "clipboard"}},
			"shapes": map[string]any{"type": "array", "items": map[string]any{
				"type":       "object",
				"properties": map[string]any{"id": map[string]any{"type": "string"}, "data": map[string]any{"type": "string"}},
			}},
			"pictures":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"selection": map[string]any{"type": "string"},
			"clipboard": map[string]any{"type": "array", "items": map[string]any{
				"type":       "object",
				"properties": map[string]any{"type": map[string]any{"type": "string"}, "data": map[string]any{"type": "string"}},
			}},
		}, []string{"host"}),
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req InvertRequest
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, err
		}
		return s.Invert(ctx, req)
	})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// registerTool adds a tool whose result is returned as JSON text. Handler errors
// become tool errors rather than protocol errors.
func (s *Server) registerTool(srv *mcp.Server, tool *mcp.Tool, fn func(context.Context, json.RawMessage) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := fn(ctx, req.Params.Arguments)
		if err != nil {
			s.logger.Warn("mcp tool failed", "tool", tool.Name, "error", err)
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("%s: %w", tool.Name, err))
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
