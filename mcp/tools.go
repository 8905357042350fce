package mcp

import (
	"context"
	"encoding/json"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/poiesic/pairfinder/core"
	"github.com/poiesic/pairfinder/ops"
)

func (s *Server) registerTools() {
	for _, op := range s.registry.Operations() {
		s.mcp.AddTool(&gomcp.Tool{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: op.InputSchema,
		}, s.toolHandler(op.Name))
	}
}

// toolHandler routes a tool call through the registry. Operation failures are
// reported as error results carrying the rendered error, never as protocol errors.
func (s *Server) toolHandler(name string) gomcp.ToolHandler {
	return func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		var args json.RawMessage
		if req.Params != nil {
			args = req.Params.Arguments
		}

		out, err := s.registry.Call(ctx, name, args)
		if err != nil {
			s.logger.Warn("tool failed", "tool", name, "kind", core.KindOf(err), "err", err)
			return jsonResult(ops.RenderError(err), true), nil
		}
		return jsonResult(out, false), nil
	}
}

func jsonResult(v any, isError bool) *gomcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data, _ = json.Marshal(ops.RenderError(err))
		isError = true
	}
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: string(data)}},
		IsError: isError,
	}
}
