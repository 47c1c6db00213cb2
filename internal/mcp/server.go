// Package mcp exposes the tool catalog over the MCP stdio transport.
package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sgx-labs/notevault/internal/config"
	"github.com/sgx-labs/notevault/internal/logging"
	"github.com/sgx-labs/notevault/internal/policy"
	"github.com/sgx-labs/notevault/internal/tools"
	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Version is set by the caller (main) before calling Serve.
var Version = "dev"

// mutatingTools trigger an optional git snapshot of the vault after a
// successful call.
var mutatingTools = map[string]bool{
	"create_note":   true,
	"update_note":   true,
	"delete_note":   true,
	"archive_notes": true,
}

// Serve opens the vault and runs the MCP server on stdio until the
// client disconnects.
func Serve(ctx context.Context, cfg *config.Config) error {
	ec, err := tools.NewExecContext(cfg)
	if err != nil {
		return err
	}
	defer ec.Teardown()

	registry := tools.NewRegistry(ec)
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "notevault",
		Version: Version,
	}, nil)

	for _, t := range registry.List() {
		tool := t
		server.AddTool(&mcp.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := rawArguments(req.Params.Arguments)
			if err != nil {
				return errorResult(err), nil
			}

			result, err := registry.Execute(ctx, tool.Name, args, policy.Policy{})
			if err != nil {
				return errorResult(err), nil
			}

			if cfg.Vault.GitSnapshots && mutatingTools[tool.Name] {
				snapshotVault(cfg.Vault.Path, tool.Name)
			}
			return toCallResult(result), nil
		})
	}

	logging.Infof("notevault %s serving %d tools (%s)", Version, len(registry.List()), cfg)
	return server.Run(ctx, &mcp.StdioTransport{})
}

// rawArguments normalizes the wire arguments: clients send either a
// JSON object or nothing at all.
func rawArguments(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case json.RawMessage:
		if len(v) == 0 {
			return map[string]any{}, nil
		}
		var args map[string]any
		if err := json.Unmarshal(v, &args); err != nil {
			return nil, vaulterr.Wrap(vaulterr.MCPInvalidRequest, err, "arguments must be a JSON object")
		}
		if args == nil {
			args = map[string]any{}
		}
		return args, nil
	default:
		return nil, vaulterr.New(vaulterr.MCPInvalidRequest, "arguments must be a JSON object")
	}
}

// toCallResult maps a handler result onto the wire shape: text content
// plus the machine payload under _meta.metadata.
func toCallResult(r tools.Result) *mcp.CallToolResult {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: r.Text}},
		IsError: r.IsError,
	}
	if r.Metadata != nil {
		res.Meta = mcp.Meta{"metadata": r.Metadata}
	}
	return res
}

// errorResult renders a failure as an isError tool result. The error
// code travels in the metadata so clients can branch on it.
func errorResult(err error) *mcp.CallToolResult {
	meta := map[string]any{
		"code":    string(vaulterr.CodeOf(err)),
		"message": err.Error(),
	}
	var ve *vaulterr.Error
	if errors.As(err, &ve) && ve.Metadata != nil {
		meta["metadata"] = ve.Metadata
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		Meta:    mcp.Meta{"error": meta},
		IsError: true,
	}
}
