// Package mcptransport exposes the Call Dispatcher over the Model Context
// Protocol (spec.md §4.16): exactly two tools, list_endpoints and
// call_endpoint. This is the HTTP/transport surface spec.md §1 calls an
// external collaborator — it depends on the dispatcher only through its
// public Call/Registry.Names interface.
package mcptransport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/reactivedb/reactive/internal/dispatch"
	"github.com/reactivedb/reactive/internal/registry"
)

// CallEndpointArgs is the input shape for the call_endpoint tool.
type CallEndpointArgs struct {
	Endpoint string         `json:"endpoint"`
	Kind     string         `json:"kind"`
	Args     map[string]any `json:"args,omitempty"`
}

// NewServer builds an MCP server wired to d's dispatcher and registry.
func NewServer(name, version string, d *dispatch.Dispatcher) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_endpoints",
		Description: "List every registered endpoint name known to the dispatcher.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args struct{}) (*mcp.CallToolResult, any, error) {
		names := d.Registry.Names()
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%v", names)}},
		}, names, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "call_endpoint",
		Description: "Invoke a registered endpoint by dotted name with a kind of \"read\" or \"write\" and a map of arguments.",
		InputSchema: mustSchema(CallEndpointArgs{}),
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CallEndpointArgs) (*mcp.CallToolResult, any, error) {
		kind := registry.KindRead
		if args.Kind == string(registry.KindWrite) {
			kind = registry.KindWrite
		}

		result, err := d.Call(kind, args.Endpoint, args.Args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			}, nil, nil
		}

		data, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", marshalErr)}},
				IsError: true,
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, result, nil
	})

	return server
}

// Serve runs server over stdio until the client disconnects or ctx is
// canceled.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// mustSchema builds a minimal JSON Schema object from a struct's json tags.
func mustSchema(v any) json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{"type": "string"},
			"kind":     map[string]any{"type": "string", "enum": []string{"read", "write"}},
			"args":     map[string]any{"type": "object"},
		},
		"required": []string{"endpoint", "kind"},
	})
	return data
}
