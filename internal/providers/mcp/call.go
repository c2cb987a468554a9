package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
)

// callText runs a tool and joins its text content.
func callText(ctx context.Context, c Caller, name string, args map[string]any) (string, error) {
	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	var sb strings.Builder
	for _, content := range res.Content {
		if text, ok := content.(mcpproto.TextContent); ok {
			sb.WriteString(text.Text + "\n")
		} else if textPtr, ok := content.(*mcpproto.TextContent); ok {
			sb.WriteString(textPtr.Text + "\n")
		}
	}
	output := strings.TrimSpace(sb.String())

	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, output)
	}
	return output, nil
}
