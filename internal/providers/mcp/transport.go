package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcptransport "github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

const initializeTimeout = 30 * time.Second

// Transport connects and initializes a client. ctx bounds the lifetime of the
// connection, so it must outlive a single call.
type Transport = func(ctx context.Context, cfg ServerConfig) (*client.Client, error)

func NewTransport(t TransportType) (Transport, error) {
	switch t {
	case TransportStdio:
		return StdioTransport, nil
	case TransportHTTP:
		return HttpTransport, nil
	case TransportSSE:
		return SseTransport, nil
	}

	return nil, fmt.Errorf("unsupported transport type: %s", t)
}

func StdioTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	var env []string
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	cli, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return start(ctx, cli)
}

func HttpTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	cli, err := client.NewStreamableHttpClient(
		cfg.URL,
		mcptransport.WithHTTPHeaders(copyHeaders(cfg.Headers)),
		mcptransport.WithHTTPBasicClient(newHTTPClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP transport: %w", err)
	}
	return start(ctx, cli)
}

func SseTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	cli, err := client.NewSSEMCPClient(
		cfg.URL,
		mcptransport.WithHeaders(copyHeaders(cfg.Headers)),
		mcptransport.WithHTTPClient(newHTTPClient()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE transport: %w", err)
	}
	return start(ctx, cli)
}

// newHTTPClient returns a fresh client so servers never share connection state.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func copyHeaders(in map[string]string) map[string]string {
	headers := make(map[string]string, len(in))
	for k, v := range in {
		headers[k] = v
	}
	return headers
}

func start(ctx context.Context, cli *client.Client) (*client.Client, error) {
	if err := cli.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start client: %w", err)
	}
	if err := initialize(ctx, cli); err != nil {
		_ = cli.Close()
		return nil, err
	}
	return cli, nil
}

func initialize(ctx context.Context, cli *client.Client) error {
	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	req := mcpproto.InitializeRequest{}
	req.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	req.Params.Capabilities = mcpproto.ClientCapabilities{}
	req.Params.ClientInfo = mcpproto.Implementation{
		Name:    core.ServiceName,
		Version: core.ServiceVersion,
	}

	if _, err := cli.Initialize(initCtx, req); err != nil {
		return fmt.Errorf("failed to initialize client: %w", err)
	}
	return nil
}
