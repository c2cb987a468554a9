package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
	"github.com/Alpha200/ha-ai-tasker/pkg/retry"
)

type Timeouts struct {
	Connect  time.Duration
	ToolCall time.Duration
}

func NewDefaultTimeouts() *Timeouts {
	return &Timeouts{
		Connect:  30 * time.Second,
		ToolCall: 30 * time.Second,
	}
}

// Caller invokes a tool. *ManagedClient satisfies it.
type Caller interface {
	CallTool(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error)
}

// Service keeps the configured MCP servers connected and reconnects lazily
// when a call finds a server missing.
type Service struct {
	servers  map[string]ServerConfig
	pool     ConnectionPool
	timeouts *Timeouts
	retrier  *retry.Retrier

	mu      sync.RWMutex
	baseCtx context.Context
}

func NewService(servers map[string]ServerConfig, pool ConnectionPool) *Service {
	return &Service{
		servers:  servers,
		pool:     pool,
		timeouts: NewDefaultTimeouts(),
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2,
			InitialDelay:  500 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			Jitter:        100 * time.Millisecond,
		}),
		baseCtx: context.Background(),
	}
}

// ServersFromConfig maps the configured URLs to named servers. Empty URLs are
// skipped.
func ServersFromConfig(cfg *config.MCPConfig, withMemory bool) map[string]ServerConfig {
	servers := make(map[string]ServerConfig)
	if withMemory && cfg.MemoryURL != "" {
		servers[ServerMemory] = ServerConfig{URL: cfg.MemoryURL}
	}
	if cfg.MiscURL != "" {
		servers[ServerMisc] = ServerConfig{URL: cfg.MiscURL}
	}
	return servers
}

// Start connects every server in the background. A server that is down at
// startup is retried on first use.
func (s *Service) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "mcp")
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	for name := range s.servers {
		go func(name string) {
			if _, err := s.connect(name); err != nil {
				log.FromCtx(ctx).Warn().Err(err).Str("server", name).Msg("mcp server not reachable yet")
			}
		}(name)
	}
	return nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.pool.Close()
}

// Server returns a Caller bound to the named server.
func (s *Service) Server(name string) Caller {
	return &serverCaller{svc: s, name: name}
}

func (s *Service) connect(name string) (*ManagedClient, error) {
	cfg, ok := s.servers[name]
	if !ok {
		return nil, fmt.Errorf("mcp server %s is not configured", name)
	}

	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()
	logger := log.FromCtx(ctx).With().Str("server", name).Logger()

	var cli *ManagedClient
	err := s.retrier.Do(ctx, func() error {
		var err error
		cli, err = s.pool.Add(ctx, name, cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect mcp server %s: %w", name, err)
	}
	logger.Info().Str("url", cfg.URL).Msg("mcp server connected")
	return cli, nil
}

type serverCaller struct {
	svc  *Service
	name string
}

func (c *serverCaller) CallTool(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	cli, ok := c.svc.pool.Get(c.name)
	if !ok || cli.IsClosed() {
		var err error
		if cli, err = c.svc.connect(c.name); err != nil {
			return nil, err
		}
	}

	tCtx, cancel := context.WithTimeout(ctx, c.svc.timeouts.ToolCall)
	defer cancel()

	res, err := cli.CallTool(tCtx, req)
	if err != nil && ctx.Err() == nil {
		// the connection is likely gone, reconnect on the next call
		_ = c.svc.pool.Evict(c.name, cli)
	}
	return res, err
}
