package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

// ErrPoolClosed is returned by Add once the pool has been shut down.
var ErrPoolClosed = errors.New("mcp pool is closed")

// ConnectionPool holds one live client per named server.
type ConnectionPool interface {
	Add(ctx context.Context, name string, cfg ServerConfig) (*ManagedClient, error)
	Get(name string) (*ManagedClient, bool)
	// Evict drops the client for name only if it is still stale, so a
	// connection opened by a concurrent caller survives.
	Evict(name string, stale *ManagedClient) error
	All() map[string]*ManagedClient
	Close() error
}

var _ ConnectionPool = (*Pool)(nil)

type TransportFactory func(TransportType) (Transport, error)

type Pool struct {
	mu               sync.RWMutex
	clients          map[string]*ManagedClient
	closed           bool
	transportFactory TransportFactory
}

func NewPool() *Pool {
	return NewPoolWithFactory(NewTransport)
}

func NewPoolWithFactory(factory TransportFactory) *Pool {
	return &Pool{
		clients:          make(map[string]*ManagedClient),
		transportFactory: factory,
	}
}

// Add connects to the server and stores the client under name. A client
// already stored under that name is closed.
func (p *Pool) Add(ctx context.Context, name string, cfg ServerConfig) (*ManagedClient, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	tType, err := cfg.GetTransport()
	if err != nil {
		return nil, err
	}
	transport, err := p.transportFactory(tType)
	if err != nil {
		return nil, err
	}
	cli, err := transport(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("mcp transport for %s failed: %w", name, err)
	}
	managed := &ManagedClient{Client: cli, name: name}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = managed.Close()
		return nil, ErrPoolClosed
	}
	old := p.clients[name]
	p.clients[name] = managed
	p.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("server", name).Msg("failed to close replaced mcp client")
		}
	}
	return managed, nil
}

func (p *Pool) Get(name string) (*ManagedClient, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cli, ok := p.clients[name]
	return cli, ok
}

func (p *Pool) Evict(name string, stale *ManagedClient) error {
	p.mu.Lock()
	cli, ok := p.clients[name]
	if !ok || cli != stale {
		p.mu.Unlock()
		return nil
	}
	delete(p.clients, name)
	p.mu.Unlock()

	return cli.Close()
}

func (p *Pool) All() map[string]*ManagedClient {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string]*ManagedClient, len(p.clients))
	for k, v := range p.clients {
		result[k] = v
	}
	return result
}

// Close disconnects every server. Later calls to Add fail with ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = make(map[string]*ManagedClient)
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for _, cli := range clients {
		if err := cli.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
