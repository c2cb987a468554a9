package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockTransportFactory(transport Transport, err error) TransportFactory {
	return func(t TransportType) (Transport, error) {
		if err != nil {
			return nil, err
		}
		return transport, nil
	}
}

func successTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	return nil, nil
}

func failTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	return nil, errors.New("connection failed")
}

func TestServerConfig_GetTransport(t *testing.T) {
	tests := []struct {
		cfg     ServerConfig
		want    TransportType
		wantErr bool
	}{
		{cfg: ServerConfig{URL: "http://localhost:8300/sse"}, want: TransportSSE},
		{cfg: ServerConfig{URL: "http://localhost:8300/sse/"}, want: TransportSSE},
		{cfg: ServerConfig{URL: "http://localhost:8300/mcp"}, want: TransportHTTP},
		{cfg: ServerConfig{Command: "memory-server"}, want: TransportStdio},
		{cfg: ServerConfig{}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := tt.cfg.GetTransport()
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPool_Add(t *testing.T) {
	tests := []struct {
		name       string
		factory    TransportFactory
		serverCfg  ServerConfig
		wantErr    bool
		wantInPool bool
	}{
		{
			name:       "successful_add",
			factory:    mockTransportFactory(successTransport, nil),
			serverCfg:  ServerConfig{URL: "http://localhost/sse"},
			wantInPool: true,
		},
		{
			name:      "invalid_config",
			factory:   mockTransportFactory(successTransport, nil),
			serverCfg: ServerConfig{},
			wantErr:   true,
		},
		{
			name:      "transport_factory_error",
			factory:   mockTransportFactory(nil, errors.New("unsupported transport")),
			serverCfg: ServerConfig{Command: "echo"},
			wantErr:   true,
		},
		{
			name:      "transport_connection_error",
			factory:   mockTransportFactory(failTransport, nil),
			serverCfg: ServerConfig{Command: "echo"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPoolWithFactory(tt.factory)
			cli, err := pool.Add(context.Background(), ServerMemory, tt.serverCfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cli)
			} else {
				require.NoError(t, err)
				assert.Equal(t, ServerMemory, cli.Name())
			}
			_, ok := pool.Get(ServerMemory)
			assert.Equal(t, tt.wantInPool, ok)
		})
	}
}

func TestPool_EvictAndClose(t *testing.T) {
	pool := NewPoolWithFactory(mockTransportFactory(successTransport, nil))
	ctx := context.Background()

	first, err := pool.Add(ctx, ServerMemory, ServerConfig{Command: "a"})
	require.NoError(t, err)
	_, err = pool.Add(ctx, ServerMisc, ServerConfig{Command: "b"})
	require.NoError(t, err)
	assert.Len(t, pool.All(), 2)

	require.NoError(t, pool.Evict(ServerMemory, first))
	assert.True(t, first.IsClosed())
	_, ok := pool.Get(ServerMemory)
	assert.False(t, ok)
	assert.NoError(t, pool.Evict("missing", first))

	require.NoError(t, pool.Close())
	assert.Empty(t, pool.All())
	assert.NoError(t, pool.Close())
}

func TestPool_ReplaceClosesPrevious(t *testing.T) {
	pool := NewPoolWithFactory(mockTransportFactory(successTransport, nil))
	ctx := context.Background()

	first, err := pool.Add(ctx, ServerMemory, ServerConfig{Command: "a"})
	require.NoError(t, err)
	second, err := pool.Add(ctx, ServerMemory, ServerConfig{Command: "a"})
	require.NoError(t, err)

	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())
	require.NoError(t, pool.Close())
}

func TestPool_EvictKeepsFreshClient(t *testing.T) {
	pool := NewPoolWithFactory(mockTransportFactory(successTransport, nil))
	ctx := context.Background()

	stale, err := pool.Add(ctx, ServerMisc, ServerConfig{Command: "a"})
	require.NoError(t, err)
	fresh, err := pool.Add(ctx, ServerMisc, ServerConfig{Command: "a"})
	require.NoError(t, err)

	require.NoError(t, pool.Evict(ServerMisc, stale))
	got, ok := pool.Get(ServerMisc)
	require.True(t, ok)
	assert.Same(t, fresh, got)

	require.NoError(t, pool.Evict(ServerMisc, fresh))
	_, ok = pool.Get(ServerMisc)
	assert.False(t, ok)
	assert.True(t, fresh.IsClosed())
}

func TestPool_AddAfterClose(t *testing.T) {
	pool := NewPoolWithFactory(mockTransportFactory(successTransport, nil))
	require.NoError(t, pool.Close())

	cli, err := pool.Add(context.Background(), ServerMemory, ServerConfig{Command: "a"})
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.Nil(t, cli)
	assert.Empty(t, pool.All())
}

func TestPool_ConcurrentAccess(t *testing.T) {
	pool := NewPoolWithFactory(mockTransportFactory(successTransport, nil))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("server-%d", i%4)
			_, _ = pool.Add(ctx, name, ServerConfig{Command: "echo"})
			pool.Get(name)
			pool.All()
		}(i)
	}
	wg.Wait()

	assert.Len(t, pool.All(), 4)
	require.NoError(t, pool.Close())
}
