package srv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingService struct {
	name  string
	order *[]string
}

func (r *recordingService) Start(ctx context.Context) error { return nil }

func (r *recordingService) Shutdown(ctx context.Context) error {
	*r.order = append(*r.order, r.name)
	return nil
}

func TestShutdownServices_ReverseOrder(t *testing.T) {
	var order []string
	services := []Service{
		&recordingService{name: "storage", order: &order},
		&recordingService{name: "http", order: &order},
		&recordingService{name: "matrix", order: &order},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ShutdownServices(ctx, services)

	assert.Equal(t, []string{"matrix", "http", "storage"}, order)
}

func TestNewCleanup(t *testing.T) {
	called := false
	svc := NewCleanup(func() error {
		called = true
		return errors.New("close failed")
	})

	assert.NoError(t, svc.Start(context.Background()))
	assert.EqualError(t, svc.Shutdown(context.Background()), "close failed")
	assert.True(t, called)

	assert.NoError(t, NewCleanup(nil).Shutdown(context.Background()))
}
