// Package api serves the HTTP trigger ingress.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/dispatcher"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, ev core.TriggerEvent) core.RunOutcome
	Summarize(ctx context.Context, lang string) (dispatcher.Summary, error)
}

type Config struct {
	ListenAddr  string
	ServiceName string
}

// Server is the HTTP side of the tasker. It exposes /process for external
// triggers, /summary for dashboards and /health for probes.
type Server struct {
	config     Config
	dispatcher Dispatcher
	app        *fiber.App
	now        func() time.Time

	baseCtx context.Context
	errCh   chan error
}

func NewServer(config Config, d Dispatcher) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               config.ServiceName,
	})

	s := &Server{
		config:     config,
		dispatcher: d,
		app:        app,
		now:        time.Now,
		baseCtx:    context.Background(),
		errCh:      make(chan error, 1),
	}

	app.Post("/process", s.handleProcess)
	app.Get("/health", s.handleHealth)
	app.Get("/summary", s.handleSummary)

	return s
}

// Start listens in the background. Requests run under ctx so they carry its
// logger.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx = log.WithComponent(ctx, "http")
	log.FromCtx(s.baseCtx).Info().Str("listen", s.config.ListenAddr).Msg("starting HTTP server")

	go func() {
		if err := s.app.Listen(s.config.ListenAddr); err != nil {
			log.FromCtx(s.baseCtx).Error().Err(err).Msg("HTTP server stopped")
			s.errCh <- err
		}
	}()

	// Surface bind errors instead of failing silently in the background.
	select {
	case err := <-s.errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		log.FromCtx(ctx).Warn().Msg("HTTP server shutdown timed out")
	}
	return err
}
