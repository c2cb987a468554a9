package command

import (
	"context"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/config"
	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/internal/service/memory"
)

// Summarizer produces the digest shown by /summary.
type Summarizer interface {
	SummaryMarkdown(ctx context.Context, lang string) (string, error)
}

// NewRouter builds the router with every chat command, /help included.
func NewRouter(
	cfg *config.AppConfig,
	store core.MemoryStore,
	policy *memory.Policy,
	summarizer Summarizer,
	location core.LocationProvider,
) *Router {
	clock := time.Now
	r := New([]core.Command{
		NewMemoriesCommand(store, clock),
		NewRememberCommand(store, policy, clock),
		NewForgetCommand(store),
		NewStatusCommand(cfg, store, location),
		NewSummaryCommand(summarizer),
	})
	r.Register(NewHelpCommand(r))
	return r
}
