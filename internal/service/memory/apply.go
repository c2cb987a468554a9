package memory

import (
	"context"
	"fmt"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
	"github.com/Alpha200/ha-ai-tasker/pkg/log"
)

const storeService = "memory store"

// Apply writes mutations to store. Stores implementing core.BatchApplier get
// the whole set in one transaction. Otherwise every mutation is applied on its
// own and the first failure stops the rest.
func Apply(ctx context.Context, store core.MemoryStore, mutations []core.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	logger := log.FromCtx(ctx)

	if batch, ok := store.(core.BatchApplier); ok {
		if err := batch.ApplyBatch(ctx, mutations); err != nil {
			return core.NewExternalServiceError(storeService, fmt.Errorf("apply batch: %w", err))
		}
		logger.Debug().Int("mutations", len(mutations)).Msg("memory batch applied")
		return nil
	}

	for i, m := range mutations {
		if err := applyOne(ctx, store, m); err != nil {
			return core.NewExternalServiceError(storeService,
				fmt.Errorf("%s %s (%d of %d applied): %w", m.Kind, m.Entry.ID, i, len(mutations), err))
		}
		logger.Debug().
			Str("kind", string(m.Kind)).
			Str("id", m.Entry.ID).
			Str("reason", m.Reason).
			Msg("memory mutation applied")
	}
	return nil
}

func applyOne(ctx context.Context, store core.MemoryStore, m core.Mutation) error {
	switch m.Kind {
	case core.MutationCreate:
		_, err := store.Create(ctx, m.Entry)
		return err
	case core.MutationUpdate:
		return store.Update(ctx, m.Entry)
	case core.MutationDelete:
		return store.Delete(ctx, m.Entry.ID)
	}
	return fmt.Errorf("unknown mutation kind %q", m.Kind)
}
