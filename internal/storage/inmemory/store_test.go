package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	e, err := s.Create(ctx, core.MemoryEntry{Type: core.EntryFact, Content: "dentist"})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())

	e.Content = "dentist at 10"
	require.NoError(t, s.Update(ctx, e))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "dentist at 10", list[0].Content)

	require.NoError(t, s.Delete(ctx, e.ID))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_RejectsUnknownType(t *testing.T) {
	_, err := New().Create(context.Background(), core.MemoryEntry{Type: "note"})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStore_ApplyBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Seed(core.MemoryEntry{ID: "a", Type: core.EntryFact, Content: "keep me"})

	err := s.ApplyBatch(ctx, []core.Mutation{
		{Kind: core.MutationDelete, Entry: core.MemoryEntry{ID: "a"}},
		{Kind: core.MutationUpdate, Entry: core.MemoryEntry{ID: "missing", Type: core.EntryFact}},
	})
	require.Error(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep me", list[0].Content)
}

func TestStore_Unavailable(t *testing.T) {
	s := New()
	s.SetUnavailable(true)
	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}
