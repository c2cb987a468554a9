package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

func newTestDB(t *testing.T) *MemoriesRepo {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "nested", "tasker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMemoriesRepo(db)
}

func TestMemoriesRepo_CRUD(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC)

	e, err := repo.Create(ctx, core.MemoryEntry{
		Type: core.EntryFact, Content: "Dentist", CreatedAt: created,
		RelevanceDate: "2024-05-02T15:00:00Z", Place: "city", Flagged: true, Recurrence: "",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)

	_, err = repo.Create(ctx, core.MemoryEntry{Type: core.EntrySystem, Content: "note", CreatedAt: created.Add(time.Second), Intent: "notified:dentist"})
	require.NoError(t, err)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, e.ID, entries[0].ID)
	assert.True(t, entries[0].CreatedAt.Equal(created))
	assert.True(t, entries[0].Flagged)
	assert.Equal(t, "city", entries[0].Place)
	assert.Equal(t, "notified:dentist", entries[1].Intent)

	e.Content = "Dentist at 15:00"
	e.ModifiedAt = created.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, e))
	entries, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dentist at 15:00", entries[0].Content)
	assert.True(t, entries[0].ModifiedAt.Equal(created.Add(time.Hour)))

	require.NoError(t, repo.Delete(ctx, e.ID))
	entries, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemoriesRepo_Validation(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, core.MemoryEntry{Type: "bogus", Content: "x"})
	assert.Error(t, err)

	err = repo.Update(ctx, core.MemoryEntry{ID: "missing", Type: core.EntryFact, Content: "x"})
	assert.True(t, IsNotFound(err))
}

func TestMemoriesRepo_ApplyBatchIsAtomic(t *testing.T) {
	repo := newTestDB(t)
	ctx := context.Background()

	keep, err := repo.Create(ctx, core.MemoryEntry{Type: core.EntryFact, Content: "keep me"})
	require.NoError(t, err)

	err = repo.ApplyBatch(ctx, []core.Mutation{
		{Kind: core.MutationDelete, Entry: keep},
		{Kind: core.MutationCreate, Entry: core.MemoryEntry{Type: core.EntryFact, Content: "new"}},
		{Kind: core.MutationUpdate, Entry: core.MemoryEntry{ID: "ghost", Type: core.EntryFact, Content: "x"}},
	})
	require.Error(t, err)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep me", entries[0].Content)

	require.NoError(t, repo.ApplyBatch(ctx, []core.Mutation{
		{Kind: core.MutationDelete, Entry: keep},
		{Kind: core.MutationCreate, Entry: core.MemoryEntry{Type: core.EntryInstructions, Content: "be brief"}},
	}))
	entries, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.EntryInstructions, entries[0].Type)
}

func TestRunsRepo(t *testing.T) {
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "tasker.db"))
	require.NoError(t, err)
	defer db.Close()

	runs := NewRunsRepo(db)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []core.Outcome{core.OutcomeNoAction, core.OutcomeSuccess, core.OutcomeError} {
		require.NoError(t, runs.Record(ctx, string(rune('a'+i)), core.TriggerEvent{Kind: core.TriggerTimer},
			core.RunOutcome{Outcome: outcome, Messages: make([]string, i)}, at.Add(time.Duration(i)*time.Minute)))
	}

	recent, err := runs.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].RunID)
	assert.Equal(t, core.OutcomeError, recent[0].Outcome)
	assert.Equal(t, 2, recent[0].Messages)
	assert.True(t, recent[0].FinishedAt.Equal(at.Add(2*time.Minute)))

	require.NoError(t, runs.Prune(ctx, 1))
	recent, err = runs.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
