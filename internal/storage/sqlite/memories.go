package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

var (
	_ core.MemoryStore  = (*MemoriesRepo)(nil)
	_ core.BatchApplier = (*MemoriesRepo)(nil)
)

const memoryColumns = `id, type, content, created_at, modified_at, relevance_date, intent, place, recurrence, deadline, flagged, last_notified`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type MemoriesRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewMemoriesRepo(db *sql.DB) *MemoriesRepo {
	return &MemoriesRepo{db: db, now: time.Now}
}

func (r *MemoriesRepo) Create(ctx context.Context, entry core.MemoryEntry) (core.MemoryEntry, error) {
	entry, err := r.insert(ctx, r.db, entry)
	if err != nil {
		return core.MemoryEntry{}, err
	}
	return entry, nil
}

func (r *MemoriesRepo) List(ctx context.Context) ([]core.MemoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var entries []core.MemoryEntry
	for rows.Next() {
		var e core.MemoryEntry
		var typ, created, modified string
		var flagged int
		if err := rows.Scan(&e.ID, &typ, &e.Content, &created, &modified, &e.RelevanceDate,
			&e.Intent, &e.Place, &e.Recurrence, &e.Deadline, &flagged, &e.LastNotified); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		e.Type = core.EntryType(typ)
		e.Flagged = flagged != 0
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("memory %s: bad created_at: %w", e.ID, err)
		}
		if e.ModifiedAt, err = time.Parse(time.RFC3339Nano, modified); err != nil {
			return nil, fmt.Errorf("memory %s: bad modified_at: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *MemoriesRepo) Update(ctx context.Context, entry core.MemoryEntry) error {
	return r.update(ctx, r.db, entry)
}

func (r *MemoriesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

// ApplyBatch applies mutations in one transaction. Nothing is written when
// any mutation fails.
func (r *MemoriesRepo) ApplyBatch(ctx context.Context, mutations []core.Mutation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range mutations {
		switch m.Kind {
		case core.MutationCreate:
			_, err = r.insert(ctx, tx, m.Entry)
		case core.MutationUpdate:
			err = r.update(ctx, tx, m.Entry)
		case core.MutationDelete:
			_, err = tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, m.Entry.ID)
		default:
			err = fmt.Errorf("unknown mutation %q", m.Kind)
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", m.Kind, m.Entry.ID, err)
		}
	}
	return tx.Commit()
}

func (r *MemoriesRepo) insert(ctx context.Context, db execer, e core.MemoryEntry) (core.MemoryEntry, error) {
	if !e.Type.Valid() {
		return core.MemoryEntry{}, &core.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", e.Type)}
	}
	now := r.now()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.ModifiedAt.IsZero() {
		e.ModifiedAt = e.CreatedAt
	}

	_, err := db.ExecContext(ctx, `INSERT INTO memories (`+memoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.Content, formatTime(e.CreatedAt), formatTime(e.ModifiedAt), e.RelevanceDate,
		e.Intent, e.Place, e.Recurrence, e.Deadline, boolInt(e.Flagged), e.LastNotified)
	if err != nil {
		return core.MemoryEntry{}, fmt.Errorf("failed to insert memory: %w", err)
	}
	return e, nil
}

func (r *MemoriesRepo) update(ctx context.Context, db execer, e core.MemoryEntry) error {
	if !e.Type.Valid() {
		return &core.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", e.Type)}
	}
	if e.ModifiedAt.IsZero() {
		e.ModifiedAt = r.now()
	}

	res, err := db.ExecContext(ctx, `UPDATE memories SET type = ?, content = ?, modified_at = ?, relevance_date = ?,
		intent = ?, place = ?, recurrence = ?, deadline = ?, flagged = ?, last_notified = ? WHERE id = ?`,
		string(e.Type), e.Content, formatTime(e.ModifiedAt), e.RelevanceDate,
		e.Intent, e.Place, e.Recurrence, e.Deadline, boolInt(e.Flagged), e.LastNotified, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update memory: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("memory %s: %w", e.ID, sql.ErrNoRows)
	}
	return nil
}

// IsNotFound reports whether err came from updating a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
