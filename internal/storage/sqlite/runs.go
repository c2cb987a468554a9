package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Alpha200/ha-ai-tasker/internal/core"
)

// RunRecord is one finished dispatcher run.
type RunRecord struct {
	RunID      string
	Trigger    core.TriggerKind
	Outcome    core.Outcome
	Detail     string
	Messages   int
	FinishedAt time.Time
}

// DefaultRunsKept bounds the journal size.
const DefaultRunsKept = 500

// RunsRepo keeps a journal of run outcomes.
type RunsRepo struct {
	db   *sql.DB
	keep int
}

func NewRunsRepo(db *sql.DB) *RunsRepo {
	return &RunsRepo{db: db, keep: DefaultRunsKept}
}

func (r *RunsRepo) Record(ctx context.Context, runID string, ev core.TriggerEvent, out core.RunOutcome, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, trigger_kind, outcome, detail, messages, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, string(ev.Kind), string(out.Outcome), out.Detail, len(out.Messages), formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if r.keep > 0 {
		return r.Prune(ctx, r.keep)
	}
	return nil
}

// Recent returns the newest runs first.
func (r *RunsRepo) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, trigger_kind, outcome, detail, messages, finished_at FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var trigger, outcome, finished string
		if err := rows.Scan(&rec.RunID, &trigger, &outcome, &rec.Detail, &rec.Messages, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Trigger = core.TriggerKind(trigger)
		rec.Outcome = core.Outcome(outcome)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep runs.
func (r *RunsRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	return nil
}
