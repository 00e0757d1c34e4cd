// Package journal keeps a local record of import runs and what happened to
// each feed item. It is observability only: the importer behaves the same
// with or without it, and a nil *Recorder disables it entirely.
package journal

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const runNamespace = "-run"

// Run statuses.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Event outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeSkipped  = "skipped"
	OutcomeVodified = "vodified"
)

// Recorder writes run records to the journal database.
type Recorder struct {
	db *sqlx.DB
}

// NewRecorder creates a Recorder on top of an already-migrated database.
func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{
		db: db,
	}
}

// Run is one row in the runs table.
type Run struct {
	ID         string     `db:"id"`
	Action     string     `db:"action"`
	ChannelID  string     `db:"channel_id"`
	StreamID   string     `db:"stream_id"`
	Status     string     `db:"status"`
	Error      string     `db:"error"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
}

// RunEvent is one row in the run_events table.
type RunEvent struct {
	ID         int64     `db:"id"`
	RunID      string    `db:"run_id"`
	Kind       string    `db:"kind"`
	ExternalID string    `db:"external_id"`
	Outcome    string    `db:"outcome"`
	RecordedAt time.Time `db:"recorded_at"`
}

// BeginRun opens a run record and returns its id.
func (r *Recorder) BeginRun(ctx context.Context, action, channelID, streamID string) (string, error) {
	if r == nil {
		return "", nil
	}

	run := Run{
		ID:        fmt.Sprintf("%s%s", uuid.NewString(), runNamespace),
		Action:    action,
		ChannelID: channelID,
		StreamID:  streamID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	const q = `INSERT INTO runs (id, action, channel_id, stream_id, status, started_at)
	VALUES (:id, :action, :channel_id, :stream_id, :status, :started_at);`
	if _, err := r.db.NamedExecContext(ctx, q, run); err != nil {
		return "", fmt.Errorf("error inserting run: %s", err)
	}

	return run.ID, nil
}

// RecordEvent appends a per-item outcome to the run.
func (r *Recorder) RecordEvent(ctx context.Context, runID, kind, externalID, outcome string) error {
	if r == nil || runID == "" {
		return nil
	}

	ev := RunEvent{
		RunID:      runID,
		Kind:       kind,
		ExternalID: externalID,
		Outcome:    outcome,
		RecordedAt: time.Now().UTC(),
	}

	const q = `INSERT INTO run_events (run_id, kind, external_id, outcome, recorded_at)
	VALUES (:run_id, :kind, :external_id, :outcome, :recorded_at);`
	if _, err := r.db.NamedExecContext(ctx, q, ev); err != nil {
		return fmt.Errorf("error inserting run event: %s", err)
	}

	return nil
}

// FinishRun closes the run record. errMsg is stored only when non-empty.
func (r *Recorder) FinishRun(ctx context.Context, runID, status, errMsg string) error {
	if r == nil || runID == "" {
		return nil
	}

	q := sq.Update("runs").
		Set("status", status).
		Set("finished_at", time.Now().UTC()).
		Where(sq.Eq{"id": runID})
	if errMsg != "" {
		q = q.Set("error", errMsg)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error executing run update: %s", err)
	}

	return nil
}

// GetRun retrieves a single run record.
func (r *Recorder) GetRun(ctx context.Context, runID string) (Run, error) {
	const q = `SELECT * FROM runs WHERE id = ?;`

	var run Run
	if err := r.db.GetContext(ctx, &run, q, runID); err != nil {
		return Run{}, fmt.Errorf("error fetching run: %s", err)
	}

	return run, nil
}

// RunEvents retrieves a run's per-item outcomes in insertion order.
func (r *Recorder) RunEvents(ctx context.Context, runID string) ([]RunEvent, error) {
	const q = `SELECT * FROM run_events WHERE run_id = ? ORDER BY id;`

	var events []RunEvent
	if err := r.db.SelectContext(ctx, &events, q, runID); err != nil {
		return nil, fmt.Errorf("error selecting run events: %s", err)
	}

	return events, nil
}
