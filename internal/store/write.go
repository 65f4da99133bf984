package store

import (
	"context"
	"fmt"
)

// WriteRun inserts the journal header for a run.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a second write of the
// same run id is silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	partsJSON, err := marshalParts(run.Parts)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	infoJSON, err := marshalPayload(run.Info)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, width, height, parts, info)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Width, run.Height, partsJSON, infoJSON)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// UpdateRunInfo replaces the info map of an existing run.
func (s *Store) UpdateRunInfo(ctx context.Context, runID string, info map[string]string) error {
	infoJSON, err := marshalPayload(info)
	if err != nil {
		return fmt.Errorf("update run info: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET info = ? WHERE id = ?`, infoJSON, runID)
	if err != nil {
		return fmt.Errorf("update run info: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run info: run %s not found", runID)
	}
	return nil
}

// WriteEvent inserts a single event.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, ev Event) error {
	return s.WriteEvents(ctx, []Event{ev})
}

// WriteEvents inserts a batch of events in one transaction. Either all
// events are stored or none are.
func (s *Store) WriteEvents(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (run_id, seq, cycle, kind, cell, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		payload, err := marshalPayload(ev.Payload)
		if err != nil {
			return fmt.Errorf("write events: seq %d: %w", ev.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, ev.RunID, ev.Seq, ev.Cycle, ev.Kind, int64(ev.Cell), payload); err != nil {
			return fmt.Errorf("write events: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}
