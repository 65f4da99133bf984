package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadRun retrieves a run header by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, width, height, parts, info
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns every journaled run ordered by id. Run ids are UUIDv7,
// so this is also start order.
//
// Returns an empty slice (not nil) when the journal is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, width, height, parts, info
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns every event of a run in seq order.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, cycle, kind, cell, payload
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadCycle returns the events delivered during one cycle's dispatch.
func (s *Store) ReadCycle(ctx context.Context, runID string, cycle int64) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, cycle, kind, cell, payload
		FROM events
		WHERE run_id = ? AND cycle = ?
		ORDER BY seq ASC
	`, runID, cycle)
}

// ReadKind returns the events of one kind in seq order.
func (s *Store) ReadKind(ctx context.Context, runID, kind string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, cycle, kind, cell, payload
		FROM events
		WHERE run_id = ? AND kind = ?
		ORDER BY seq ASC
	`, runID, kind)
}

// CountEvents returns how many events of each kind a run journaled.
func (s *Store) CountEvents(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM events
		WHERE run_id = ?
		GROUP BY kind
		ORDER BY kind ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// LastSeq returns the highest seq journaled for a run, or 0 when none.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events WHERE run_id = ?`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		partsJSON string
		infoJSON  string
	)
	if err := row.Scan(&run.ID, &run.Width, &run.Height, &partsJSON, &infoJSON); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if run.Parts, err = unmarshalParts(partsJSON); err != nil {
		return Run{}, err
	}
	if run.Info, err = unmarshalPayload(infoJSON); err != nil {
		return Run{}, err
	}
	return run, nil
}

func scanEvent(row scanner) (Event, error) {
	var (
		ev      Event
		cell    int64
		payload string
	)
	if err := row.Scan(&ev.RunID, &ev.Seq, &ev.Cycle, &ev.Kind, &cell, &payload); err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Cell = uint64(cell)

	var err error
	if ev.Payload, err = unmarshalPayload(payload); err != nil {
		return Event{}, err
	}
	return ev, nil
}
