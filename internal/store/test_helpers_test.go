package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeTestRun writes a minimal 4x4 run header.
func writeTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.WriteRun(context.Background(), Run{ID: id, Width: 4, Height: 4}); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
}

// createTestEvent creates an event with minimal required fields.
func createTestEvent(runID string, seq, cycle int64, kind string) Event {
	return Event{RunID: runID, Seq: seq, Cycle: cycle, Kind: kind}
}
