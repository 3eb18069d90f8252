// Package sink provides results-sink implementations: in-memory for tests,
// filesystem snapshots, and Postgres.
package sink

import (
	"context"
	"sync"

	"github.com/narabid/bid-crawler/internal/bid"
)

// Memory collects appended records and checkpoints in memory.
type Memory struct {
	mu        sync.Mutex
	records   []bid.AdmittedRecord
	snapshots []bid.JobSnapshot
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Append stores records.
func (m *Memory) Append(ctx context.Context, records []bid.AdmittedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

// Checkpoint stores the snapshot.
func (m *Memory) Checkpoint(ctx context.Context, snapshot bid.JobSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

// Records returns a copy of the appended records.
func (m *Memory) Records() []bid.AdmittedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bid.AdmittedRecord(nil), m.records...)
}

// Snapshots returns a copy of the stored snapshots.
func (m *Memory) Snapshots() []bid.JobSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bid.JobSnapshot(nil), m.snapshots...)
}
