package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/bid"
)

// FS persists records and snapshots as JSON files under a root directory.
// Appends accumulate into one records file per job snapshot cycle; writes are
// whole-file replacements, which is acceptable under the best-effort
// durability contract.
type FS struct {
	mu      sync.Mutex
	root    string
	records []bid.AdmittedRecord
	logger  *zap.Logger
}

// NewFS returns a sink rooted at dir.
func NewFS(root string, logger *zap.Logger) (*FS, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FS{
		root:   root,
		logger: logger.Named("sink_fs"),
	}, nil
}

// Append accumulates records and rewrites the records file.
func (s *FS) Append(ctx context.Context, records []bid.AdmittedRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return s.writeJSON("records.json", s.records)
}

// Checkpoint writes the snapshot file for the job.
func (s *FS) Checkpoint(ctx context.Context, snapshot bid.JobSnapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name := fmt.Sprintf("checkpoint_%s.json", snapshot.JobID)
	return s.writeJSON(name, snapshot)
}

func (s *FS) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	target := filepath.Join(s.root, name)
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	s.logger.Debug("sink file written", zap.String("path", target), zap.Int("bytes", len(data)))
	return nil
}
