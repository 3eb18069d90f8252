package bid

import (
	"context"
	"time"
)

// ResultSink persists admitted records and job snapshots. Implementations are
// best-effort; the pipeline never reads its own writes back mid-run.
type ResultSink interface {
	Append(ctx context.Context, records []AdmittedRecord) error
	Checkpoint(ctx context.Context, snapshot JobSnapshot) error
}

// Clock returns the current time (useful for testing date-window filters).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
