package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/narabid/bid-crawler/internal/bid"
)

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Postgres persists admitted records and job snapshots in two tables. There
// is no transactional guarantee across a batch; the pipeline's durability
// contract is best-effort.
type Postgres struct {
	pool execCloser
}

// NewPostgres connects a Postgres sink using the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sink.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wires an existing pool; used by tests with pgxmock.
func NewPostgresWithPool(pool execCloser) *Postgres {
	return &Postgres{pool: pool}
}

// Close releases the connection pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Append inserts admitted records, ignoring rows already present for the
// same announcement number and keyword.
func (s *Postgres) Append(ctx context.Context, records []bid.AdmittedRecord) error {
	query := `
		INSERT INTO admitted_records (number, keyword, admitted_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (number, keyword) DO NOTHING;
	`
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.Number, err)
		}
		if _, err := s.pool.Exec(ctx, query, rec.Number, rec.Keyword, rec.AdmittedAt, payload); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.Number, err)
		}
	}
	return nil
}

// Checkpoint upserts the job's progress snapshot.
func (s *Postgres) Checkpoint(ctx context.Context, snapshot bid.JobSnapshot) error {
	query := `
		INSERT INTO job_checkpoints (job_id, status, processed, total_keywords, result_count, error_count, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE
		SET status = EXCLUDED.status,
		    processed = EXCLUDED.processed,
		    total_keywords = EXCLUDED.total_keywords,
		    result_count = EXCLUDED.result_count,
		    error_count = EXCLUDED.error_count,
		    taken_at = EXCLUDED.taken_at;
	`
	_, err := s.pool.Exec(ctx, query,
		snapshot.JobID, string(snapshot.Status), snapshot.Processed,
		snapshot.TotalKeywords, snapshot.ResultCount, snapshot.ErrorCount, snapshot.TakenAt,
	)
	if err != nil {
		return fmt.Errorf("upsert checkpoint for %s: %w", snapshot.JobID, err)
	}
	return nil
}
