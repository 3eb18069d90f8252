package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/narabid/bid-crawler/internal/bid"
)

func TestPostgresAppendInsertsEachRecord(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	admittedAt := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	records := []bid.AdmittedRecord{
		{CandidateRecord: bid.CandidateRecord{Number: "A-1"}, Keyword: "AI", AdmittedAt: admittedAt},
		{CandidateRecord: bid.CandidateRecord{Number: "A-2"}, Keyword: "AI", AdmittedAt: admittedAt},
	}
	for _, rec := range records {
		mock.ExpectExec("INSERT INTO admitted_records").
			WithArgs(rec.Number, rec.Keyword, rec.AdmittedAt, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Append(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendStopsOnFirstError(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO admitted_records").
		WithArgs("A-1", "AI", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	s := NewPostgresWithPool(mock)
	err = s.Append(context.Background(), []bid.AdmittedRecord{
		{CandidateRecord: bid.CandidateRecord{Number: "A-1"}, Keyword: "AI"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "A-1")
}

func TestPostgresCheckpointUpserts(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	snap := bid.JobSnapshot{
		JobID:         "job-0001",
		Status:        bid.JobStatusRunning,
		Processed:     3,
		TotalKeywords: 5,
		ResultCount:   11,
		ErrorCount:    1,
		TakenAt:       time.Date(2024, 5, 20, 12, 5, 0, 0, time.UTC),
	}
	mock.ExpectExec("INSERT INTO job_checkpoints").
		WithArgs(snap.JobID, string(snap.Status), snap.Processed,
			snap.TotalKeywords, snap.ResultCount, snap.ErrorCount, snap.TakenAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Checkpoint(context.Background(), snap))
	require.NoError(t, mock.ExpectationsWereMet())
}
