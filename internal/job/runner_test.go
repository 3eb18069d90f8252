package job

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/narabid/bid-crawler/internal/bid"
	"github.com/narabid/bid-crawler/internal/filter"
	"github.com/narabid/bid-crawler/internal/progress"
	"github.com/narabid/bid-crawler/internal/sink"
)

type navFunc func(ctx context.Context) bool

func (f navFunc) EnsureAtSearchForm(ctx context.Context) bool { return f(ctx) }

type searcherFake struct {
	mu        sync.Mutex
	submitted []string
	grid      func(keyword string) bool
}

func (s *searcherFake) ConfigureOptions(ctx context.Context) bool { return true }

func (s *searcherFake) SubmitKeyword(ctx context.Context, keyword string) bool {
	s.mu.Lock()
	s.submitted = append(s.submitted, keyword)
	s.mu.Unlock()
	return s.grid(keyword)
}

func (s *searcherFake) submittedKeywords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.submitted...)
}

type rowsFunc func(ctx context.Context) []bid.CandidateRecord

func (f rowsFunc) Extract(ctx context.Context) []bid.CandidateRecord { return f(ctx) }

type detailFunc func(rec bid.AdmittedRecord) bid.DetailRecord

func (f detailFunc) Extract(ctx context.Context, rec bid.AdmittedRecord) bid.DetailRecord {
	return f(rec)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// stepClock advances by step on every Now call so interval checks can fire.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("job-%04d", g.n), nil
}

type recordingSub struct {
	mu     sync.Mutex
	events []progress.Event
}

func (s *recordingSub) Notify(event progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSub) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

var runnerNow = time.Date(2024, 5, 20, 14, 0, 0, 0, time.UTC)

func fastConfig() Config {
	return Config{
		MinDelay:           time.Millisecond,
		MaxDelay:           2 * time.Millisecond,
		CheckpointInterval: time.Hour,
	}
}

func testAdmitter() Admitter {
	return filter.NewEngine(filter.Policy{
		CategoryTokens:  []string{"물품", "용역"},
		MaxPostAgeDays:  3,
		MinLeadTimeDays: 9,
	}, fixedClock{runnerNow}, nil)
}

func candidate(number string, postedDaysAgo, closeDaysAhead int) bid.CandidateRecord {
	posted := runnerNow.AddDate(0, 0, -postedDaysAgo)
	closeAt := runnerNow.AddDate(0, 0, closeDaysAhead)
	return bid.CandidateRecord{
		Category: "일반용역",
		Number:   number,
		Title:    "공고 " + number,
		PostedAt: &posted,
		BidClose: &closeAt,
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	t.Parallel()
	searcher := &searcherFake{grid: func(keyword string) bool {
		// The second keyword's grid never loads: zero results, not an error.
		return keyword == "AI"
	}}
	rows := rowsFunc(func(ctx context.Context) []bid.CandidateRecord {
		return []bid.CandidateRecord{
			candidate("20240520001-00", 1, 30),
			candidate("20240510009-00", 10, 30), // stale post, filtered out
		}
	})
	mem := sink.NewMemory()
	bc := progress.NewBroadcaster(nil)
	sub := &recordingSub{}
	bc.Register(sub)

	r := NewRunner(Deps{
		Navigator: navFunc(func(ctx context.Context) bool { return true }),
		Searcher:  searcher,
		Rows:      rows,
		Admitter:  testAdmitter(),
		Detailer: detailFunc(func(rec bid.AdmittedRecord) bid.DetailRecord {
			return bid.DetailRecord{Number: rec.Number, ContractMethod: "일반경쟁"}
		}),
		Sink:        mem,
		Broadcaster: bc,
		Clock:       fixedClock{runnerNow},
		IDs:         &seqIDs{},
	}, fastConfig(), nil)

	jobID, err := r.Start(context.Background(), []string{"AI", "Software"})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)
	r.Wait()

	state := r.State()
	require.Equal(t, bid.JobStatusCompleted, state.Status)
	require.False(t, state.IsRunning)
	require.Equal(t, 2, state.ProcessedCount)
	require.Equal(t, 2, state.TotalKeywords)
	require.Equal(t, 1, state.TotalResults)
	require.Empty(t, state.Errors)
	require.NotNil(t, state.StartTime)
	require.NotNil(t, state.EndTime)

	results := r.Results()
	require.Len(t, results.Results, 1)
	rec := results.Results[0]
	require.Equal(t, "20240520001-00", rec.Number)
	require.Equal(t, "AI", rec.Keyword)
	require.NotNil(t, rec.Detail)
	require.Equal(t, "일반경쟁", rec.Detail.ContractMethod)

	require.Equal(t, []string{"AI", "Software"}, searcher.submittedKeywords())
	require.Len(t, mem.Records(), 1)

	types := sub.types()
	require.Equal(t, progress.TypeJobStarted, types[0])
	require.Equal(t, progress.TypeJobFinished, types[len(types)-1])
	require.Contains(t, types, progress.TypeRecordAdmitted)
}

func TestRunnerDedupAcrossKeywords(t *testing.T) {
	t.Parallel()
	searcher := &searcherFake{grid: func(string) bool { return true }}
	// Both keywords surface the same announcement.
	rows := rowsFunc(func(ctx context.Context) []bid.CandidateRecord {
		return []bid.CandidateRecord{candidate("20240520007-00", 1, 30)}
	})

	r := NewRunner(Deps{
		Navigator: navFunc(func(ctx context.Context) bool { return true }),
		Searcher:  searcher,
		Rows:      rows,
		Admitter:  testAdmitter(),
		Sink:      sink.NewMemory(),
		Clock:     fixedClock{runnerNow},
		IDs:       &seqIDs{},
	}, Config{MinDelay: time.Millisecond, MaxDelay: time.Millisecond, CheckpointInterval: time.Hour, SkipDetail: true}, nil)

	_, err := r.Start(context.Background(), []string{"AI", "인공지능"})
	require.NoError(t, err)
	r.Wait()

	require.Equal(t, 1, r.State().TotalResults)
}

func TestRunnerStopHaltsBeforeNextKeyword(t *testing.T) {
	t.Parallel()
	var r *Runner
	searcher := &searcherFake{grid: func(string) bool { return true }}
	rows := rowsFunc(func(ctx context.Context) []bid.CandidateRecord {
		r.Stop()
		return nil
	})

	r = NewRunner(Deps{
		Navigator: navFunc(func(ctx context.Context) bool { return true }),
		Searcher:  searcher,
		Rows:      rows,
		Admitter:  testAdmitter(),
		Sink:      sink.NewMemory(),
		Clock:     fixedClock{runnerNow},
		IDs:       &seqIDs{},
	}, fastConfig(), nil)

	_, err := r.Start(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	r.Wait()

	state := r.State()
	require.Equal(t, bid.JobStatusStopped, state.Status)
	require.Equal(t, []string{"first"}, searcher.submittedKeywords(),
		"keywords after the stop point must never be attempted")
	require.Equal(t, 1, state.ProcessedCount)
}

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	r := NewRunner(Deps{
		Navigator: navFunc(func(ctx context.Context) bool { <-gate; return false }),
		Searcher:  &searcherFake{grid: func(string) bool { return false }},
		Rows:      rowsFunc(func(ctx context.Context) []bid.CandidateRecord { return nil }),
		Admitter:  testAdmitter(),
		Sink:      sink.NewMemory(),
		Clock:     fixedClock{runnerNow},
		IDs:       &seqIDs{},
	}, fastConfig(), nil)

	first, err := r.Start(context.Background(), []string{"AI"})
	require.NoError(t, err)

	_, err = r.Start(context.Background(), []string{"other"})
	require.ErrorIs(t, err, ErrAlreadyRunning)

	close(gate)
	r.Wait()

	// A finished job releases the slot for the next Start.
	second, err := r.Start(context.Background(), []string{"next"})
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	r.Wait()
}

func TestRunnerKeywordFailureDoesNotHaltQueue(t *testing.T) {
	t.Parallel()
	var calls int
	var mu sync.Mutex
	nav := navFunc(func(ctx context.Context) bool {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return calls > 1 // the first keyword never reaches the form
	})
	searcher := &searcherFake{grid: func(string) bool { return true }}

	r := NewRunner(Deps{
		Navigator: nav,
		Searcher:  searcher,
		Rows:      rowsFunc(func(ctx context.Context) []bid.CandidateRecord { return nil }),
		Admitter:  testAdmitter(),
		Sink:      sink.NewMemory(),
		Clock:     fixedClock{runnerNow},
		IDs:       &seqIDs{},
	}, fastConfig(), nil)

	_, err := r.Start(context.Background(), []string{"broken", "fine"})
	require.NoError(t, err)
	r.Wait()

	state := r.State()
	require.Equal(t, bid.JobStatusCompleted, state.Status)
	require.Equal(t, 2, state.ProcessedCount, "a failed keyword still counts as processed")
	require.Len(t, state.Errors, 1)
	require.Equal(t, "broken", state.Errors[0].Keyword)
	require.Equal(t, []string{"fine"}, searcher.submittedKeywords())
}

func TestRunnerPanicFailsJob(t *testing.T) {
	t.Parallel()
	rows := rowsFunc(func(ctx context.Context) []bid.CandidateRecord {
		panic("browser session lost")
	})

	r := NewRunner(Deps{
		Navigator: navFunc(func(ctx context.Context) bool { return true }),
		Searcher:  &searcherFake{grid: func(string) bool { return true }},
		Rows:      rows,
		Admitter:  testAdmitter(),
		Sink:      sink.NewMemory(),
		Clock:     fixedClock{runnerNow},
		IDs:       &seqIDs{},
	}, fastConfig(), nil)

	_, err := r.Start(context.Background(), []string{"AI", "never-reached"})
	require.NoError(t, err)
	r.Wait()

	state := r.State()
	require.Equal(t, bid.JobStatusFailed, state.Status)
	require.Len(t, state.Errors, 1)
	require.Equal(t, "job", state.Errors[0].Keyword)
	require.Contains(t, state.Errors[0].Message, "browser session lost")
}

func TestRunnerPeriodicCheckpoints(t *testing.T) {
	t.Parallel()
	mem := sink.NewMemory()
	clock := &stepClock{t: runnerNow, step: time.Minute}

	r := NewRunner(Deps{
		Navigator: navFunc(func(ctx context.Context) bool { return true }),
		Searcher:  &searcherFake{grid: func(string) bool { return true }},
		Rows:      rowsFunc(func(ctx context.Context) []bid.CandidateRecord { return nil }),
		Admitter:  testAdmitter(),
		Sink:      mem,
		Clock:     clock,
		IDs:       &seqIDs{},
	}, Config{MinDelay: time.Millisecond, MaxDelay: time.Millisecond, CheckpointInterval: time.Minute, SkipDetail: true}, nil)

	_, err := r.Start(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	r.Wait()

	snaps := mem.Snapshots()
	require.GreaterOrEqual(t, len(snaps), 2, "interval checkpoints plus the final one")
	final := snaps[len(snaps)-1]
	require.Equal(t, bid.JobStatusCompleted, final.Status)
	require.Equal(t, 3, final.Processed)
}

func TestRunnerReleasesSessionOnFinish(t *testing.T) {
	t.Parallel()
	released := make(chan struct{}, 1)
	r := NewRunner(Deps{
		Navigator: navFunc(func(ctx context.Context) bool { return true }),
		Searcher:  &searcherFake{grid: func(string) bool { return false }},
		Rows:      rowsFunc(func(ctx context.Context) []bid.CandidateRecord { return nil }),
		Admitter:  testAdmitter(),
		Sink:      sink.NewMemory(),
		Clock:     fixedClock{runnerNow},
		IDs:       &seqIDs{},
		ReleaseSession: func(ctx context.Context) error {
			released <- struct{}{}
			return nil
		},
	}, fastConfig(), nil)

	_, err := r.Start(context.Background(), []string{"AI"})
	require.NoError(t, err)
	r.Wait()

	select {
	case <-released:
	default:
		t.Fatal("browser session was not released at job finish")
	}
}

func TestRunnerRejectsEmptyKeywordQueue(t *testing.T) {
	t.Parallel()
	r := NewRunner(Deps{
		Clock: fixedClock{runnerNow},
		IDs:   &seqIDs{},
	}, fastConfig(), nil)

	_, err := r.Start(context.Background(), nil)
	require.Error(t, err)
}
