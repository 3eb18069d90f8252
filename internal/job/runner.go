// Package job owns the crawl job lifecycle: the keyword queue, cooperative
// cancellation, per-keyword error boundaries, periodic checkpoints, and the
// accumulated result collection.
package job

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/bid"
	"github.com/narabid/bid-crawler/internal/filter"
	"github.com/narabid/bid-crawler/internal/metrics"
	"github.com/narabid/bid-crawler/internal/progress"
)

// ErrAlreadyRunning is returned by Start while a job is in flight.
var ErrAlreadyRunning = errors.New("a crawl job is already running")

// syntheticJobKeyword labels error-log entries that belong to the whole run
// rather than to one keyword.
const syntheticJobKeyword = "job"

// Navigator reaches the portal search form.
type Navigator interface {
	EnsureAtSearchForm(ctx context.Context) bool
}

// Searcher configures search options and submits keywords.
type Searcher interface {
	ConfigureOptions(ctx context.Context) bool
	SubmitKeyword(ctx context.Context, keyword string) bool
}

// RowSource extracts candidate rows from a loaded result grid.
type RowSource interface {
	Extract(ctx context.Context) []bid.CandidateRecord
}

// Admitter applies the acceptance policy and dedup.
type Admitter interface {
	Accept(candidate bid.CandidateRecord, seen *filter.SeenSet) bool
}

// Detailer enriches one admitted record from its detail page.
type Detailer interface {
	Extract(ctx context.Context, rec bid.AdmittedRecord) bid.DetailRecord
}

// Deps are the collaborators required by a Runner. ReleaseSession may be nil
// when the browser session outlives individual jobs (serve mode).
type Deps struct {
	Navigator      Navigator
	Searcher       Searcher
	Rows           RowSource
	Admitter       Admitter
	Detailer       Detailer
	Sink           bid.ResultSink
	Broadcaster    *progress.Broadcaster
	Clock          bid.Clock
	IDs            bid.IDGenerator
	ReleaseSession func(ctx context.Context) error
}

// Config controls loop pacing.
type Config struct {
	// MinDelay/MaxDelay bound the randomized politeness pause between
	// consecutive keyword searches and between consecutive detail visits.
	// This is deliberate rate limiting against the portal, not incidental.
	MinDelay time.Duration
	MaxDelay time.Duration
	// CheckpointInterval is the wall-clock period between progress snapshots.
	CheckpointInterval time.Duration
	// SkipDetail disables the detail enrichment sub-loop.
	SkipDetail bool
}

// Runner executes at most one crawl job at a time. All mutable job state is
// owned by the single run goroutine; readers go through the mutex-guarded
// snapshot accessors.
type Runner struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger

	mu             sync.Mutex
	jobID          string
	keywords       []string
	cursor         int
	status         bid.JobStatus
	results        []bid.AdmittedRecord
	errs           []bid.JobError
	currentKeyword string
	started        *time.Time
	finished       *time.Time
	lastCheckpoint time.Time
	seen           *filter.SeenSet

	stopFlag atomic.Bool
	done     chan struct{}
}

// NewRunner builds an idle Runner.
func NewRunner(deps Deps, cfg Config, logger *zap.Logger) *Runner {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Named("job"),
		status: bid.JobStatusIdle,
	}
}

// Start begins asynchronous processing of the keyword queue. It returns
// ErrAlreadyRunning when a job is in flight; otherwise all prior state is
// reset and the new job id is returned.
func (r *Runner) Start(ctx context.Context, keywords []string) (string, error) {
	if len(keywords) == 0 {
		return "", errors.New("keyword queue is empty")
	}

	r.mu.Lock()
	if r.status == bid.JobStatusRunning {
		r.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	id, err := r.deps.IDs.NewID()
	if err != nil {
		r.mu.Unlock()
		return "", fmt.Errorf("new job id: %w", err)
	}
	now := r.deps.Clock.Now()
	r.jobID = id
	r.keywords = append([]string(nil), keywords...)
	r.cursor = 0
	r.status = bid.JobStatusRunning
	r.results = nil
	r.errs = nil
	r.currentKeyword = ""
	r.started = &now
	r.finished = nil
	r.lastCheckpoint = now
	r.seen = filter.NewSeenSet()
	r.stopFlag.Store(false)
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		r.run(ctx)
	}()
	return id, nil
}

// Stop requests cooperative cancellation. The keyword in flight may still
// complete; the loop observes the flag at its next iteration boundary.
func (r *Runner) Stop() {
	r.stopFlag.Store(true)
}

// Wait blocks until the current run finishes. It returns immediately when no
// job was ever started.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the polling-friendly view of the job.
func (r *Runner) State() bid.JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bid.JobState{
		JobID:          r.jobID,
		IsRunning:      r.status == bid.JobStatusRunning,
		CurrentKeyword: r.currentKeyword,
		ProcessedCount: r.cursor,
		TotalKeywords:  len(r.keywords),
		TotalResults:   len(r.results),
		Status:         r.status,
		StartTime:      r.started,
		EndTime:        r.finished,
		Errors:         append([]bid.JobError(nil), r.errs...),
	}
}

// Results returns the accumulated result set in discovery order.
func (r *Runner) Results() bid.ResultSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bid.ResultSet{
		Results:           append([]bid.AdmittedRecord(nil), r.results...),
		ProcessedKeywords: r.cursor,
		TotalKeywords:     len(r.keywords),
	}
}

func (r *Runner) run(ctx context.Context) {
	logger := r.logger.With(zap.String("job_id", r.currentJobID()))
	logger.Info("crawl job started", zap.Int("keywords", r.keywordCount()))
	r.publish(progress.TypeJobStarted, map[string]any{
		"total_keywords": r.keywordCount(),
	})

	final := bid.JobStatusCompleted
	defer func() {
		if p := recover(); p != nil {
			// A panic escaping the keyword boundary means the session is
			// unusable (browser crash class); the whole job fails.
			logger.Error("job loop panicked", zap.Any("panic", p))
			r.recordError(syntheticJobKeyword, fmt.Sprint(p))
			final = bid.JobStatusFailed
		}
		r.finish(ctx, final, logger)
	}()

	configured := false
	for i, keyword := range r.keywordSnapshot() {
		if r.stopFlag.Load() || ctx.Err() != nil {
			logger.Info("stop requested, halting keyword loop", zap.Int("cursor", i))
			final = bid.JobStatusStopped
			return
		}
		if i > 0 {
			r.pause(ctx)
		}
		r.setCurrentKeyword(keyword)
		r.publish(progress.TypeKeywordStarted, map[string]any{"keyword": keyword})

		admitted, err := r.processKeyword(ctx, keyword, &configured)
		if err != nil {
			logger.Warn("keyword failed", zap.String("keyword", keyword), zap.Error(err))
			r.recordError(keyword, err.Error())
			metrics.KeywordErrors.Inc()
			r.publish(progress.TypeKeywordFailed, map[string]any{
				"keyword": keyword,
				"error":   err.Error(),
			})
		} else {
			r.publish(progress.TypeKeywordDone, map[string]any{
				"keyword":  keyword,
				"admitted": admitted,
			})
		}

		// A failed keyword still counts as processed for progress purposes.
		r.advanceCursor()
		metrics.KeywordsProcessed.Inc()
		r.maybeCheckpoint(ctx)
	}
}

// processKeyword is the per-keyword error boundary: everything it returns as
// an error lands in the job error log without halting the queue.
func (r *Runner) processKeyword(ctx context.Context, keyword string, configured *bool) (int, error) {
	if !r.deps.Navigator.EnsureAtSearchForm(ctx) {
		return 0, errors.New("search form unreachable after retries")
	}
	if !*configured {
		// Best-effort; portal defaults apply when this fails.
		r.deps.Searcher.ConfigureOptions(ctx)
		*configured = true
	}
	if !r.deps.Searcher.SubmitKeyword(ctx, keyword) {
		// Grid timeout means zero results for this keyword, not a failure.
		return 0, nil
	}

	candidates := r.deps.Rows.Extract(ctx)
	seen := r.seenSet()
	now := r.deps.Clock.Now()

	var admitted []bid.AdmittedRecord
	for _, candidate := range candidates {
		metrics.CandidatesSeen.Inc()
		if !r.deps.Admitter.Accept(candidate, seen) {
			continue
		}
		rec := bid.AdmittedRecord{
			CandidateRecord: candidate,
			Keyword:         keyword,
			AdmittedAt:      now,
		}
		admitted = append(admitted, rec)
		metrics.RecordsAdmitted.Inc()
	}

	if !r.cfg.SkipDetail && r.deps.Detailer != nil {
		for i := range admitted {
			if r.stopFlag.Load() || ctx.Err() != nil {
				break
			}
			if i > 0 {
				r.pause(ctx)
			}
			detail := r.deps.Detailer.Extract(ctx, admitted[i])
			admitted[i].Detail = &detail
			r.maybeCheckpoint(ctx)
		}
	}

	r.appendResults(admitted)
	for _, rec := range admitted {
		r.publish(progress.TypeRecordAdmitted, map[string]any{
			"keyword": keyword,
			"number":  rec.Number,
			"title":   rec.Title,
		})
	}

	if len(admitted) > 0 {
		if err := r.deps.Sink.Append(ctx, admitted); err != nil {
			// Sink writes are best-effort; in-memory state stays authoritative.
			r.logger.Warn("sink append failed", zap.Error(err))
		}
	}
	return len(admitted), nil
}

func (r *Runner) finish(ctx context.Context, status bid.JobStatus, logger *zap.Logger) {
	now := r.deps.Clock.Now()
	r.mu.Lock()
	r.status = status
	r.finished = &now
	r.currentKeyword = ""
	snapshot := r.snapshotLocked(now)
	r.mu.Unlock()

	if err := r.deps.Sink.Checkpoint(ctx, snapshot); err != nil {
		logger.Warn("final checkpoint failed", zap.Error(err))
	}
	r.publish(progress.TypeJobFinished, map[string]any{
		"status":    string(status),
		"processed": snapshot.Processed,
		"results":   snapshot.ResultCount,
		"errors":    snapshot.ErrorCount,
	})

	if r.deps.ReleaseSession != nil {
		if err := r.deps.ReleaseSession(ctx); err != nil {
			logger.Warn("browser session release failed", zap.Error(err))
		}
	}
	logger.Info("crawl job finished",
		zap.String("status", string(status)),
		zap.Int("processed", snapshot.Processed),
		zap.Int("results", snapshot.ResultCount),
		zap.Int("errors", snapshot.ErrorCount),
	)
}

// maybeCheckpoint persists a progress snapshot when the checkpoint interval
// elapsed. A crash therefore loses at most one interval of progress metadata.
func (r *Runner) maybeCheckpoint(ctx context.Context) {
	now := r.deps.Clock.Now()
	r.mu.Lock()
	if now.Sub(r.lastCheckpoint) < r.cfg.CheckpointInterval {
		r.mu.Unlock()
		return
	}
	r.lastCheckpoint = now
	snapshot := r.snapshotLocked(now)
	r.mu.Unlock()

	if err := r.deps.Sink.Checkpoint(ctx, snapshot); err != nil {
		r.logger.Warn("checkpoint failed", zap.Error(err))
		return
	}
	r.publish(progress.TypeCheckpoint, map[string]any{
		"processed": snapshot.Processed,
		"results":   snapshot.ResultCount,
	})
}

func (r *Runner) snapshotLocked(now time.Time) bid.JobSnapshot {
	return bid.JobSnapshot{
		JobID:         r.jobID,
		Status:        r.status,
		Processed:     r.cursor,
		TotalKeywords: len(r.keywords),
		ResultCount:   len(r.results),
		ErrorCount:    len(r.errs),
		TakenAt:       now,
	}
}

// pause sleeps a randomized politeness delay, aborting early on ctx cancel.
func (r *Runner) pause(ctx context.Context) {
	delay := r.cfg.MinDelay
	if span := r.cfg.MaxDelay - r.cfg.MinDelay; span > 0 {
		delay += rand.N(span)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *Runner) publish(eventType string, data map[string]any) {
	if r.deps.Broadcaster == nil {
		return
	}
	data["job_id"] = r.currentJobID()
	r.deps.Broadcaster.Publish(progress.Event{
		Type:      eventType,
		Data:      data,
		Timestamp: r.deps.Clock.Now(),
	})
}

func (r *Runner) recordError(keyword, message string) {
	entry := bid.JobError{
		Keyword:   keyword,
		Message:   message,
		Timestamp: r.deps.Clock.Now(),
	}
	r.mu.Lock()
	r.errs = append(r.errs, entry)
	r.mu.Unlock()
}

func (r *Runner) appendResults(records []bid.AdmittedRecord) {
	if len(records) == 0 {
		return
	}
	r.mu.Lock()
	r.results = append(r.results, records...)
	r.mu.Unlock()
}

func (r *Runner) advanceCursor() {
	r.mu.Lock()
	r.cursor++
	r.mu.Unlock()
}

func (r *Runner) setCurrentKeyword(keyword string) {
	r.mu.Lock()
	r.currentKeyword = keyword
	r.mu.Unlock()
}

func (r *Runner) currentJobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobID
}

func (r *Runner) keywordCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keywords)
}

func (r *Runner) keywordSnapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keywords...)
}

func (r *Runner) seenSet() *filter.SeenSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen
}
