// Package filter applies the acceptance policy and dedup to candidate
// records coming off the result grid.
package filter

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/bid"
)

// Policy holds the acceptance predicates applied to every candidate.
type Policy struct {
	// CategoryTokens whitelist business categories; a candidate's category
	// string must contain at least one of them.
	CategoryTokens []string
	// MaxPostAgeDays is how far back (whole days) a post date may lie.
	MaxPostAgeDays int
	// MinLeadTimeDays is the minimum number of days between now and the bid
	// close; anything closing sooner is too late to act on.
	MinLeadTimeDays int
}

// Engine evaluates candidates against the policy and a per-job identity set.
type Engine struct {
	policy Policy
	clock  bid.Clock
	logger *zap.Logger
}

// NewEngine builds an Engine. The clock is injected so date-window boundaries
// are testable.
func NewEngine(policy Policy, clock bid.Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		policy: policy,
		clock:  clock,
		logger: logger.Named("filter"),
	}
}

// Accept runs every acceptance predicate and, when all hold, admits the
// candidate's announcement number into seen in the same logical step.
// A rejected candidate produces nothing beyond a debug log line and is never
// retried within the run.
//
// Candidates whose dates failed to parse pass the corresponding date
// predicate. The portal does not guarantee format uniformity, so the filter
// is deliberately fail-open on unparseable dates; TestRecencyFilterFailsOpen
// documents the trade-off.
func (e *Engine) Accept(candidate bid.CandidateRecord, seen *SeenSet) bool {
	if !e.categoryAllowed(candidate.Category) {
		e.logger.Debug("rejected by category filter",
			zap.String("number", candidate.Number), zap.String("category", candidate.Category))
		return false
	}
	now := e.clock.Now()
	if !e.recentEnough(candidate.PostedAt, now) {
		e.logger.Debug("rejected by recency filter",
			zap.String("number", candidate.Number), zap.Timep("posted_at", candidate.PostedAt))
		return false
	}
	if !e.enoughLeadTime(candidate.BidClose, now) {
		e.logger.Debug("rejected by lead-time filter",
			zap.String("number", candidate.Number), zap.Timep("bid_close", candidate.BidClose))
		return false
	}
	if !seen.Admit(candidate.Number) {
		e.logger.Debug("rejected as duplicate", zap.String("number", candidate.Number))
		return false
	}
	return true
}

func (e *Engine) categoryAllowed(category string) bool {
	for _, token := range e.policy.CategoryTokens {
		if token != "" && strings.Contains(category, token) {
			return true
		}
	}
	return false
}

// recentEnough compares calendar days, not clock times: a post from three
// days ago passes regardless of its time of day.
func (e *Engine) recentEnough(postedAt *time.Time, now time.Time) bool {
	if postedAt == nil {
		return true
	}
	cutoff := dateOnly(now).AddDate(0, 0, -e.policy.MaxPostAgeDays)
	return !dateOnly(*postedAt).Before(cutoff)
}

func (e *Engine) enoughLeadTime(bidClose *time.Time, now time.Time) bool {
	if bidClose == nil {
		return true
	}
	earliest := dateOnly(now).AddDate(0, 0, e.policy.MinLeadTimeDays)
	return !dateOnly(*bidClose).Before(earliest)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
