package portal

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/browser"
)

// SearchOptions are the per-session knobs applied before the first keyword.
type SearchOptions struct {
	ResultPageSize int
	ExcludeExpired bool
}

// Search submits keywords against the portal search form and waits for the
// result grid.
type Search struct {
	drv    browser.Driver
	opts   SearchOptions
	logger *zap.Logger
}

// NewSearch builds a Search executor.
func NewSearch(drv browser.Driver, opts SearchOptions, logger *zap.Logger) *Search {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Search{
		drv:    drv,
		opts:   opts,
		logger: logger.Named("search"),
	}
}

// ConfigureOptions applies the session search options. It is best-effort: a
// failure is logged as a warning and reported as false, but callers continue
// with the portal defaults rather than aborting the job.
func (s *Search) ConfigureOptions(ctx context.Context) bool {
	ok := true
	if s.opts.ResultPageSize > 0 {
		size := strconv.Itoa(s.opts.ResultPageSize)
		if err := s.drv.SetValue(ctx, selPageSizeBox, size); err != nil {
			s.logger.Warn("result page size not applied", zap.String("size", size), zap.Error(err))
			ok = false
		}
	}
	if s.opts.ExcludeExpired {
		if err := s.drv.Click(ctx, selExcludeClosed); err != nil {
			s.logger.Warn("exclude-expired toggle not applied", zap.Error(err))
			ok = false
		}
	}
	return ok
}

// SubmitKeyword clears the prior input, types the keyword, and triggers the
// search. It returns false when the result grid does not materialize within
// the grid timeout; callers treat that as zero results for this keyword, not
// as an error.
func (s *Search) SubmitKeyword(ctx context.Context, keyword string) bool {
	if err := s.drv.SetValue(ctx, selKeywordInput, keyword); err != nil {
		s.logger.Warn("keyword input failed", zap.String("keyword", keyword), zap.Error(err))
		return false
	}

	if err := s.drv.Click(ctx, selSearchButton); err != nil {
		// The submit button occasionally renders disabled; a carriage return
		// in the input triggers the same form submission.
		if enterErr := s.drv.SendEnter(ctx, selKeywordInput); enterErr != nil {
			s.logger.Warn("search submission failed",
				zap.String("keyword", keyword),
				zap.NamedError("click_err", err),
				zap.NamedError("enter_err", enterErr),
			)
			return false
		}
	}

	if err := s.drv.WaitVisible(ctx, selResultGrid); err != nil {
		s.logger.Info("result grid timeout, treating as zero results",
			zap.String("keyword", keyword), zap.Error(err))
		return false
	}
	return true
}
