package portal

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/bid"
	"github.com/narabid/bid-crawler/internal/browser"
)

// Rows extracts candidate records from a loaded result grid.
type Rows struct {
	drv     browser.Driver
	maxRows int
	logger  *zap.Logger
}

// NewRows builds a row extractor. maxRows caps extraction per keyword; zero
// means unbounded.
func NewRows(drv browser.Driver, maxRows int, logger *zap.Logger) *Rows {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rows{
		drv:     drv,
		maxRows: maxRows,
		logger:  logger.Named("rows"),
	}
}

// Extract enumerates grid rows from index zero until the first absent row.
// The grid's own row count is not trusted; a stale count can exceed what the
// grid actually rendered. A failing cell yields an empty string and a failing
// row is skipped, neither aborts the page.
func (r *Rows) Extract(ctx context.Context) []bid.CandidateRecord {
	var records []bid.CandidateRecord
	for row := 0; ; row++ {
		if r.maxRows > 0 && row >= r.maxRows {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}

		present, err := r.drv.IsPresent(ctx, cellSelector(row, colNumber))
		if err != nil {
			r.logger.Warn("row probe failed, stopping extraction", zap.Int("row", row), zap.Error(err))
			break
		}
		if !present {
			break
		}

		rec, ok := r.extractRow(ctx, row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	r.logger.Debug("grid extraction finished", zap.Int("rows", len(records)))
	return records
}

func (r *Rows) extractRow(ctx context.Context, row int) (bid.CandidateRecord, bool) {
	rec := bid.CandidateRecord{
		Category: r.cellText(ctx, row, colCategory),
		Number:   strings.TrimSpace(r.cellText(ctx, row, colNumber)),
		Title:    r.cellText(ctx, row, colTitle),
		Agency:   r.cellText(ctx, row, colAgency),
		Stage:    r.cellText(ctx, row, colStage),
	}
	if rec.Number == "" {
		r.logger.Warn("row has no announcement number, skipping", zap.Int("row", row))
		return bid.CandidateRecord{}, false
	}

	rec.PostedAt = parseDate(r.cellText(ctx, row, colPosted))
	rec.BidStart, rec.BidOpen, rec.BidClose = splitDateCell(r.cellText(ctx, row, colDates))

	if href, ok, err := r.drv.AttrValue(ctx, titleLinkSelector(row), "href"); err == nil && ok {
		rec.DetailURL = strings.TrimSpace(href)
	}
	return rec, true
}

// cellText reads one grid cell, degrading to an empty string on failure.
func (r *Rows) cellText(ctx context.Context, row, col int) string {
	text, err := r.drv.Text(ctx, cellSelector(row, col))
	if err != nil {
		r.logger.Debug("cell text extraction failed",
			zap.Int("row", row), zap.Int("col", col), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}
