package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/bid"
	"github.com/narabid/bid-crawler/internal/blob"
	"github.com/narabid/bid-crawler/internal/browser"
	"github.com/narabid/bid-crawler/internal/metrics"
	"github.com/narabid/bid-crawler/internal/oracle"
	"github.com/narabid/bid-crawler/internal/portal"
)

// PageFetcher retrieves a detail page's HTML by direct URL.
// portal.DetailFetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config controls the extraction chain.
type Config struct {
	Strategy Strategy
	// MinFields is the DOM-pass field count below which the oracle tier runs.
	// The production default is 5; treat it as tunable, not as an invariant.
	MinFields int
}

// Extractor produces a DetailRecord for one admitted announcement. Extract
// never returns an error: every failure degrades toward a partial record that
// carries at least the announcement identity.
type Extractor struct {
	drv     browser.Driver
	fetcher PageFetcher
	oracle  oracle.Oracle
	shots   blob.Store
	cfg     Config
	logger  *zap.Logger
}

// New builds an Extractor. fetcher, orc, and shots may each be nil; the
// corresponding tier or side effect is skipped.
func New(drv browser.Driver, fetcher PageFetcher, orc oracle.Oracle, shots blob.Store, cfg Config, logger *zap.Logger) *Extractor {
	if cfg.MinFields <= 0 {
		cfg.MinFields = 5
	}
	if shots == nil {
		shots = blob.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		drv:     drv,
		fetcher: fetcher,
		oracle:  orc,
		shots:   shots,
		cfg:     cfg,
		logger:  logger.Named("extract"),
	}
}

// Extract runs the chain for one admitted record: DOM pass, gap check,
// oracle fallback, DOM-wins merge.
func (e *Extractor) Extract(ctx context.Context, rec bid.AdmittedRecord) bid.DetailRecord {
	start := time.Now()
	defer func() {
		metrics.DetailDuration.Observe(time.Since(start).Seconds())
	}()

	detail, pageText := e.domPass(ctx, rec)
	detail.ExtractedVia = "dom"

	if detail.FieldCount() >= e.cfg.MinFields || e.cfg.Strategy == StrategyDOMOnly || e.oracle == nil {
		return detail
	}

	metrics.OracleFallbacks.Inc()
	aiFields := e.oraclePass(ctx, rec, pageText)
	if len(aiFields) == 0 {
		return detail
	}
	mergeAIFields(&detail, aiFields)
	detail.ExtractedVia = "dom+" + e.cfg.Strategy.String()
	return detail
}

// domPass fetches the detail page and runs the table parse. Any failure is
// treated as "the DOM pass yielded nothing" so the chain escalates to the
// oracle tier.
func (e *Extractor) domPass(ctx context.Context, rec bid.AdmittedRecord) (detail bid.DetailRecord, pageText string) {
	detail = bid.DetailRecord{Number: rec.Number}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("dom pass panicked",
				zap.String("number", rec.Number), zap.Any("panic", r))
			detail = bid.DetailRecord{Number: rec.Number}
			pageText = ""
		}
	}()

	html, err := e.pageHTML(ctx, rec)
	if err != nil {
		e.logger.Warn("detail page unavailable",
			zap.String("number", rec.Number), zap.Error(err))
		return detail, ""
	}

	parsed, text, err := portal.ParseDetailHTML(html, rec.Number)
	if err != nil {
		e.logger.Warn("dom pass failed",
			zap.String("number", rec.Number), zap.Error(err))
		return detail, ""
	}
	return parsed, text
}

// pageHTML prefers a plain HTTP fetch of the row's direct URL and falls back
// to navigating the browser session there.
func (e *Extractor) pageHTML(ctx context.Context, rec bid.AdmittedRecord) (string, error) {
	if rec.DetailURL == "" {
		return "", fmt.Errorf("record %s has no detail url", rec.Number)
	}
	if e.fetcher != nil {
		html, err := e.fetcher.Fetch(ctx, rec.DetailURL)
		if err == nil && strings.TrimSpace(html) != "" {
			return html, nil
		}
		if err != nil {
			e.logger.Debug("direct detail fetch failed, using browser session",
				zap.String("number", rec.Number), zap.Error(err))
		}
	}
	if err := e.drv.Navigate(ctx, rec.DetailURL); err != nil {
		return "", err
	}
	return e.drv.OuterHTML(ctx, "html")
}

// oraclePass runs the AI tier and returns whatever fields the oracle
// recovered. Every failure path returns an empty map; the oracle never fails
// the extraction.
func (e *Extractor) oraclePass(ctx context.Context, rec bid.AdmittedRecord, pageText string) map[string]string {
	prompt := buildPrompt(rec.Number, pageText)

	var image []byte
	if e.cfg.Strategy == StrategyAIVision {
		shot, err := e.screenshot(ctx, rec)
		if err != nil {
			e.logger.Warn("screenshot capture failed, falling back to text prompt",
				zap.String("number", rec.Number), zap.Error(err))
		} else {
			image = shot
		}
	}

	reply, err := e.oracle.Complete(ctx, prompt, image)
	if err != nil {
		e.logger.Warn("oracle call failed",
			zap.String("number", rec.Number), zap.Error(err))
		return map[string]string{}
	}
	return oracle.ParseJSON(reply)
}

func (e *Extractor) screenshot(ctx context.Context, rec bid.AdmittedRecord) ([]byte, error) {
	if rec.DetailURL != "" {
		if err := e.drv.Navigate(ctx, rec.DetailURL); err != nil {
			return nil, err
		}
	}
	shot, err := e.drv.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	e.archiveScreenshot(ctx, rec.Number, shot)
	return shot, nil
}

// archiveScreenshot stores the captured page for audit. Best-effort.
func (e *Extractor) archiveScreenshot(ctx context.Context, number string, shot []byte) {
	path := fmt.Sprintf("screenshots/%s.png", number)
	uri, err := e.shots.PutObject(ctx, path, "image/png", shot)
	if err != nil {
		e.logger.Warn("screenshot archive failed", zap.String("number", number), zap.Error(err))
		return
	}
	if uri != "" {
		e.logger.Debug("screenshot archived", zap.String("number", number), zap.String("uri", uri))
	}
}
