package portal

import (
	"context"

	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/browser"
)

// Navigator reaches the bid announcement search form from the portal entry
// point, clearing interstitial overlays on the way.
type Navigator struct {
	drv      browser.Driver
	entryURL string
	retries  int
	logger   *zap.Logger
}

// NewNavigator builds a Navigator. retries is the number of full navigation
// attempts per EnsureAtSearchForm call.
func NewNavigator(drv browser.Driver, entryURL string, retries int, logger *zap.Logger) *Navigator {
	if retries <= 0 {
		retries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Navigator{
		drv:      drv,
		entryURL: entryURL,
		retries:  retries,
		logger:   logger.Named("navigator"),
	}
}

// EnsureAtSearchForm drives the browser to the search form and reports
// success. Each attempt restarts from the entry URL, so a failed attempt
// never leaves the session in a partially-navigated state. Success means the
// search submit control was confirmed visible within the driver's wait
// timeout.
func (n *Navigator) EnsureAtSearchForm(ctx context.Context) bool {
	for attempt := 1; attempt <= n.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false
		}
		if err := n.attempt(ctx); err != nil {
			n.logger.Warn("navigation attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", n.retries),
				zap.Error(err),
			)
			continue
		}
		return true
	}
	n.logger.Error("search form unreachable", zap.Int("attempts", n.retries))
	return false
}

func (n *Navigator) attempt(ctx context.Context) error {
	if err := n.drv.Navigate(ctx, n.entryURL); err != nil {
		return err
	}
	n.dismissOverlays(ctx)

	// Menu tree: bid menu -> announcement list -> search form.
	for _, sel := range []string{selMenuBid, selMenuBidList, selSearchFormLink} {
		if err := n.drv.Click(ctx, sel); err != nil {
			return err
		}
	}
	return n.drv.WaitVisible(ctx, selSearchButton)
}

// dismissOverlays closes every secondary window, then works through the known
// in-page close affordances, an escape keystroke, and a focus click on the
// main content region. All steps are best-effort.
func (n *Navigator) dismissOverlays(ctx context.Context) {
	n.closeSecondaryWindows(ctx)

	for _, sel := range closeAffordances {
		present, err := n.drv.IsPresent(ctx, sel)
		if err != nil || !present {
			continue
		}
		if err := n.drv.Click(ctx, sel); err != nil {
			n.logger.Debug("overlay close click failed", zap.String("selector", sel), zap.Error(err))
		}
	}

	if err := n.drv.SendEscape(ctx); err != nil {
		n.logger.Debug("escape keystroke failed", zap.Error(err))
	}
	if err := n.drv.Click(ctx, selMainContent); err != nil {
		n.logger.Debug("main content focus click failed", zap.Error(err))
	}
}

func (n *Navigator) closeSecondaryWindows(ctx context.Context) {
	targets, err := n.drv.Targets(ctx)
	if err != nil {
		n.logger.Debug("window handle enumeration failed", zap.Error(err))
		return
	}
	// The first handle is the main session tab; everything else is a notice
	// or promo window the portal spawned.
	for _, id := range targets[1:] {
		if err := n.drv.CloseTarget(ctx, id); err != nil {
			n.logger.Debug("secondary window close failed", zap.String("target", id), zap.Error(err))
		}
	}
}
