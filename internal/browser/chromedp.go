package browser

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config controls the chromedp session.
type Config struct {
	UserAgent   string
	NavTimeout  time.Duration
	WaitTimeout time.Duration
	// NavQPS caps navigations per second against the portal host. Zero
	// disables the limiter.
	NavQPS float64
	// Headful disables headless mode for local debugging.
	Headful bool
}

// ChromedpDriver drives one headless Chrome session via chromedp. It owns the
// allocator, the browser context, and a single main tab; callers must not run
// concurrent navigations against it.
type ChromedpDriver struct {
	allocatorCancel context.CancelFunc
	browserCancel   context.CancelFunc
	tab             context.Context
	tabCancel       context.CancelFunc
	logger          *zap.Logger
	limiter         *rate.Limiter
	navTimeout      time.Duration
	waitTimeout     time.Duration
	closed          atomic.Bool
}

// NewChromedpDriver starts a browser session using the provided configuration.
func NewChromedpDriver(cfg Config, logger *zap.Logger) (*ChromedpDriver, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", !cfg.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.NavQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.NavQPS), 1)
	}

	return &ChromedpDriver{
		allocatorCancel: allocatorCancel,
		browserCancel:   browserCancel,
		tab:             browserCtx,
		tabCancel:       browserCancel,
		logger:          logger,
		limiter:         limiter,
		navTimeout:      cfg.NavTimeout,
		waitTimeout:     cfg.WaitTimeout,
	}, nil
}

// Close tears down the chromedp browser and allocator contexts.
func (d *ChromedpDriver) Close(ctx context.Context) error {
	if d == nil || !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.browserCancel()
	d.allocatorCancel()
	return nil
}

// Navigate loads url in the main tab, honoring the politeness limiter.
func (d *ChromedpDriver) Navigate(ctx context.Context, url string) error {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("navigation rate limit: %w", err)
		}
	}
	return d.run(ctx, d.navTimeout, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

// WaitVisible blocks until sel is displayed or the wait timeout elapses.
func (d *ChromedpDriver) WaitVisible(ctx context.Context, sel string) error {
	return d.run(ctx, d.waitTimeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// IsPresent checks for a displayed match of sel without waiting.
func (d *ChromedpDriver) IsPresent(ctx context.Context, sel string) (bool, error) {
	var present bool
	script := fmt.Sprintf(
		`(() => { const e = document.querySelector(%q); return !!e && e.offsetParent !== null; })()`, sel)
	if err := d.run(ctx, d.waitTimeout, chromedp.Evaluate(script, &present)); err != nil {
		return false, err
	}
	return present, nil
}

// Click dispatches a click on the first match of sel.
func (d *ChromedpDriver) Click(ctx context.Context, sel string) error {
	return d.run(ctx, d.waitTimeout, chromedp.Click(sel, chromedp.ByQuery))
}

// SetValue clears the input matched by sel and types text into it.
func (d *ChromedpDriver) SetValue(ctx context.Context, sel, text string) error {
	return d.run(ctx, d.waitTimeout,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	)
}

// SendEnter sends a carriage-return keystroke to sel.
func (d *ChromedpDriver) SendEnter(ctx context.Context, sel string) error {
	return d.run(ctx, d.waitTimeout, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery))
}

// SendEscape sends an escape keystroke to the page.
func (d *ChromedpDriver) SendEscape(ctx context.Context) error {
	return d.run(ctx, d.waitTimeout, chromedp.KeyEvent(kb.Escape))
}

// Text returns the visible text of the first match of sel.
func (d *ChromedpDriver) Text(ctx context.Context, sel string) (string, error) {
	var text string
	if err := d.run(ctx, d.waitTimeout, chromedp.Text(sel, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

// AttrValue returns the given attribute of the first match of sel.
func (d *ChromedpDriver) AttrValue(ctx context.Context, sel, attr string) (string, bool, error) {
	var value string
	var ok bool
	if err := d.run(ctx, d.waitTimeout, chromedp.AttributeValue(sel, attr, &value, &ok, chromedp.ByQuery)); err != nil {
		return "", false, err
	}
	return value, ok, nil
}

// OuterHTML returns the serialized HTML of the first match of sel.
func (d *ChromedpDriver) OuterHTML(ctx context.Context, sel string) (string, error) {
	var html string
	if err := d.run(ctx, d.navTimeout, chromedp.OuterHTML(sel, &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Screenshot captures the full page as PNG bytes.
func (d *ChromedpDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, d.navTimeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Targets lists open page targets; the main session tab is first.
func (d *ChromedpDriver) Targets(ctx context.Context) ([]string, error) {
	if d.closed.Load() {
		return nil, ErrSessionClosed
	}
	infos, err := chromedp.Targets(d.tab)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	mainID := mainTargetID(d.tab)
	ids := make([]string, 0, len(infos))
	if mainID != "" {
		ids = append(ids, mainID)
	}
	for _, info := range infos {
		if info.Type != "page" || string(info.TargetID) == mainID {
			continue
		}
		ids = append(ids, string(info.TargetID))
	}
	return ids, nil
}

// CloseTarget closes the window/tab with the given id.
func (d *ChromedpDriver) CloseTarget(ctx context.Context, id string) error {
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		return target.CloseTarget(target.ID(id)).Do(ctx)
	})
	return d.run(ctx, d.waitTimeout, action)
}

func (d *ChromedpDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if d.closed.Load() {
		return ErrSessionClosed
	}
	taskCtx, cancelTask := context.WithTimeout(d.tab, timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func mainTargetID(tab context.Context) string {
	if c := chromedp.FromContext(tab); c != nil && c.Target != nil {
		return string(c.Target.TargetID)
	}
	return ""
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
