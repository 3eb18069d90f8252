// Package browser abstracts the headless browser session used to drive the
// procurement portal. The portal is a stateful JavaScript application, so a
// single exclusively-owned session (one browser, one active tab) is shared by
// every navigation the pipeline performs.
package browser

import (
	"context"
	"errors"
)

// ErrSessionClosed indicates the browser session has been released.
var ErrSessionClosed = errors.New("browser session closed")

// Driver is the minimal element-level surface the pipeline needs from a
// headless browser. Every call is a suspension point and honors ctx.
type Driver interface {
	// Navigate loads url in the session's main tab.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the selector is present and displayed, or the
	// driver's wait timeout elapses.
	WaitVisible(ctx context.Context, sel string) error
	// IsPresent reports whether the selector matches a displayed element. It
	// does not wait.
	IsPresent(ctx context.Context, sel string) (bool, error)
	// Click dispatches a click on the first match of sel.
	Click(ctx context.Context, sel string) error
	// SetValue clears the matched input and types text into it.
	SetValue(ctx context.Context, sel, text string) error
	// SendEnter submits the focused form control matched by sel.
	SendEnter(ctx context.Context, sel string) error
	// SendEscape sends an escape keystroke to the page body.
	SendEscape(ctx context.Context) error
	// Text returns the visible text of the first match of sel.
	Text(ctx context.Context, sel string) (string, error)
	// AttrValue returns the given attribute of the first match of sel.
	AttrValue(ctx context.Context, sel, attr string) (string, bool, error)
	// OuterHTML returns the serialized HTML of the first match of sel.
	OuterHTML(ctx context.Context, sel string) (string, error)
	// Screenshot captures the full page as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// Targets lists the ids of all open windows/tabs. The first element is
	// always the main session tab.
	Targets(ctx context.Context) ([]string, error)
	// CloseTarget closes the window/tab with the given id.
	CloseTarget(ctx context.Context, id string) error
	// Close releases the session. The driver is unusable afterwards.
	Close(ctx context.Context) error
}
