package browser

import (
	"context"
	"sync"
)

// Fake is a scripted in-memory Driver used by pipeline tests. Selector lookups
// are served from maps the test populates; every call is appended to Calls so
// tests can assert navigation order.
type Fake struct {
	mu sync.Mutex

	// Texts maps selector -> visible text.
	Texts map[string]string
	// Attrs maps selector+"@"+attr -> value.
	Attrs map[string]string
	// Present holds selectors that IsPresent and WaitVisible report as shown.
	Present map[string]bool
	// HTML maps selector -> outer HTML.
	HTML map[string]string
	// OpenTargets is returned by Targets; the first entry is the main tab.
	OpenTargets []string
	// Errs maps a method name (e.g. "Navigate") to an error to return.
	Errs map[string]error
	// ScreenshotPNG is returned by Screenshot.
	ScreenshotPNG []byte

	Calls  []string
	closed bool
}

// NewFake returns an empty scripted driver.
func NewFake() *Fake {
	return &Fake{
		Texts:       map[string]string{},
		Attrs:       map[string]string{},
		Present:     map[string]bool{},
		HTML:        map[string]string{},
		OpenTargets: []string{"main"},
		Errs:        map[string]error{},
	}
}

func (f *Fake) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
	if f.closed {
		return ErrSessionClosed
	}
	return nil
}

func (f *Fake) err(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Errs[method]
}

// CallLog returns a copy of the recorded calls.
func (f *Fake) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// Navigate records the visit and returns any scripted error.
func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := f.record("Navigate:" + url); err != nil {
		return err
	}
	return f.err("Navigate")
}

// WaitVisible succeeds when the selector is scripted as present.
func (f *Fake) WaitVisible(ctx context.Context, sel string) error {
	if err := f.record("WaitVisible:" + sel); err != nil {
		return err
	}
	if err := f.err("WaitVisible"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Present[sel] {
		return context.DeadlineExceeded
	}
	return nil
}

// IsPresent reports the scripted presence of sel.
func (f *Fake) IsPresent(ctx context.Context, sel string) (bool, error) {
	if err := f.record("IsPresent:" + sel); err != nil {
		return false, err
	}
	if err := f.err("IsPresent"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Present[sel], nil
}

// Click records the click.
func (f *Fake) Click(ctx context.Context, sel string) error {
	if err := f.record("Click:" + sel); err != nil {
		return err
	}
	return f.err("Click")
}

// SetValue records the typed text.
func (f *Fake) SetValue(ctx context.Context, sel, text string) error {
	if err := f.record("SetValue:" + sel + "=" + text); err != nil {
		return err
	}
	return f.err("SetValue")
}

// SendEnter records the keystroke.
func (f *Fake) SendEnter(ctx context.Context, sel string) error {
	if err := f.record("SendEnter:" + sel); err != nil {
		return err
	}
	return f.err("SendEnter")
}

// SendEscape records the keystroke.
func (f *Fake) SendEscape(ctx context.Context) error {
	if err := f.record("SendEscape"); err != nil {
		return err
	}
	return f.err("SendEscape")
}

// Text returns the scripted text for sel.
func (f *Fake) Text(ctx context.Context, sel string) (string, error) {
	if err := f.record("Text:" + sel); err != nil {
		return "", err
	}
	if err := f.err("Text"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Texts[sel], nil
}

// AttrValue returns the scripted attribute for sel.
func (f *Fake) AttrValue(ctx context.Context, sel, attr string) (string, bool, error) {
	if err := f.record("AttrValue:" + sel + "@" + attr); err != nil {
		return "", false, err
	}
	if err := f.err("AttrValue"); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Attrs[sel+"@"+attr]
	return v, ok, nil
}

// OuterHTML returns the scripted HTML for sel.
func (f *Fake) OuterHTML(ctx context.Context, sel string) (string, error) {
	if err := f.record("OuterHTML:" + sel); err != nil {
		return "", err
	}
	if err := f.err("OuterHTML"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HTML[sel], nil
}

// Screenshot returns the scripted PNG bytes.
func (f *Fake) Screenshot(ctx context.Context) ([]byte, error) {
	if err := f.record("Screenshot"); err != nil {
		return nil, err
	}
	if err := f.err("Screenshot"); err != nil {
		return nil, err
	}
	return f.ScreenshotPNG, nil
}

// Targets returns the scripted open windows.
func (f *Fake) Targets(ctx context.Context) ([]string, error) {
	if err := f.record("Targets"); err != nil {
		return nil, err
	}
	if err := f.err("Targets"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.OpenTargets...), nil
}

// CloseTarget removes the id from the scripted window list.
func (f *Fake) CloseTarget(ctx context.Context, id string) error {
	if err := f.record("CloseTarget:" + id); err != nil {
		return err
	}
	if err := f.err("CloseTarget"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining := f.OpenTargets[:0]
	for _, t := range f.OpenTargets {
		if t != id {
			remaining = append(remaining, t)
		}
	}
	f.OpenTargets = remaining
	return nil
}

// Close marks the session closed; further calls fail with ErrSessionClosed.
func (f *Fake) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "Close")
	f.closed = true
	return nil
}
