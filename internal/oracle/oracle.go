// Package oracle wraps the external AI completion service used as the
// fallback extractor for detail pages. Oracle output is untrusted: it may be
// prose, fenced JSON, or garbage, and the parser never raises.
package oracle

import (
	"context"
)

// Oracle is a text/vision completion service. image may be nil for text-only
// prompts; when present it is a PNG screenshot of the page being extracted.
type Oracle interface {
	Complete(ctx context.Context, prompt string, image []byte) (string, error)
}
