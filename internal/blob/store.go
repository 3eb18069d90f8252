// Package blob archives the screenshots captured for the AI-vision fallback
// tier so an operator can audit what the oracle was shown.
package blob

import "context"

// Store writes raw artifacts and returns a URI.
type Store interface {
	PutObject(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// Noop discards every write. It is the default when screenshot archival is
// not configured.
type Noop struct{}

// PutObject discards data and returns an empty URI.
func (Noop) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	return "", nil
}
