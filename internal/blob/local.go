package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes artifacts to the local filesystem under a base directory.
type Local struct {
	baseDir string
}

// NewLocal creates a filesystem-backed store rooted at baseDir.
func NewLocal(baseDir string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

// PutObject writes data under the base directory and returns a file:// URI.
func (s *Local) PutObject(ctx context.Context, path, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	target := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return "file://" + target, nil
}
