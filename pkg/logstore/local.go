package logstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes output to the filesystem, used both standalone
// (no s3_bucket configured) and as the fallback behind the circuit
// breaker wrapping S3Store.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a filesystem-backed store rooted at basePath.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

func (l *LocalStore) Store(ctx context.Context, executionID string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, executionID+".log")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archived output: %w", err)
	}
	return path, nil
}

func (l *LocalStore) Retrieve(ctx context.Context, reference string) ([]byte, error) {
	return os.ReadFile(reference)
}
