package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ProofStore persists payment proof documents on disk under a base
// directory. The core never inspects file contents; it only enforces
// the size and MIME constraints handed to it.
type ProofStore struct {
	baseDir      string
	maxSizeBytes int64
	allowedMIMEs map[string]struct{}
}

// NewProofStore ensures the base directory exists and returns a handle.
func NewProofStore(baseDir string, maxSizeBytes int64, allowedMIMEs []string) (*ProofStore, error) {
	if baseDir == "" {
		baseDir = "./proofs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create proofs directory: %w", err)
	}
	mimes := make(map[string]struct{}, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		mimes[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &ProofStore{baseDir: baseDir, maxSizeBytes: maxSizeBytes, allowedMIMEs: mimes}, nil
}

// Validate checks the declared content type and size before a write.
func (s *ProofStore) Validate(contentType string, size int64) error {
	if s.maxSizeBytes > 0 && size > s.maxSizeBytes {
		return fmt.Errorf("proof exceeds maximum size of %d bytes", s.maxSizeBytes)
	}
	if len(s.allowedMIMEs) > 0 {
		if _, ok := s.allowedMIMEs[strings.ToLower(contentType)]; !ok {
			return fmt.Errorf("content type %s not allowed", contentType)
		}
	}
	return nil
}

// Save copies the reader into the target relative path under the base dir.
func (s *ProofStore) Save(relPath string, r io.Reader) (string, error) {
	path := s.resolve(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare proof directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write proof file: %w", err)
	}
	return relPath, nil
}

// Open returns a read-only handle for a stored proof.
func (s *ProofStore) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open proof file: %w", err)
	}
	return file, nil
}

// Delete removes a stored proof if present.
func (s *ProofStore) Delete(relPath string) error {
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete proof file: %w", err)
	}
	return nil
}

func (s *ProofStore) resolve(relPath string) string {
	clean := filepath.Clean("/" + relPath)
	return filepath.Join(s.baseDir, clean)
}
