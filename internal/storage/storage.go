// Package storage keeps binary artifacts: exported plans and room photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid blob path")

// Handle identifies a stored blob
type Handle struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Blobs is the blob storage contract
type Blobs interface {
	Upload(ctx context.Context, p string, data []byte) (Handle, error)
	DownloadURL(h Handle) string
	Open(h Handle) (*os.File, error)
}

// FS stores blobs under a root directory and serves them below baseURL
type FS struct {
	root    string
	baseURL string
}

// NewFS creates the root directory if needed
func NewFS(root, baseURL string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &FS{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory blobs live in
func (s *FS) Root() string { return s.root }

func (s *FS) resolve(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Upload writes data at p. Existing blobs are never overwritten.
func (s *FS) Upload(ctx context.Context, p string, data []byte) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	full, err := s.resolve(p)
	if err != nil {
		return Handle{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Handle{}, fmt.Errorf("failed to create blob directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create blob %s: %w", p, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(full)
		return Handle{}, fmt.Errorf("failed to write blob %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return Handle{}, fmt.Errorf("failed to write blob %s: %w", p, err)
	}
	return Handle{Path: strings.TrimPrefix(path.Clean("/"+p), "/"), Size: int64(len(data))}, nil
}

// DownloadURL returns the public URL of h
func (s *FS) DownloadURL(h Handle) string {
	parts := strings.Split(h.Path, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return s.baseURL + "/" + strings.Join(parts, "/")
}

// Open opens a stored blob for reading
func (s *FS) Open(h Handle) (*os.File, error) {
	full, err := s.resolve(h.Path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}
