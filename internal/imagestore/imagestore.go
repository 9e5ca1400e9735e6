// Package imagestore manages scanned page images on disk: uploads land in an
// archive directory named by content checksum, and inbox files move to a
// processed or failed subdirectory once handled.
package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/dagaz/internal/checksum"
)

// Store is the interface for image archival operations.
type Store interface {
	// SaveUpload writes data into the archive; the stored name is derived
	// from the content checksum so re-uploads dedupe naturally.
	SaveUpload(origName string, data []byte) (string, error)
	// MoveProcessed relocates a handled inbox file into processed/.
	MoveProcessed(path string) (string, error)
	// MoveFailed relocates an unhandled inbox file into failed/.
	MoveFailed(path string) (string, error)
}

// FS implements Store backed by the local file system.
type FS struct {
	root string // absolute path to the archive directory
}

var _ Store = (*FS)(nil)

// NewFS creates an FS store rooted at dir, creating it if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("imagestore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create root: %w", err)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("imagestore: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("imagestore: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("imagestore: path escapes archive root: %s", rel)
	}
	return abs, nil
}

// SaveUpload atomically writes data: tmp file, fsync, rename. The final name
// is <sha256-prefix><ext>, so uploading the same bytes twice stores one file.
func (f *FS) SaveUpload(origName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(origName))
	name := checksum.Short(data, 16) + ext
	abs, err := f.safePath(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(f.root, ".dagaz-tmp-*")
	if err != nil {
		return "", fmt.Errorf("imagestore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("imagestore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("imagestore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("imagestore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("imagestore: rename: %w", err)
	}
	success = true
	return abs, nil
}

// MoveProcessed moves a handled file into processed/, timestamping the name
// to avoid collisions between scans of identically named pages.
func (f *FS) MoveProcessed(path string) (string, error) {
	return f.moveTo("processed", path)
}

// MoveFailed moves an unhandled file into failed/ for manual inspection.
func (f *FS) MoveFailed(path string) (string, error) {
	return f.moveTo("failed", path)
}

func (f *FS) moveTo(sub, path string) (string, error) {
	dir := filepath.Join(f.root, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("imagestore: create %s dir: %w", sub, err)
	}
	base := filepath.Base(path)
	dest := filepath.Join(dir, base)
	if _, err := os.Stat(dest); err == nil {
		stamp := time.Now().Format("20060102-150405")
		ext := filepath.Ext(base)
		dest = filepath.Join(dir, strings.TrimSuffix(base, ext)+"-"+stamp+ext)
	}
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("imagestore: move to %s: %w", sub, err)
	}
	return dest, nil
}
