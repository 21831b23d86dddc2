package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const pendingPrefix = ".pending-"

// blobStore keeps entry bytes under the media root.
// All paths handled here are slash-separated and relative to root.
type blobStore struct {
	root string // absolute path to media root
}

func newBlobStore(root string) (*blobStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("catalog: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("catalog: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog: root is not a directory: %s", abs)
	}
	return &blobStore{root: abs}, nil
}

// safePath resolves rel against the root and rejects anything that escapes it.
func (b *blobStore) safePath(rel string) (string, error) {
	if rel == "" {
		return b.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("catalog: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(b.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("catalog: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, b.root+string(os.PathSeparator)) && abs != b.root {
		return "", fmt.Errorf("catalog: path escapes media root: %s", rel)
	}
	return abs, nil
}

// rel converts an absolute path under root back to slash form.
func (b *blobStore) rel(abs string) (string, error) {
	r, err := filepath.Rel(b.root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(r), nil
}

func (b *blobStore) exists(rel string) bool {
	abs, err := b.safePath(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// create truncates or creates the file at rel, creating parent directories.
func (b *blobStore) create(rel string) (*os.File, error) {
	abs, err := b.safePath(rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("catalog: mkdir: %w", err)
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("catalog: create %s: %w", rel, err)
	}
	return f, nil
}

// publish moves the pending file into its final place. An entry whose stream
// was never opened is published as an empty file.
func (b *blobStore) publish(pendingRel, finalRel string) error {
	src, err := b.safePath(pendingRel)
	if err != nil {
		return err
	}
	dst, err := b.safePath(finalRel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("catalog: mkdir: %w", err)
	}
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		f, err := b.create(pendingRel)
		if err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("catalog: close empty blob: %w", err)
		}
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("catalog: publish %s: %w", finalRel, err)
	}
	return nil
}

// unpublish reverses publish after a failed commit.
func (b *blobStore) unpublish(pendingRel, finalRel string) error {
	src, err := b.safePath(finalRel)
	if err != nil {
		return err
	}
	dst, err := b.safePath(pendingRel)
	if err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (b *blobStore) open(rel string) (*os.File, error) {
	abs, err := b.safePath(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", rel, err)
	}
	return f, nil
}

// remove deletes the file at rel. A missing file is not an error.
func (b *blobStore) remove(rel string) error {
	abs, err := b.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("catalog: remove %s: %w", rel, err)
	}
	return nil
}

// pendingPath is where the bytes of a pending entry live until it is published.
func pendingPath(id Handle, finalPath string) string {
	return path.Join(path.Dir(finalPath), pendingPrefix+string(id))
}

func isPendingFile(name string) bool {
	return strings.HasPrefix(path.Base(filepath.ToSlash(name)), pendingPrefix)
}
