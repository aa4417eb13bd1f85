package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wipash/northgrove-timelapse/internal/fileutil"
)

// DirStore implements Store on top of a local directory. It backs tests and
// `--no-upload` style offline runs where a bucket is unavailable.
type DirStore struct {
	root string
}

// NewDirStore creates the backing directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("remote: dir store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("remote: ensure dir store root: %w", err)
	}
	return &DirStore{root: root}, nil
}

func (d *DirStore) path(key string) string {
	return filepath.Join(d.root, filepath.FromSlash(key))
}

func (d *DirStore) Exists(_ context.Context, key string) (bool, error) {
	info, err := os.Stat(d.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remote: stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

func (d *DirStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("remote: open %s: %w", key, err)
	}
	return f, nil
}

func (d *DirStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if err := fileutil.WriteAtomic(d.path(key), body); err != nil {
		return fmt.Errorf("remote: put %s: %w", key, err)
	}
	return nil
}

func (d *DirStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(d.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remote: delete %s: %w", key, err)
	}
	return nil
}

func (d *DirStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remote: list %q: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}
