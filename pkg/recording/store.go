package recording

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teslashibe/go-affect/pkg/model"
)

// Store persists recordings by key.
type Store interface {
	// Save writes r and returns its key.
	Save(ctx context.Context, r *Recording) (string, error)

	// Load reads the recording stored under key.
	Load(ctx context.Context, key string) (*Recording, error)

	// List returns the keys of every recording with the given label, sorted.
	List(ctx context.Context, label model.Emotion) ([]string, error)
}

// DirStore keeps recordings as files in one directory.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *DirStore) Dir() string { return s.dir }

// Save implements Store. The file is written to a temp name and renamed.
func (s *DirStore) Save(ctx context.Context, r *Recording) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := r.Key()
	tmp, err := os.CreateTemp(s.dir, ".rec-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, r); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		return "", fmt.Errorf("rename recording: %w", err)
	}
	return key, nil
}

// Load implements Store.
func (s *DirStore) Load(ctx context.Context, key string) (*Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key != filepath.Base(key) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// List implements Store.
func (s *DirStore) List(ctx context.Context, label model.Emotion) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store dir: %w", err)
	}
	suffix := "." + label.String() + Ext
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		keys = append(keys, e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}
