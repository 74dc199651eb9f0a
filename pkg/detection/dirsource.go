package detection

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"
	_ "golang.org/x/image/webp" // register webp with image.Decode

	"github.com/teslashibe/go-affect/pkg/landmark"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".gif": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// DirSource turns the images of a directory into samples, in file name
// order. With Watch set it keeps running and picks up images as they are
// written into the directory.
type DirSource struct {
	dir     string
	locator Locator
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending []string
	seen    map[string]bool
	index   int
	closed  bool
	done    chan struct{}
}

// DirOptions configures a DirSource.
type DirOptions struct {
	Watch bool
}

// OpenDir lists the images already in dir and, if watching, subscribes to
// new ones.
func OpenDir(dir string, loc Locator, opts DirOptions) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	s := &DirSource{
		dir:     dir,
		locator: loc,
		seen:    make(map[string]bool),
		done:    make(chan struct{}),
	}
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) {
			s.enqueue(filepath.Join(dir, e.Name()))
		}
	}

	if opts.Watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		s.watcher = w
	}
	return s, nil
}

// enqueue adds a not yet seen image, keeping pending sorted.
func (s *DirSource) enqueue(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[path] {
		return
	}
	s.seen[path] = true
	s.pending = append(s.pending, path)
	sort.Strings(s.pending)
}

func (s *DirSource) pop() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return "", false
	}
	p := s.pending[0]
	s.pending = s.pending[1:]
	return p, true
}

// forget lets a path be queued again, for files read before they were
// completely written.
func (s *DirSource) forget(path string) {
	s.mu.Lock()
	delete(s.seen, path)
	s.mu.Unlock()
}

// Next implements landmark.Source.
func (s *DirSource) Next(ctx context.Context) (landmark.Sample, error) {
	for {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return landmark.Sample{}, landmark.ErrSourceClosed
		}

		if path, ok := s.pop(); ok {
			return s.process(path)
		}
		if s.watcher == nil {
			return landmark.Sample{}, landmark.ErrSourceClosed
		}

		select {
		case <-ctx.Done():
			return landmark.Sample{}, ctx.Err()
		case <-s.done:
			return landmark.Sample{}, landmark.ErrSourceClosed
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return landmark.Sample{}, landmark.ErrSourceClosed
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				if IsImage(ev.Name) {
					s.enqueue(ev.Name)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return landmark.Sample{}, landmark.ErrSourceClosed
			}
			return landmark.Sample{}, fmt.Errorf("watch %s: %w", s.dir, err)
		}
	}
}

func (s *DirSource) process(path string) (landmark.Sample, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		if s.watcher != nil {
			s.forget(path)
		}
		return landmark.Sample{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	face, ok, err := s.locator.Locate(img)
	if err != nil && !errors.Is(err, ErrEmptyImage) {
		return landmark.Sample{}, fmt.Errorf("locate %s: %w", filepath.Base(path), err)
	}

	s.mu.Lock()
	idx := s.index
	s.index++
	s.mu.Unlock()

	ok = ok && face.Usable()
	sample := landmark.Sample{Index: idx, Time: modTime(path), Detected: ok}
	if ok {
		sample.Frame = face.Frame
		sample.Pose = face.Pose
	}
	return sample, nil
}

func modTime(path string) time.Time {
	if fi, err := os.Stat(path); err == nil {
		return fi.ModTime()
	}
	return time.Now()
}

// Close implements landmark.Source.
func (s *DirSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// Name implements landmark.Source.
func (s *DirSource) Name() string { return "dir" }
