// Package replay re-analyses stored recordings offline. Every recording of a
// label gets its own pipeline; seeking evaluates all of them at one frame
// index in parallel.
//
// Calibration state depends on every frame that came before, so each track
// evaluates its frames strictly in order and caches the results. Seeking back
// to a frame is a cache lookup and always yields the same output; seeking
// forward evaluates only the frames not yet seen.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/recording"
)

// Config tunes an analyzer.
type Config struct {
	Pipeline pipeline.Config

	// Workers caps tracks evaluated concurrently (0 = one per track).
	Workers int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Pipeline: pipeline.DefaultConfig()}
}

// track is one recording and the cached, in-order results of its pipeline.
type track struct {
	rec      *recording.Recording
	pipeline *pipeline.Pipeline
	results  []pipeline.Result
}

// TrackFrame is one recording's state at a seek position.
type TrackFrame struct {
	RecordingID string          `json:"recording_id"`
	Subject     string          `json:"subject"`
	Frames      int             `json:"frames"`
	Ended       bool            `json:"ended"`
	Result      pipeline.Result `json:"result"`
}

// Analyzer holds the tracks of one label.
type Analyzer struct {
	label  model.Emotion
	reg    *emotions.Registry
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	tracks []*track
	length int
}

// Load reads every recording of label from store.
func Load(ctx context.Context, store recording.Store, label model.Emotion, reg *emotions.Registry, cfg Config) (*Analyzer, error) {
	keys, err := store.List(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("list %s recordings: %w", label, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecordings, label)
	}

	recs := make([]*recording.Recording, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, key := range keys {
		g.Go(func() error {
			r, err := store.Load(gctx, key)
			if err != nil {
				return fmt.Errorf("load %s: %w", key, err)
			}
			recs[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return New(label, recs, reg, cfg)
}

// New builds an analyzer over already loaded recordings.
func New(label model.Emotion, recs []*recording.Recording, reg *emotions.Registry, cfg Config) (*Analyzer, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRecordings, label)
	}
	a := &Analyzer{
		label:  label,
		reg:    reg,
		cfg:    cfg,
		logger: log.With("component", "replay", "label", label.String()),
	}
	a.tracks = make([]*track, len(recs))
	for i, r := range recs {
		a.tracks[i] = &track{rec: r}
		if r.Len() > a.length {
			a.length = r.Len()
		}
	}
	if err := a.rebuild(); err != nil {
		return nil, err
	}
	a.logger.Info("analysis loaded", "recordings", len(recs), "frames", a.length)
	return a, nil
}

// Label returns the analysed emotion.
func (a *Analyzer) Label() model.Emotion { return a.label }

// Len returns the frame count of the longest recording.
func (a *Analyzer) Len() int { return a.length }

// Recordings returns how many tracks are loaded.
func (a *Analyzer) Recordings() int { return len(a.tracks) }

// Reset discards every cached result and starts all tracks with fresh
// calibration.
func (a *Analyzer) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rebuild()
}

// rebuild creates fresh pipelines. Called with mu held or before publication.
func (a *Analyzer) rebuild() error {
	for _, t := range a.tracks {
		p, err := pipeline.New(t.rec.Subject, a.reg, a.cfg.Pipeline)
		if err != nil {
			return fmt.Errorf("pipeline for %s: %w", t.rec.ID, err)
		}
		// Recordings without a stored reference calibrate from their own
		// opening frames.
		if !t.rec.Reference.Empty() {
			p.SetReference(t.rec.Reference, t.rec.ReferencePose)
		}
		t.pipeline = p
		t.results = t.results[:0]
	}
	return nil
}

// Seek returns every track's result at frame. Tracks shorter than frame report
// their final result with Ended set.
func (a *Analyzer) Seek(ctx context.Context, frame int) ([]TrackFrame, error) {
	if frame < 0 || frame >= a.length {
		return nil, fmt.Errorf("%w: %d of %d", recording.ErrFrameOutOfRange, frame, a.length)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.evaluate(ctx, frame); err != nil {
		return nil, err
	}

	out := make([]TrackFrame, len(a.tracks))
	for i, t := range a.tracks {
		tf := TrackFrame{
			RecordingID: t.rec.ID,
			Subject:     t.rec.Subject,
			Frames:      t.rec.Len(),
		}
		switch {
		case frame < len(t.results):
			tf.Result = t.results[frame]
		case len(t.results) > 0:
			tf.Ended = true
			tf.Result = t.results[len(t.results)-1]
		default:
			tf.Ended = true
		}
		out[i] = tf
	}
	return out, nil
}

// evaluate brings every track's cache up to frame. Called with mu held.
func (a *Analyzer) evaluate(ctx context.Context, frame int) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.Workers > 0 {
		g.SetLimit(a.cfg.Workers)
	}
	for _, t := range a.tracks {
		if len(t.results) > frame || len(t.results) >= t.rec.Len() {
			continue
		}
		g.Go(func() error {
			return t.advance(gctx, frame)
		})
	}
	return g.Wait()
}

// advance evaluates frames in order until the cache covers frame or the
// recording ends.
func (t *track) advance(ctx context.Context, frame int) error {
	last := min(frame, t.rec.Len()-1)
	for i := len(t.results); i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := t.rec.Frame(i)
		if err != nil {
			return err
		}
		// Module failures are carried in the result; they do not stop replay.
		res, _ := t.pipeline.Process(s)
		t.results = append(t.results, res)
	}
	return nil
}
