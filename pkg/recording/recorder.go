package recording

import (
	"context"
	"sync"

	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/model"
)

// Recorder accumulates live samples into a recording. Samples are only kept
// once a reference is set; setting a new reference starts a fresh take.
type Recorder struct {
	store Store

	mu     sync.Mutex
	rec    *Recording
	hasRef bool
}

// NewRecorder creates a recorder that saves into store.
func NewRecorder(store Store, subject string, label model.Emotion, frameRate float64) *Recorder {
	return &Recorder{
		store: store,
		rec:   New(subject, label, frameRate),
	}
}

// SetReference installs the reference. If the current take already has
// samples, a new take with a fresh id begins; call Finish first to keep it.
func (r *Recorder) SetReference(f landmark.Frame, pose landmark.Pose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rec.Samples) > 0 {
		r.rec = New(r.rec.Subject, r.rec.Label, r.rec.FrameRate)
	}
	r.rec.Reference = f.Clone()
	r.rec.ReferencePose = pose
	r.hasRef = true
}

// HasReference reports whether samples are being kept.
func (r *Recorder) HasReference() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasRef
}

// Add appends a sample, renumbered to its position in the take.
// It is ignored before a reference is set.
func (r *Recorder) Add(s landmark.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasRef {
		return
	}
	s.Index = len(r.rec.Samples)
	s.Frame = s.Frame.Clone()
	r.rec.Samples = append(r.rec.Samples, s)
}

// Len returns the number of samples in the current take.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rec.Samples)
}

// Finish saves the take and returns its key.
func (r *Recorder) Finish(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasRef {
		return "", ErrNoReference
	}
	return r.store.Save(ctx, r.rec)
}
