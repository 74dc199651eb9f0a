// Package recording persists landmark sequences for offline re-analysis.
//
// A recording is one subject performing one labelled emotion: a reference
// face plus ordered samples. Files are zstd-compressed JSON named
// <base>.<label>.lmk.zst and can live on disk or in S3.
package recording

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/model"
)

// Ext is the file extension of encoded recordings.
const Ext = ".lmk.zst"

// Recording is an indexable landmark sequence.
type Recording struct {
	ID        string        `json:"id"`
	Subject   string        `json:"subject"`
	Label     model.Emotion `json:"label"`
	Created   time.Time     `json:"created"`
	FrameRate float64       `json:"frame_rate"`

	Reference     landmark.Frame `json:"reference"`
	ReferencePose landmark.Pose  `json:"reference_pose"`

	Samples []landmark.Sample `json:"samples"`
}

// New creates an empty recording with a fresh id.
func New(subject string, label model.Emotion, frameRate float64) *Recording {
	return &Recording{
		ID:        uuid.NewString(),
		Subject:   subject,
		Label:     label,
		Created:   time.Now().UTC(),
		FrameRate: frameRate,
	}
}

// Len returns the number of frames.
func (r *Recording) Len() int { return len(r.Samples) }

// Frame returns sample i in O(1).
func (r *Recording) Frame(i int) (landmark.Sample, error) {
	if i < 0 || i >= len(r.Samples) {
		return landmark.Sample{}, fmt.Errorf("%w: %d of %d", ErrFrameOutOfRange, i, len(r.Samples))
	}
	return r.Samples[i], nil
}

// Duration is the playback length at FrameRate.
func (r *Recording) Duration() time.Duration {
	if r.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(r.Samples)) / r.FrameRate * float64(time.Second))
}

// Base is the label-free part of the key.
func (r *Recording) Base() string {
	subject := sanitize(r.Subject)
	if subject == "" {
		subject = "subject"
	}
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return subject + "_" + id
}

// Key returns the storage key <base>.<label>.lmk.zst.
func (r *Recording) Key() string {
	return r.Base() + "." + r.Label.String() + Ext
}

// ParseKey splits a key into its base and label.
func ParseKey(key string) (base string, label model.Emotion, err error) {
	name := key
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if !strings.HasSuffix(name, Ext) {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	name = strings.TrimSuffix(name, Ext)
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	label, err = model.ParseEmotion(name[dot+1:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s: %v", ErrInvalidKey, key, err)
	}
	return name[:dot], label, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
