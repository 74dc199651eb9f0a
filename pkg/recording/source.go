package recording

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// Source replays a recording as a live landmark source.
type Source struct {
	rec      *Recording
	interval time.Duration

	mu     sync.Mutex
	pos    int
	ticker *time.Ticker
	closed bool
}

// NewSource paces rec at hz frames per second. hz <= 0 uses the recording's
// own frame rate; if that is also unset, frames are served unpaced.
func NewSource(rec *Recording, hz float64) *Source {
	if hz <= 0 {
		hz = rec.FrameRate
	}
	var interval time.Duration
	if hz > 0 {
		interval = time.Duration(float64(time.Second) / hz)
	}
	return &Source{rec: rec, interval: interval}
}

// Next implements landmark.Source.
func (s *Source) Next(ctx context.Context) (landmark.Sample, error) {
	s.mu.Lock()
	if s.closed || s.pos >= s.rec.Len() {
		s.mu.Unlock()
		return landmark.Sample{}, landmark.ErrSourceClosed
	}
	if s.interval > 0 && s.ticker == nil {
		s.ticker = time.NewTicker(s.interval)
	}
	ticker := s.ticker
	s.mu.Unlock()

	if ticker != nil {
		select {
		case <-ctx.Done():
			return landmark.Sample{}, ctx.Err()
		case <-ticker.C:
		}
	} else if err := ctx.Err(); err != nil {
		return landmark.Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= s.rec.Len() {
		return landmark.Sample{}, landmark.ErrSourceClosed
	}
	sample := s.rec.Samples[s.pos]
	s.pos++
	sample.Time = time.Now()
	return sample, nil
}

// Close implements landmark.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ticker != nil {
		s.ticker.Stop()
	}
	return nil
}

// Name implements landmark.Source.
func (s *Source) Name() string { return "recording" }

// Recording returns the recording being replayed.
func (s *Source) Recording() *Recording { return s.rec }
