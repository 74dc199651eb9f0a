package ingest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// Source is the landmark.Source fed by one tracker connection. When the
// session falls behind, the oldest buffered sample is dropped.
type Source struct {
	name    string
	samples chan landmark.Sample
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func newSource(name string, buffer int) *Source {
	if buffer < 1 {
		buffer = 1
	}
	return &Source{
		name:    name,
		samples: make(chan landmark.Sample, buffer),
		done:    make(chan struct{}),
	}
}

// push queues a sample without blocking the connection's read loop.
func (s *Source) push(smp landmark.Sample) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.samples <- smp:
			return
		default:
		}
		select {
		case <-s.samples:
			s.dropped.Add(1)
		default:
		}
	}
}

// Next implements landmark.Source. Buffered samples are delivered before the
// closed state is reported.
func (s *Source) Next(ctx context.Context) (landmark.Sample, error) {
	select {
	case smp := <-s.samples:
		return smp, nil
	default:
	}
	select {
	case smp := <-s.samples:
		return smp, nil
	case <-s.done:
		select {
		case smp := <-s.samples:
			return smp, nil
		default:
			return landmark.Sample{}, landmark.ErrSourceClosed
		}
	case <-ctx.Done():
		return landmark.Sample{}, ctx.Err()
	}
}

// Close implements landmark.Source.
func (s *Source) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Name implements landmark.Source.
func (s *Source) Name() string { return s.name }

// Dropped returns how many samples were discarded because the session was
// behind.
func (s *Source) Dropped() uint64 { return s.dropped.Load() }
