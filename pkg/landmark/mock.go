package landmark

import (
	"context"
	"sync"
)

// Mock implements Source for testing.
// Samples are served in order; NextFunc overrides that when set.
type Mock struct {
	// NextFunc is called when Next is invoked. If nil, queued samples are served.
	NextFunc func(ctx context.Context) (Sample, error)

	// CloseFunc is called when Close is invoked. If nil, returns nil.
	CloseFunc func() error

	mu      sync.Mutex
	samples []Sample
	pos     int
	calls   int
	closed  bool
}

// NewMock creates a mock source that serves the given samples, then ErrSourceClosed.
func NewMock(samples ...Sample) *Mock {
	return &Mock{samples: samples}
}

// Next implements Source.
func (m *Mock) Next(ctx context.Context) (Sample, error) {
	m.mu.Lock()
	m.calls++
	fn := m.NextFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.pos >= len(m.samples) {
		return Sample{}, ErrSourceClosed
	}
	s := m.samples[m.pos]
	m.pos++
	return s, nil
}

// Close implements Source.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	fn := m.CloseFunc
	m.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

// Name implements Source.
func (m *Mock) Name() string { return "mock" }

// Calls returns how many times Next was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
