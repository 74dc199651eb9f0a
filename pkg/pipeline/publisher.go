package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Publisher decouples tick cadence from render cadence. Sessions hand it
// every result; it keeps the latest per session and forwards at most hz
// results per second per session. Results that arrive too fast are coalesced,
// never queued.
type Publisher struct {
	hz      float64
	forward func(Result)

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	pending  map[string]Result
}

// NewPublisher forwards to fn at up to hz results per second per session.
func NewPublisher(hz float64, fn func(Result)) *Publisher {
	return &Publisher{
		hz:       hz,
		forward:  fn,
		limiters: make(map[string]*rate.Limiter),
		pending:  make(map[string]Result),
	}
}

// Sink returns p.Publish as a session sink.
func (p *Publisher) Sink() Sink { return p.Publish }

// Publish offers a result. It is forwarded now if the session's budget
// allows, otherwise it replaces any pending result for that session.
func (p *Publisher) Publish(r Result) {
	key := r.SessionID
	if key == "" {
		key = r.Subject
	}

	p.mu.Lock()
	lim, ok := p.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(p.hz), 1)
		p.limiters[key] = lim
	}
	if !lim.Allow() {
		p.pending[key] = r
		p.mu.Unlock()
		return
	}
	delete(p.pending, key)
	p.mu.Unlock()

	p.forward(r)
}

// Run flushes pending results as their budgets refill, until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	interval := time.Duration(float64(time.Second) / p.hz / 2)
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Publisher) flush() {
	var ready []Result
	p.mu.Lock()
	for key, r := range p.pending {
		if p.limiters[key].Allow() {
			ready = append(ready, r)
			delete(p.pending, key)
		}
	}
	p.mu.Unlock()

	for _, r := range ready {
		p.forward(r)
	}
}

// Forget drops the state of a finished session.
func (p *Publisher) Forget(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.limiters, sessionID)
	delete(p.pending, sessionID)
}
