package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/recording"
)

// Sink receives every result a session produces. It must not block for long;
// the session's next tick waits on it.
type Sink func(Result)

// SessionState is the lifecycle of a session.
type SessionState string

const (
	StatePending SessionState = "pending"
	StateRunning SessionState = "running"
	StateStopped SessionState = "stopped"
	StateFailed  SessionState = "failed"
)

// Session is one subject's worker: it pulls samples from a source and ticks
// its pipeline sequentially.
type Session struct {
	ID string

	pipeline *Pipeline
	source   landmark.Source
	sink     Sink
	recorder *recording.Recorder
	cfg      SchedulerConfig
	logger   *slog.Logger

	ticks   atomic.Uint64
	skipped atomic.Uint64
	failed  atomic.Uint64

	mu      sync.RWMutex
	started time.Time
	state   SessionState
	err     error
	last    *Result
	cancel  context.CancelFunc
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithSink sets the result sink.
func WithSink(sink Sink) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// WithRecorder records every scored sample of the session.
func WithRecorder(r *recording.Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// WithID overrides the generated session id.
func WithID(id string) SessionOption {
	return func(s *Session) { s.ID = id }
}

// WithSchedulerConfig sets error handling limits.
func WithSchedulerConfig(cfg SchedulerConfig) SessionOption {
	return func(s *Session) { s.cfg = cfg }
}

// NewSession wires a pipeline to a source.
func NewSession(p *Pipeline, src landmark.Source, opts ...SessionOption) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		pipeline: p,
		source:   src,
		cfg:      DefaultSchedulerConfig(),
		state:    StatePending,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.With("component", "session", "session", s.ID, "subject", p.Subject())
	return s
}

// Subject returns the scored subject.
func (s *Session) Subject() string { return s.pipeline.Subject() }

// Pipeline returns the session's pipeline.
func (s *Session) Pipeline() *Pipeline { return s.pipeline }

// Run processes samples until the source ends, ctx is cancelled, or the
// source fails. A source that fails on its very first read never delivered
// anything and is reported as landmark.ErrNoSource.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.state = StateRunning
	s.cancel = cancel
	s.started = time.Now()
	s.mu.Unlock()

	s.logger.Info("session started", "source", s.source.Name())
	err := s.loop(ctx)
	if cerr := s.source.Close(); cerr != nil {
		s.logger.Warn("close source", "error", cerr)
	}
	s.finishRecording()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.err = err
		s.logger.Error("session failed", "error", err)
		return err
	}
	s.state = StateStopped
	s.logger.Info("session stopped", "ticks", s.ticks.Load(), "skipped", s.skipped.Load())
	return nil
}

func (s *Session) loop(ctx context.Context) error {
	var (
		received   bool
		errStreak  int
		generation uint64
	)
	for {
		sample, err := s.source.Next(ctx)
		switch {
		case err == nil:
			received = true
			errStreak = 0
		case errors.Is(err, landmark.ErrSourceClosed):
			return nil
		case ctx.Err() != nil:
			return nil
		case !received:
			return fmt.Errorf("%w: %s: %v", landmark.ErrNoSource, s.source.Name(), err)
		default:
			errStreak++
			s.logger.Warn("source error", "error", err, "streak", errStreak)
			if errStreak >= s.cfg.MaxSourceErrors {
				return fmt.Errorf("source %s: %d consecutive errors: %w", s.source.Name(), errStreak, err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.cfg.RetryDelay):
			}
			continue
		}

		res, err := s.pipeline.Process(sample)
		res.SessionID = s.ID
		switch {
		case res.Status == StatusSkipped:
			s.skipped.Add(1)
		case err != nil:
			s.failed.Add(1)
		default:
			s.ticks.Add(1)
		}

		if s.recorder != nil && res.Status == StatusScored {
			if f, pose, gen, ok := s.pipeline.Reference(); ok && (gen != generation || !s.recorder.HasReference()) {
				// A new reference ends the current take.
				s.finishRecording()
				s.recorder.SetReference(f, pose)
				generation = gen
			}
			s.recorder.Add(sample)
		}

		s.mu.Lock()
		s.last = &res
		s.mu.Unlock()

		if s.sink != nil {
			s.sink(res)
		}
	}
}

// finishRecording saves a non-empty take. It runs after the session context
// is gone, so it uses its own deadline.
func (s *Session) finishRecording() {
	if s.recorder == nil || s.recorder.Len() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	key, err := s.recorder.Finish(ctx)
	if err != nil {
		s.logger.Error("save recording", "error", err)
		return
	}
	s.logger.Info("recording saved", "key", key, "frames", s.recorder.Len())
}

// Stop cancels a running session.
func (s *Session) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Last returns the most recent result, if any.
func (s *Session) Last() (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// SessionInfo is a point-in-time view of a session for operators.
type SessionInfo struct {
	ID         string       `json:"id"`
	Subject    string       `json:"subject"`
	Source     string       `json:"source"`
	State      SessionState `json:"state"`
	Started    time.Time    `json:"started"`
	Ticks      uint64       `json:"ticks"`
	Skipped    uint64       `json:"skipped"`
	Failed     uint64       `json:"failed"`
	Calibrated bool         `json:"calibrated"`
	Progress   float64      `json:"progress"`
	Recording  bool         `json:"recording"`
	Error      string       `json:"error,omitempty"`
	Last       *Result      `json:"last,omitempty"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := SessionInfo{
		ID:         s.ID,
		Subject:    s.pipeline.Subject(),
		Source:     s.source.Name(),
		State:      s.state,
		Started:    s.started,
		Ticks:      s.ticks.Load(),
		Skipped:    s.skipped.Load(),
		Failed:     s.failed.Load(),
		Calibrated: s.pipeline.Calibrated(),
		Progress:   s.pipeline.CalibrationProgress(),
		Recording:  s.recorder != nil,
	}
	if s.err != nil {
		info.Error = s.err.Error()
	}
	if s.last != nil {
		last := *s.last
		info.Last = &last
	}
	return info
}
