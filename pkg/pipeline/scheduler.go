package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-affect/internal/log"
)

// Scheduler runs one worker goroutine per session. Sessions share nothing;
// a failing session is recorded on itself and does not stop the others.
type Scheduler struct {
	ctx    context.Context
	cfg    SchedulerConfig
	group  *errgroup.Group
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	onExit   func(*Session)
}

// NewScheduler creates a scheduler whose sessions stop when ctx is cancelled.
func NewScheduler(ctx context.Context, cfg SchedulerConfig) *Scheduler {
	g := new(errgroup.Group)
	if cfg.MaxSessions > 0 {
		g.SetLimit(cfg.MaxSessions)
	}
	return &Scheduler{
		ctx:      ctx,
		cfg:      cfg,
		group:    g,
		logger:   log.With("component", "scheduler"),
		sessions: make(map[string]*Session),
	}
}

// OnExit sets a callback run on the session's goroutine after it returns.
func (s *Scheduler) OnExit(fn func(*Session)) {
	s.mu.Lock()
	s.onExit = fn
	s.mu.Unlock()
}

// Start launches the session. It fails when the scheduler is full or the id
// is already in use.
func (s *Scheduler) Start(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, sess.ID)
	}
	sess.cfg = s.cfg
	onExit := s.onExit
	ok := s.group.TryGo(func() error {
		if err := sess.Run(s.ctx); err != nil {
			// Recorded on the session; other sessions keep running.
			s.logger.Warn("session ended with error", "session", sess.ID, "error", err)
		}
		if onExit != nil {
			onExit(sess)
		}
		return nil
	})
	if !ok {
		return fmt.Errorf("%w: limit %d", ErrTooManySessions, s.cfg.MaxSessions)
	}
	s.sessions[sess.ID] = sess
	return nil
}

// Get returns a session by id.
func (s *Scheduler) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// List returns every session's info, oldest first.
func (s *Scheduler) List() []SessionInfo {
	s.mu.RLock()
	infos := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, sess.Info())
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Started.Equal(infos[j].Started) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Started.Before(infos[j].Started)
	})
	return infos
}

// Reset asks a session's pipeline to reset calibration bounds.
func (s *Scheduler) Reset(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.pipeline.RequestReset()
	return nil
}

// Recalibrate asks a session's pipeline to reset and recapture its reference.
func (s *Scheduler) Recalibrate(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.pipeline.RequestRecalibration()
	return nil
}

// Stop cancels one session. It stays listed until Remove.
func (s *Scheduler) Stop(id string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.Stop()
	return nil
}

// Remove forgets a session, stopping it first.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Stop()
	return nil
}

// StopAll cancels every session.
func (s *Scheduler) StopAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.Stop()
	}
}

// Wait blocks until every started session has returned.
func (s *Scheduler) Wait() error {
	return s.group.Wait()
}
