// Package pipeline drives per-subject scoring: reference capture, the
// AU-then-emotion tick, operator recalibration, and the session scheduler
// that runs many subjects in parallel.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/actionunit"
	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/model"
)

// Pipeline owns one Model and the modules bound to it. Process is safe to call
// from multiple goroutines; ticks are serialised.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	model      *model.Model
	driver     Driver
	refFrames  []landmark.Frame
	refPoses   []landmark.Pose
	generation uint64

	resetRequested atomic.Bool
	recalRequested atomic.Bool
	progress       atomic.Uint64 // float64 bits
}

// New creates a pipeline for subject with the full AU table and every profile
// in reg.
func New(subject string, reg *emotions.Registry, cfg Config) (*Pipeline, error) {
	if cfg.ReferenceFrames < 1 {
		cfg.ReferenceFrames = 1
	}
	m := model.New(subject, cfg.PoseTolerance)

	aus := actionunit.NewSet(m, cfg.Calibration)
	ems, err := emotions.NewSet(m, reg)
	if err != nil {
		return nil, fmt.Errorf("build emotion modules: %w", err)
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: log.With("component", "pipeline", "subject", subject),
		model:  m,
	}
	for _, u := range aus {
		p.driver.ActionUnits = append(p.driver.ActionUnits, u)
	}
	for _, e := range ems {
		p.driver.Emotions = append(p.driver.Emotions, e)
	}
	return p, nil
}

// Subject returns the subject this pipeline scores.
func (p *Pipeline) Subject() string { return p.model.Subject }

// SetReference installs a known neutral face, skipping live capture.
func (p *Pipeline) SetReference(f landmark.Frame, pose landmark.Pose) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installReference(f, pose)
}

// Reference returns the installed reference and a generation number that
// changes each time a new reference is installed. ok is false during capture.
func (p *Pipeline) Reference() (f landmark.Frame, pose landmark.Pose, generation uint64, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.model.HasReference() {
		return landmark.Frame{}, landmark.Pose{}, p.generation, false
	}
	f, pose = p.model.Reference()
	return f.Clone(), pose, p.generation, true
}

// RequestReset asks for every module's bounds to return to defaults before
// the next processed tick.
func (p *Pipeline) RequestReset() { p.resetRequested.Store(true) }

// RequestRecalibration asks for a reset plus a fresh reference capture before
// the next processed tick.
func (p *Pipeline) RequestRecalibration() { p.recalRequested.Store(true) }

// CalibrationProgress is the reference capture progress in [0, 100].
func (p *Pipeline) CalibrationProgress() float64 {
	return math.Float64frombits(p.progress.Load())
}

// Calibrated reports whether a reference is installed.
func (p *Pipeline) Calibrated() bool { return p.CalibrationProgress() >= 100 }

// Process handles one sample. Undetected samples, and detected ones whose
// frame has no eyes to scale by, are skipped without touching the model.
// Until a reference exists, detected samples feed reference capture.
func (p *Pipeline) Process(s landmark.Sample) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := Result{
		Subject: p.model.Subject,
		Frame:   s.Index,
		Time:    s.Time,
	}

	if !s.Detected || s.Frame.InterOcular() <= 0 {
		res.Status = StatusSkipped
		res.Tick = p.model.Tick()
		res.Calibrated = p.model.HasReference()
		res.Progress = p.CalibrationProgress()
		return res, nil
	}

	p.applyRequests()

	if !p.model.HasReference() {
		p.capture(s)
		res.Status = StatusCalibrating
		res.Calibrated = p.model.HasReference()
		res.Progress = p.CalibrationProgress()
		res.PoseDeviation = s.Pose.Deviation(landmark.Pose{})
		return res, nil
	}

	if err := p.model.BeginTick(s); err != nil {
		return res, err
	}
	err := p.driver.Tick(p.model)

	res.Tick = p.model.Tick()
	res.Calibrated = true
	res.Progress = 100
	res.PoseDeviation = p.model.PoseDeviation()
	res.PoseTrusted = p.model.PoseOK()
	res.ActionUnits = p.model.ActionUnits()
	res.Emotions = p.model.Scores()
	if p.cfg.Diagnostics {
		res.Diagnostics = p.driver.Outputs()
	}
	res.Status = StatusScored
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		p.logger.Warn("tick failed", "frame", s.Index, "error", err)
	}
	return res, err
}

// applyRequests consumes pending operator commands. Called with mu held.
func (p *Pipeline) applyRequests() {
	recal := p.recalRequested.Swap(false)
	reset := p.resetRequested.Swap(false)
	if recal {
		p.model.ClearReference()
		p.refFrames = p.refFrames[:0]
		p.refPoses = p.refPoses[:0]
		p.setProgress(0)
		p.logger.Info("recalibrating")
	}
	if recal || reset {
		p.driver.Reset()
		p.logger.Debug("calibration reset")
	}
}

// capture accumulates a reference candidate. Called with mu held.
func (p *Pipeline) capture(s landmark.Sample) {
	if s.Pose.Deviation(landmark.Pose{}) > p.cfg.PoseTolerance || s.Frame.InterOcular() <= 0 {
		return
	}
	p.refFrames = append(p.refFrames, s.Frame.Clone())
	p.refPoses = append(p.refPoses, s.Pose)
	p.setProgress(100 * float64(len(p.refFrames)) / float64(p.cfg.ReferenceFrames))

	if len(p.refFrames) >= p.cfg.ReferenceFrames {
		p.installReference(landmark.Average(p.refFrames), landmark.AveragePose(p.refPoses))
		p.refFrames = p.refFrames[:0]
		p.refPoses = p.refPoses[:0]
		p.logger.Info("reference captured", "frames", p.cfg.ReferenceFrames)
	}
}

// installReference sets the reference and resets calibration. Called with mu held.
func (p *Pipeline) installReference(f landmark.Frame, pose landmark.Pose) {
	p.model.SetReference(f, pose)
	p.driver.Reset()
	p.generation++
	p.setProgress(100)
}

func (p *Pipeline) setProgress(v float64) {
	if v > 100 {
		v = 100
	}
	p.progress.Store(math.Float64bits(v))
}
