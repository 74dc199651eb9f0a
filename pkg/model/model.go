// Package model holds the per-subject frame state that every scoring module
// reads and writes during a tick.
//
// A Model is owned by exactly one pipeline and is not safe for concurrent use;
// callers serialise ticks.
package model

import (
	"maps"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// Model is the frame-state container for one subject or recording.
type Model struct {
	// Subject identifies whose face this model tracks.
	Subject string

	current       landmark.Frame
	reference     landmark.Frame
	referencePose landmark.Pose
	referenceIOD  float64
	hasReference  bool

	poseDeviation float64
	poseTolerance float64

	au      map[string]float64
	emotion map[Emotion]float64
	tick    uint64
}

// New creates an empty model. poseTolerance is the deviation above which
// calibration updates are skipped.
func New(subject string, poseTolerance float64) *Model {
	return &Model{
		Subject:       subject,
		poseTolerance: poseTolerance,
		au:            make(map[string]float64),
		emotion:       make(map[Emotion]float64),
	}
}

// SetReference installs the neutral face used as the zero baseline.
func (m *Model) SetReference(f landmark.Frame, p landmark.Pose) {
	m.reference = f.Clone()
	m.referencePose = p
	m.referenceIOD = f.InterOcular()
	m.hasReference = true
}

// ClearReference drops the reference so it can be captured again.
func (m *Model) ClearReference() {
	m.reference = landmark.Frame{}
	m.referencePose = landmark.Pose{}
	m.referenceIOD = 0
	m.hasReference = false
}

// HasReference reports whether a reference face is installed.
func (m *Model) HasReference() bool { return m.hasReference }

// Reference returns the reference frame and pose.
func (m *Model) Reference() (landmark.Frame, landmark.Pose) {
	return m.reference, m.referencePose
}

// ReferenceScale is the inter-ocular distance of the reference face, the unit
// geometric deltas are expressed in. Zero when unknown.
func (m *Model) ReferenceScale() float64 { return m.referenceIOD }

// Current returns the frame being processed.
func (m *Model) Current() landmark.Frame { return m.current }

// PoseDeviation returns the current tick's deviation from the reference pose.
func (m *Model) PoseDeviation() float64 { return m.poseDeviation }

// PoseTolerance returns the configured calibration gate.
func (m *Model) PoseTolerance() float64 { return m.poseTolerance }

// SetPoseTolerance changes the calibration gate.
func (m *Model) SetPoseTolerance(tol float64) { m.poseTolerance = tol }

// PoseOK reports whether this tick's pose is trusted for calibration.
func (m *Model) PoseOK() bool { return m.poseDeviation <= m.poseTolerance }

// Tick returns how many ticks have been started.
func (m *Model) Tick() uint64 { return m.tick }

// BeginTick installs the sample as the current frame and clears both maps so
// nothing from the previous tick can be read. Undetected samples must not be
// passed here; the caller skips those ticks.
func (m *Model) BeginTick(s landmark.Sample) error {
	if !m.hasReference {
		return ErrNoReference
	}
	m.current = s.Frame
	m.poseDeviation = s.Pose.Deviation(m.referencePose)
	clear(m.au)
	clear(m.emotion)
	m.tick++
	return nil
}

// ActionUnit returns an AU value written during this tick.
func (m *Model) ActionUnit(name string) (float64, bool) {
	v, ok := m.au[name]
	return v, ok
}

// SetActionUnit writes an AU value.
func (m *Model) SetActionUnit(name string, v float64) { m.au[name] = v }

// Score returns an emotion score written during this tick.
func (m *Model) Score(e Emotion) (float64, bool) {
	v, ok := m.emotion[e]
	return v, ok
}

// SetScore writes an emotion score.
func (m *Model) SetScore(e Emotion, v float64) { m.emotion[e] = v }

// ActionUnits returns a copy of the AU map.
func (m *Model) ActionUnits() map[string]float64 { return maps.Clone(m.au) }

// Scores returns a copy of the emotion map.
func (m *Model) Scores() map[Emotion]float64 { return maps.Clone(m.emotion) }
