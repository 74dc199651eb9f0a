// Package calibration implements the adaptive bounds each action unit uses to
// turn raw geometric deltas into signed percentages.
//
// Bounds only widen while the head pose is trusted, so one bad frame cannot
// shrink the usable range, and a wide first observation is damped to 90%.
package calibration

import "math"

// Widen is the fraction of a newly observed extreme the bounds grow to.
const Widen = 0.9

// Limit bounds every normalised value.
const Limit = 100.0

// Defaults are the starting bounds of a State. Reset returns Min and Max here.
type Defaults struct {
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
	MinTol     float64 `json:"min_tol" yaml:"min_tol"`
	MaxTol     float64 `json:"max_tol" yaml:"max_tol"`
	ExtremeMin float64 `json:"extreme_min" yaml:"extreme_min"`
	ExtremeMax float64 `json:"extreme_max" yaml:"extreme_max"`
}

// State is the calibration of one module for one subject. Not safe for
// concurrent use.
type State struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	MinTol     float64 `json:"min_tol"`
	MaxTol     float64 `json:"max_tol"`
	ExtremeMin float64 `json:"extreme_min"`
	ExtremeMax float64 `json:"extreme_max"`

	defaults Defaults
}

// New creates a state starting at d.
func New(d Defaults) *State {
	s := &State{defaults: d}
	s.MinTol, s.MaxTol = d.MinTol, d.MaxTol
	s.ExtremeMin, s.ExtremeMax = d.ExtremeMin, d.ExtremeMax
	s.Reset()
	return s
}

// Defaults returns the values the state was created with.
func (s *State) Defaults() Defaults { return s.defaults }

// Reset restores Min and Max to their defaults. Tolerance and extreme bounds
// are left alone.
func (s *State) Reset() {
	s.Min = s.defaults.Min
	s.Max = s.defaults.Max
}

// AdaptiveMinMax widens the bounds towards 90% of the extremes in values.
// It does nothing and returns false when poseDeviation exceeds poseTolerance.
func (s *State) AdaptiveMinMax(values []float64, poseDeviation, poseTolerance float64) bool {
	if poseDeviation > poseTolerance {
		return false
	}
	if len(values) == 0 {
		return true
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	s.Min = math.Min(s.Min, Widen*lo)
	s.Max = math.Max(s.Max, Widen*hi)
	return true
}

// Normalize maps raw onto [-100, 100] using the current bounds. A raw value
// whose bound is still zero normalises to 0.
func (s *State) Normalize(raw float64) float64 {
	var v float64
	switch {
	case raw >= 0:
		if s.Max <= 0 {
			return 0
		}
		v = raw * 100 / s.Max
	default:
		if s.Min >= 0 {
			return 0
		}
		v = raw * 100 / -s.Min
	}
	return Clamp(v, -Limit, Limit)
}

// ToleranceFilter zeroes, in place, values strictly inside (MinTol, MaxTol).
func (s *State) ToleranceFilter(values []float64) {
	for i, v := range values {
		if v > s.MinTol && v < s.MaxTol {
			values[i] = 0
		}
	}
}

// ExtremeClamp clamps each value to [ExtremeMin, ExtremeMax] and returns
// their average. Empty input averages to 0.
func (s *State) ExtremeClamp(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += Clamp(v, s.ExtremeMin, s.ExtremeMax)
	}
	return sum / float64(len(values))
}

// Snapshot is a copy of a State's mutable fields.
type Snapshot struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	MinTol     float64 `json:"min_tol"`
	MaxTol     float64 `json:"max_tol"`
	ExtremeMin float64 `json:"extreme_min"`
	ExtremeMax float64 `json:"extreme_max"`
}

// Snapshot copies the current bounds.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Min: s.Min, Max: s.Max,
		MinTol: s.MinTol, MaxTol: s.MaxTol,
		ExtremeMin: s.ExtremeMin, ExtremeMax: s.ExtremeMax,
	}
}

// Restore overwrites the bounds with a snapshot.
func (s *State) Restore(snap Snapshot) {
	s.Min, s.Max = snap.Min, snap.Max
	s.MinTol, s.MaxTol = snap.MinTol, snap.MaxTol
	s.ExtremeMin, s.ExtremeMax = snap.ExtremeMin, snap.ExtremeMax
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
