package actionunit

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-affect/pkg/calibration"
	"github.com/teslashibe/go-affect/pkg/model"
)

// Module computes one action unit for the model it was built with.
type Module struct {
	spec   Spec
	keys   []string
	model  *model.Model
	cal    *calibration.State
	values []float64
	output string
}

// New binds spec to m. Calibration starts at spec.Defaults.
func New(spec Spec, m *model.Model) *Module {
	return &Module{
		spec:   spec,
		keys:   spec.Keys(),
		model:  m,
		cal:    calibration.New(spec.Defaults),
		values: make([]float64, len(spec.Channels)),
	}
}

// NewSet builds the full table for m. overrides replaces the calibration
// defaults of the named units.
func NewSet(m *model.Model, overrides map[string]calibration.Defaults) []*Module {
	specs := Specs()
	mods := make([]*Module, len(specs))
	for i, s := range specs {
		if d, ok := overrides[s.Name]; ok {
			s.Defaults = d
		}
		mods[i] = New(s, m)
	}
	return mods
}

// Name returns the AU name.
func (u *Module) Name() string { return u.spec.Name }

// Keys returns the AU map keys this module writes.
func (u *Module) Keys() []string { return u.keys }

// Compute runs one tick: per-channel deltas, dead zone, pose-gated bound
// widening, then normalised values written to the model's AU map.
func (u *Module) Compute(m *model.Model) error {
	if m != u.model {
		return fmt.Errorf("%s: %w", u.spec.Name, ErrForeignModel)
	}

	cur := m.Current()
	ref, _ := m.Reference()
	scale := m.ReferenceScale()

	var raw []float64
	for i, ch := range u.spec.Channels {
		raw = raw[:0]
		for _, ms := range ch {
			if d, ok := ms.Delta(cur, ref, scale); ok {
				raw = append(raw, d)
			}
		}
		u.values[i] = u.cal.ExtremeClamp(raw)
	}

	u.cal.ToleranceFilter(u.values)
	trusted := u.cal.AdaptiveMinMax(u.values, m.PoseDeviation(), m.PoseTolerance())

	var b strings.Builder
	for i, v := range u.values {
		n := u.cal.Normalize(v)
		m.SetActionUnit(u.keys[i], n)
		if trusted {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%.1f", u.keys[i], n)
		}
	}
	u.output = b.String()
	return nil
}

// Reset returns the calibration bounds to their defaults.
func (u *Module) Reset() { u.cal.Reset() }

// Output is the diagnostic text of the last tick. Empty when the tick's pose
// was not trusted.
func (u *Module) Output() string { return u.output }

// Calibration returns a copy of the current calibration.
func (u *Module) Calibration() calibration.Snapshot { return u.cal.Snapshot() }

// Restore overwrites the calibration, e.g. to resume a saved session.
func (u *Module) Restore(s calibration.Snapshot) { u.cal.Restore(s) }
