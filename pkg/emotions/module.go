package emotions

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-affect/pkg/actionunit"
	"github.com/teslashibe/go-affect/pkg/calibration"
	"github.com/teslashibe/go-affect/pkg/model"
)

// Ceiling is the floor of the reduce divisor.
const Ceiling = 100.0

// Module scores one emotion for the model it was built with. It keeps no
// calibration of its own.
type Module struct {
	profile *Profile
	model   *model.Model
	percent float64
	output  string
}

// New binds p to m.
func New(p *Profile, m *model.Model) *Module {
	return &Module{profile: p, model: m, percent: Ceiling}
}

// NewSet builds one module per registered profile for m.
func NewSet(m *model.Model, r *Registry) ([]*Module, error) {
	profiles := r.Profiles()
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: registry is empty", ErrNotFound)
	}
	mods := make([]*Module, len(profiles))
	for i, p := range profiles {
		mods[i] = New(p, m)
	}
	return mods, nil
}

// Name returns the emotion name.
func (e *Module) Name() string { return e.profile.Emotion.String() }

// Emotion returns the scored emotion.
func (e *Module) Emotion() model.Emotion { return e.profile.Emotion }

// Compute runs reduce then score and writes the result. A missing AU aborts
// the tick for this emotion without writing anything.
func (e *Module) Compute(m *model.Model) error {
	if m != e.model {
		return fmt.Errorf("%s: %w", e.Name(), ErrForeignModel)
	}
	percent, err := e.Reduce(m)
	if err != nil {
		return err
	}
	score, err := e.Score(m, percent)
	if err != nil {
		return err
	}
	e.percent = percent
	m.SetScore(e.profile.Emotion, score)
	e.output = fmt.Sprintf("%s=%.1f (ceiling %.0f)", e.Name(), score, percent)
	return nil
}

// Reduce returns the ceiling divisor: 100 plus ReduceGain times the strongest
// competitor signal, truncated to a whole percent and never below 100.
func (e *Module) Reduce(m *model.Model) (float64, error) {
	strongest := math.Inf(-1)
	for _, c := range e.profile.Competitors {
		v, err := read(m, c.Term)
		if err != nil {
			return 0, fmt.Errorf("%s: competitor %s: %w", e.Name(), c.Label, err)
		}
		strongest = math.Max(strongest, v*c.Term.Weight+c.Offset)
	}
	if math.IsInf(strongest, -1) {
		return Ceiling, nil
	}
	return math.Max(Ceiling, Ceiling+math.Trunc(e.profile.ReduceGain*strongest)), nil
}

// Score folds the profile's groups with the given divisor and clamps to [0, 100].
func (e *Module) Score(m *model.Model, percent float64) (float64, error) {
	if percent < Ceiling {
		percent = Ceiling
	}
	var total float64
	for _, g := range e.profile.Groups {
		var acc float64
		for i, t := range g.Terms {
			v, err := read(m, t)
			if err != nil {
				return 0, fmt.Errorf("%s: group %s: %w", e.Name(), g.Label, err)
			}
			contrib := v * t.Weight / percent
			switch {
			case g.Mode == Sum:
				acc += contrib
			case i == 0:
				acc = contrib
			default:
				acc = math.Max(acc, contrib)
			}
		}
		total += acc
	}
	return calibration.Clamp(total, 0, 100), nil
}

// Reset is a no-op; emotions hold no adaptive bounds.
func (e *Module) Reset() {}

// Output is the diagnostic text of the last completed tick.
func (e *Module) Output() string { return e.output }

// Percent returns the ceiling divisor of the last completed tick.
func (e *Module) Percent() float64 { return e.percent }

// read evaluates a term's combinator against the model's AU map, clamped to
// the normalised range.
func read(m *model.Model, t Term) (float64, error) {
	if !t.Combine.bilateral() {
		v, ok := m.ActionUnit(t.AU)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingActionUnit, t.AU)
		}
		return calibration.Clamp(v, -calibration.Limit, calibration.Limit), nil
	}

	l, ok := m.ActionUnit(t.AU + actionunit.LeftSuffix)
	if !ok {
		return 0, fmt.Errorf("%w: %s%s", ErrMissingActionUnit, t.AU, actionunit.LeftSuffix)
	}
	r, ok := m.ActionUnit(t.AU + actionunit.RightSuffix)
	if !ok {
		return 0, fmt.Errorf("%w: %s%s", ErrMissingActionUnit, t.AU, actionunit.RightSuffix)
	}

	var v float64
	switch t.Combine {
	case Mean:
		v = (l + r) / 2
	case MinMagnitude:
		v = l
		if math.Abs(r) < math.Abs(l) {
			v = r
		}
	case MinAbs:
		v = math.Min(math.Abs(l), math.Abs(r))
	case MaxMagnitude:
		v = l
		if math.Abs(r) > math.Abs(l) {
			v = r
		}
	case Asymmetry:
		v = math.Abs(l - r)
	}
	return calibration.Clamp(v, -calibration.Limit, calibration.Limit), nil
}
