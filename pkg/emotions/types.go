// Package emotions scores the seven emotions from action unit values.
//
// Each emotion is a Profile: configuration data naming the competing signals
// that shrink its ceiling (the reduce step) and the weighted AU terms that make
// up its score. Profiles ship embedded as JSON and can be overridden from a
// directory.
package emotions

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-affect/pkg/actionunit"
	"github.com/teslashibe/go-affect/pkg/calibration"
	"github.com/teslashibe/go-affect/pkg/model"
)

// Combine selects how a term reads its action unit.
type Combine string

const (
	// Value reads a unilateral AU directly.
	Value Combine = "value"

	// Mean averages the left and right channel.
	Mean Combine = "mean"

	// MinMagnitude keeps whichever side has the smaller magnitude, with its sign.
	MinMagnitude Combine = "min_magnitude"

	// MinAbs is the smaller of |left| and |right|; a corner pulled down on
	// both sides still counts as movement.
	MinAbs Combine = "min_abs"

	// MaxMagnitude keeps whichever side has the larger magnitude, with its sign.
	MaxMagnitude Combine = "max_magnitude"

	// Asymmetry is |left - right|.
	Asymmetry Combine = "asymmetry"
)

func (c Combine) bilateral() bool { return c != Value }

func (c Combine) valid() bool {
	switch c {
	case Value, Mean, MinMagnitude, MinAbs, MaxMagnitude, Asymmetry:
		return true
	}
	return false
}

// GroupMode selects how a group folds its terms.
type GroupMode string

const (
	Sum GroupMode = "sum"
	Max GroupMode = "max"
)

// Term is one weighted AU reading.
type Term struct {
	AU      string  `json:"au"`
	Combine Combine `json:"combine"`
	Weight  float64 `json:"weight"`
}

// Competitor is the characteristic signal of a competing emotion:
// combine(term) * weight + offset.
type Competitor struct {
	Label  string  `json:"label"`
	Term   Term    `json:"term"`
	Offset float64 `json:"offset"`
}

// Group is a labelled set of score terms.
type Group struct {
	Label string    `json:"label"`
	Mode  GroupMode `json:"mode"`
	Terms []Term    `json:"terms"`
}

// Profile configures one emotion.
type Profile struct {
	Emotion     model.Emotion `json:"emotion"`
	Description string        `json:"description"`

	// ReduceGain scales the strongest competitor into the ceiling divisor.
	ReduceGain  float64      `json:"reduce_gain"`
	Competitors []Competitor `json:"competitors"`
	Groups      []Group      `json:"groups"`
}

// MaxScore is the highest score the profile can reach before clamping,
// assuming every term is at its limit and the ceiling is at its floor.
func (p *Profile) MaxScore() float64 {
	var total float64
	for _, g := range p.Groups {
		var bound float64
		for _, t := range g.Terms {
			w := math.Abs(t.Weight)
			if g.Mode == Sum {
				bound += w
			} else {
				bound = math.Max(bound, w)
			}
		}
		total += bound
	}
	return total * calibration.Limit / 100
}

// Validate checks that every term names a known AU with a matching combinator
// and that the weights cannot push the score past 100.
func (p *Profile) Validate() error {
	if !p.Emotion.Valid() {
		return fmt.Errorf("%w: unknown emotion %d", ErrInvalidProfile, int(p.Emotion))
	}
	if p.ReduceGain < 0 {
		return fmt.Errorf("%w: %s: negative reduce_gain", ErrInvalidProfile, p.Emotion)
	}
	if len(p.Groups) == 0 {
		return fmt.Errorf("%w: %s: no groups", ErrInvalidProfile, p.Emotion)
	}
	for _, c := range p.Competitors {
		if err := validateTerm(c.Term); err != nil {
			return fmt.Errorf("%w: %s: competitor %s: %v", ErrInvalidProfile, p.Emotion, c.Label, err)
		}
	}
	for _, g := range p.Groups {
		if g.Mode != Sum && g.Mode != Max {
			return fmt.Errorf("%w: %s: group %s: unknown mode %q", ErrInvalidProfile, p.Emotion, g.Label, g.Mode)
		}
		if len(g.Terms) == 0 {
			return fmt.Errorf("%w: %s: group %s has no terms", ErrInvalidProfile, p.Emotion, g.Label)
		}
		for _, t := range g.Terms {
			if err := validateTerm(t); err != nil {
				return fmt.Errorf("%w: %s: group %s: %v", ErrInvalidProfile, p.Emotion, g.Label, err)
			}
		}
	}
	if ms := p.MaxScore(); ms > 100 {
		return fmt.Errorf("%w: %s: weights allow a score of %.0f", ErrInvalidProfile, p.Emotion, ms)
	}
	return nil
}

func validateTerm(t Term) error {
	if !t.Combine.valid() {
		return fmt.Errorf("unknown combinator %q", t.Combine)
	}
	spec, err := actionunit.Lookup(t.AU)
	if err != nil {
		return err
	}
	if spec.Bilateral != t.Combine.bilateral() {
		return fmt.Errorf("combinator %q does not fit %s", t.Combine, t.AU)
	}
	return nil
}
