package actionunit

import (
	"fmt"

	"github.com/teslashibe/go-affect/pkg/calibration"
	lm "github.com/teslashibe/go-affect/pkg/landmark"
)

// Action unit names. Bilateral units write Name+"_left" and Name+"_right".
const (
	BrowShift       = "brow_shift"
	EyelidTight     = "eyelid_tight"
	JawDrop         = "jaw_drop"
	LipCorner       = "lip_corner"
	LipLine         = "lip_line"
	LipsTightened   = "lips_tightened"
	LipStretched    = "lip_stretched"
	LowerLipLowered = "lower_lip_lowered"
	LowerLipRaised  = "lower_lip_raised"
	NoseWrinkled    = "nose_wrinkled"
	UpperLipRaised  = "upper_lip_raised"
)

// Key suffixes for bilateral units.
const (
	LeftSuffix  = "_left"
	RightSuffix = "_right"
)

// Spec describes one action unit: which measures feed each channel and how
// it starts calibrated. Unilateral units have one channel; bilateral units
// have left then right.
type Spec struct {
	Name      string
	Bilateral bool
	Channels  [][]Measure
	Defaults  calibration.Defaults
}

// Keys returns the AU map keys this unit writes, in channel order.
func (s Spec) Keys() []string {
	if s.Bilateral {
		return []string{s.Name + LeftSuffix, s.Name + RightSuffix}
	}
	return []string{s.Name}
}

// defaultCalibration starts with zero bounds, so normalisation stays at 0 until
// the first observation outside the dead zone.
var defaultCalibration = calibration.Defaults{
	MinTol:     -1,
	MaxTol:     1,
	ExtremeMin: -60,
	ExtremeMax: 60,
}

// withTol returns the default calibration with a wider or narrower dead zone.
func withTol(tol float64) calibration.Defaults {
	d := defaultCalibration
	d.MinTol, d.MaxTol = -tol, tol
	return d
}

// Left and right are from the subject's point of view. Measures are in image
// coordinates where y grows downward.
var table = []Spec{
	{
		Name:      BrowShift,
		Bilateral: true,
		Channels: [][]Measure{
			{span(lm.LeftBrowMid, lm.LeftEyeTop, 1), span(lm.LeftBrowInner, lm.LeftEyeInner, 1), span(lm.LeftBrowOuter, lm.LeftEyeOuter, 1)},
			{span(lm.RightBrowMid, lm.RightEyeTop, 1), span(lm.RightBrowInner, lm.RightEyeInner, 1), span(lm.RightBrowOuter, lm.RightEyeOuter, 1)},
		},
		Defaults: defaultCalibration,
	},
	{
		Name:      EyelidTight,
		Bilateral: true,
		Channels: [][]Measure{
			{span(lm.LeftEyeTop, lm.LeftEyeBottom, 1)},
			{span(lm.RightEyeTop, lm.RightEyeBottom, 1)},
		},
		Defaults: withTol(0.5),
	},
	{
		Name:     JawDrop,
		Channels: [][]Measure{{span(lm.NoseBottom, lm.Chin, 1)}},
		Defaults: withTol(2),
	},
	{
		Name:      LipCorner,
		Bilateral: true,
		Channels: [][]Measure{
			{span(lm.MouthLeftCorner, lm.LeftEyeOuter, -1)},
			{span(lm.MouthRightCorner, lm.RightEyeOuter, -1)},
		},
		Defaults: defaultCalibration,
	},
	{
		Name: LipLine,
		Channels: [][]Measure{{
			rise(lm.MouthLeftCorner, lm.UpperLipCenter, 1),
			rise(lm.MouthRightCorner, lm.UpperLipCenter, 1),
		}},
		Defaults: withTol(0.5),
	},
	{
		Name: LipsTightened,
		Channels: [][]Measure{{
			span(lm.UpperLipCenter, lm.UpperLipInner, 1),
			span(lm.LowerLipInner, lm.LowerLipCenter, 1),
		}},
		Defaults: withTol(0.5),
	},
	{
		Name:     LipStretched,
		Channels: [][]Measure{{span(lm.MouthLeftCorner, lm.MouthRightCorner, 1)}},
		Defaults: defaultCalibration,
	},
	{
		Name:     LowerLipLowered,
		Channels: [][]Measure{{span(lm.LowerLipCenter, lm.Chin, -1)}},
		Defaults: defaultCalibration,
	},
	{
		Name:     LowerLipRaised,
		Channels: [][]Measure{{span(lm.NoseBottom, lm.LowerLipCenter, -1)}},
		Defaults: defaultCalibration,
	},
	{
		Name:     NoseWrinkled,
		Channels: [][]Measure{{span(lm.NoseBridge, lm.NoseBottom, 1)}},
		Defaults: withTol(0.5),
	},
	{
		Name:     UpperLipRaised,
		Channels: [][]Measure{{span(lm.NoseBottom, lm.UpperLipCenter, -1)}},
		Defaults: defaultCalibration,
	},
}

// Specs returns a copy of the built-in table.
func Specs() []Spec {
	out := make([]Spec, len(table))
	copy(out, table)
	return out
}

// Lookup returns the built-in spec for name.
func Lookup(name string) (Spec, error) {
	for _, s := range table {
		if s.Name == name {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("%w: %s", ErrUnknown, name)
}

// Names returns every AU name in table order.
func Names() []string {
	names := make([]string, len(table))
	for i, s := range table {
		names[i] = s.Name
	}
	return names
}

// Keys returns every AU map key the full set writes.
func Keys() []string {
	var keys []string
	for _, s := range table {
		keys = append(keys, s.Keys()...)
	}
	return keys
}
