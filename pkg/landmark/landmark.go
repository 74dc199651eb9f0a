// Package landmark defines the per-frame facial landmark data consumed by the
// scoring pipeline: the named point layout, frames, head pose and samples.
package landmark

import "math"

// Index identifies a facial landmark in a Frame.
// Left and right are from the subject's point of view.
type Index int

// Landmark layout. Sources fill whatever subset they can track.
const (
	RightBrowOuter Index = iota
	RightBrowMid
	RightBrowInner
	LeftBrowInner
	LeftBrowMid
	LeftBrowOuter

	RightEyeOuter
	RightEyeTop
	RightEyeInner
	RightEyeBottom
	RightPupil
	LeftEyeInner
	LeftEyeTop
	LeftEyeOuter
	LeftEyeBottom
	LeftPupil

	NoseBridge
	NoseTip
	NoseRightWing
	NoseLeftWing
	NoseBottom

	MouthRightCorner
	UpperLipRight
	UpperLipCenter
	UpperLipLeft
	MouthLeftCorner
	LowerLipLeft
	LowerLipCenter
	LowerLipRight
	UpperLipInner
	LowerLipInner

	JawRight
	Chin
	JawLeft

	NumLandmarks
)

var indexNames = [NumLandmarks]string{
	"right_brow_outer", "right_brow_mid", "right_brow_inner",
	"left_brow_inner", "left_brow_mid", "left_brow_outer",
	"right_eye_outer", "right_eye_top", "right_eye_inner", "right_eye_bottom", "right_pupil",
	"left_eye_inner", "left_eye_top", "left_eye_outer", "left_eye_bottom", "left_pupil",
	"nose_bridge", "nose_tip", "nose_right_wing", "nose_left_wing", "nose_bottom",
	"mouth_right_corner", "upper_lip_right", "upper_lip_center", "upper_lip_left",
	"mouth_left_corner", "lower_lip_left", "lower_lip_center", "lower_lip_right",
	"upper_lip_inner", "lower_lip_inner",
	"jaw_right", "chin", "jaw_left",
}

// String returns the snake_case landmark name.
func (i Index) String() string {
	if i < 0 || i >= NumLandmarks {
		return "unknown"
	}
	return indexNames[i]
}

// ParseIndex resolves a landmark name produced by Index.String.
func ParseIndex(name string) (Index, bool) {
	for i, n := range indexNames {
		if n == name {
			return Index(i), true
		}
	}
	return 0, false
}

// Point is a tracked landmark position. Z is zero for 2D sources.
type Point struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z,omitempty"`
	Tracked bool    `json:"tracked"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Midpoint returns the point halfway between a and b. It is tracked only if both are.
func Midpoint(a, b Point) Point {
	return Point{
		X:       (a.X + b.X) / 2,
		Y:       (a.Y + b.Y) / 2,
		Z:       (a.Z + b.Z) / 2,
		Tracked: a.Tracked && b.Tracked,
	}
}

// Frame holds every landmark for one instant.
type Frame struct {
	Points []Point `json:"points"`
}

// NewFrame returns a frame with room for the full layout and nothing tracked.
func NewFrame() Frame {
	return Frame{Points: make([]Point, NumLandmarks)}
}

// Set stores a tracked point, growing the frame if it was built short.
func (f *Frame) Set(i Index, x, y, z float64) {
	if int(i) >= len(f.Points) {
		grown := make([]Point, NumLandmarks)
		copy(grown, f.Points)
		f.Points = grown
	}
	f.Points[i] = Point{X: x, Y: y, Z: z, Tracked: true}
}

// At returns the point at i and whether it is tracked.
func (f Frame) At(i Index) (Point, bool) {
	if i < 0 || int(i) >= len(f.Points) {
		return Point{}, false
	}
	p := f.Points[i]
	return p, p.Tracked
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	pts := make([]Point, len(f.Points))
	copy(pts, f.Points)
	return Frame{Points: pts}
}

// TrackedCount returns how many landmarks are tracked.
func (f Frame) TrackedCount() int {
	n := 0
	for _, p := range f.Points {
		if p.Tracked {
			n++
		}
	}
	return n
}

// Empty reports whether no landmark is tracked.
func (f Frame) Empty() bool {
	return f.TrackedCount() == 0
}

// Span returns the distance between two landmarks and whether both are tracked.
func (f Frame) Span(a, b Index) (float64, bool) {
	pa, ok := f.At(a)
	if !ok {
		return 0, false
	}
	pb, ok := f.At(b)
	if !ok {
		return 0, false
	}
	return Distance(pa, pb), true
}

// InterOcular returns the distance between the eye centres, preferring the
// pupils and falling back to eye-corner midpoints. Zero if neither is available.
func (f Frame) InterOcular() float64 {
	if d, ok := f.Span(RightPupil, LeftPupil); ok && d > 0 {
		return d
	}
	ro, ok1 := f.At(RightEyeOuter)
	ri, ok2 := f.At(RightEyeInner)
	lo, ok3 := f.At(LeftEyeOuter)
	li, ok4 := f.At(LeftEyeInner)
	if ok1 && ok2 && ok3 && ok4 {
		return Distance(Midpoint(ro, ri), Midpoint(lo, li))
	}
	return 0
}

// Average returns the per-landmark mean of frames. A landmark is tracked in
// the result if it is tracked in at least one input; only tracked inputs count.
func Average(frames []Frame) Frame {
	out := NewFrame()
	counts := make([]int, NumLandmarks)
	for _, f := range frames {
		for i, p := range f.Points {
			if i >= int(NumLandmarks) || !p.Tracked {
				continue
			}
			out.Points[i].X += p.X
			out.Points[i].Y += p.Y
			out.Points[i].Z += p.Z
			counts[i]++
		}
	}
	for i, n := range counts {
		if n == 0 {
			continue
		}
		out.Points[i].X /= float64(n)
		out.Points[i].Y /= float64(n)
		out.Points[i].Z /= float64(n)
		out.Points[i].Tracked = true
	}
	return out
}
