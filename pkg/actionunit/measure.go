package actionunit

import "github.com/teslashibe/go-affect/pkg/landmark"

// Kind selects how a Measure reads two landmarks.
type Kind int

const (
	// Span is the Euclidean distance between A and B.
	Span Kind = iota

	// Rise is how far A sits above B in image coordinates (B.Y - A.Y).
	Rise
)

// Measure is one geometric signal between two landmarks. Its delta is the
// change from the reference frame, scaled by Sign.
type Measure struct {
	Kind Kind
	A, B landmark.Index
	Sign float64
}

func span(a, b landmark.Index, sign float64) Measure { return Measure{Kind: Span, A: a, B: b, Sign: sign} }
func rise(a, b landmark.Index, sign float64) Measure { return Measure{Kind: Rise, A: a, B: b, Sign: sign} }

func (ms Measure) read(f landmark.Frame) (float64, bool) {
	if ms.Kind == Span {
		return f.Span(ms.A, ms.B)
	}
	pa, ok := f.At(ms.A)
	if !ok {
		return 0, false
	}
	pb, ok := f.At(ms.B)
	if !ok {
		return 0, false
	}
	return pb.Y - pa.Y, true
}

// Delta returns the signed change from ref to cur in percent of scale (the
// reference inter-ocular distance). ok is false when either frame lacks one
// of the landmarks or scale is not positive.
func (ms Measure) Delta(cur, ref landmark.Frame, scale float64) (float64, bool) {
	if scale <= 0 {
		return 0, false
	}
	c, ok := ms.read(cur)
	if !ok {
		return 0, false
	}
	r, ok := ms.read(ref)
	if !ok {
		return 0, false
	}
	return ms.Sign * (c - r) * 100 / scale, true
}
