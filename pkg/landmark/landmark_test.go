package landmark

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestIndexNames(t *testing.T) {
	for i := Index(0); i < NumLandmarks; i++ {
		name := i.String()
		if name == "" || name == "unknown" {
			t.Fatalf("index %d has no name", i)
		}
		back, ok := ParseIndex(name)
		if !ok || back != i {
			t.Errorf("ParseIndex(%q) = %v, %v; want %v", name, back, ok, i)
		}
	}
	if Index(-1).String() != "unknown" {
		t.Error("negative index should be unknown")
	}
}

func TestFrameSetAndAt(t *testing.T) {
	var f Frame
	if _, ok := f.At(Chin); ok {
		t.Fatal("empty frame should not have Chin tracked")
	}
	f.Set(Chin, 1, 2, 3)
	p, ok := f.At(Chin)
	if !ok || p.X != 1 || p.Y != 2 || p.Z != 3 {
		t.Errorf("At(Chin) = %+v, %v", p, ok)
	}
	if len(f.Points) != int(NumLandmarks) {
		t.Errorf("frame should grow to full layout, got %d points", len(f.Points))
	}
}

func TestAverage(t *testing.T) {
	a := NewFrame()
	a.Set(NoseTip, 0, 10, 0)
	b := NewFrame()
	b.Set(NoseTip, 10, 20, 0)
	b.Set(Chin, 5, 5, 0)

	avg := Average([]Frame{a, b})
	p, ok := avg.At(NoseTip)
	if !ok || p.X != 5 || p.Y != 15 {
		t.Errorf("NoseTip avg = %+v", p)
	}
	p, ok = avg.At(Chin)
	if !ok || p.X != 5 {
		t.Errorf("Chin avg should only use tracked inputs, got %+v", p)
	}
	if _, ok := avg.At(JawLeft); ok {
		t.Error("JawLeft never tracked, should stay untracked")
	}
}

func TestPoseDeviation(t *testing.T) {
	ref := Pose{Pitch: 1, Roll: -2, Yaw: 3}
	p := Pose{Pitch: 4, Roll: 2, Yaw: 0}
	if got := p.Deviation(ref); got != 3+4+3 {
		t.Errorf("Deviation = %v, want 10", got)
	}
	if got := ref.Deviation(ref); got != 0 {
		t.Errorf("self deviation = %v", got)
	}
}

func TestMockSource(t *testing.T) {
	m := NewMock(Sample{Index: 0}, Sample{Index: 1})
	ctx := context.Background()

	for want := 0; want < 2; want++ {
		s, err := m.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if s.Index != want {
			t.Errorf("Index = %d, want %d", s.Index, want)
		}
	}
	if _, err := m.Next(ctx); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("expected ErrSourceClosed, got %v", err)
	}
	if m.Calls() != 3 {
		t.Errorf("Calls = %d, want 3", m.Calls())
	}
}

func TestPoseFromMatrix(t *testing.T) {
	identity := [4][4]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	if p := PoseFromMatrix(identity); p != (Pose{}) {
		t.Errorf("identity pose = %+v", p)
	}

	// 30 degree yaw about Z.
	c, s := math.Cos(math.Pi/6), math.Sin(math.Pi/6)
	yaw := [4][4]float64{{c, -s, 0, 0}, {s, c, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	p := PoseFromMatrix(yaw)
	if math.Abs(p.Yaw-30) > 1e-9 || math.Abs(p.Pitch) > 1e-9 || math.Abs(p.Roll) > 1e-9 {
		t.Errorf("yaw pose = %+v", p)
	}
}
