package calibration

import (
	"math"
	"math/rand"
	"testing"
)

func testDefaults() Defaults {
	return Defaults{Min: -5, Max: 5, MinTol: -1, MaxTol: 1, ExtremeMin: -40, ExtremeMax: 40}
}

func TestAdaptiveMinMaxWidensByNinetyPercent(t *testing.T) {
	s := New(testDefaults())
	s.AdaptiveMinMax([]float64{20, -30}, 0, 10)
	if s.Max != 18 {
		t.Errorf("Max = %v, want 18", s.Max)
	}
	if s.Min != -27 {
		t.Errorf("Min = %v, want -27", s.Min)
	}

	// Smaller observations never shrink the bounds.
	s.AdaptiveMinMax([]float64{2, -2}, 0, 10)
	if s.Max != 18 || s.Min != -27 {
		t.Errorf("bounds shrank to [%v, %v]", s.Min, s.Max)
	}
}

func TestAdaptiveMinMaxMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := New(testDefaults())
	prevMin, prevMax := s.Min, s.Max
	for i := 0; i < 1000; i++ {
		vals := []float64{rng.NormFloat64() * 30, rng.NormFloat64() * 30}
		s.AdaptiveMinMax(vals, rng.Float64()*10, 10)
		if s.Max < prevMax {
			t.Fatalf("tick %d: max decreased %v -> %v", i, prevMax, s.Max)
		}
		if s.Min > prevMin {
			t.Fatalf("tick %d: min increased %v -> %v", i, prevMin, s.Min)
		}
		prevMin, prevMax = s.Min, s.Max
	}
}

func TestAdaptiveMinMaxPoseGate(t *testing.T) {
	s := New(testDefaults())
	before := s.Snapshot()
	if s.AdaptiveMinMax([]float64{1000, -1000}, 10.5, 10) {
		t.Error("update should report skipped")
	}
	if s.Snapshot() != before {
		t.Errorf("bounds changed under bad pose: %+v", s.Snapshot())
	}

	// Deviation equal to tolerance is still trusted.
	if !s.AdaptiveMinMax([]float64{100}, 10, 10) {
		t.Error("deviation at tolerance should update")
	}
}

func TestNormalize(t *testing.T) {
	s := New(Defaults{Min: -20, Max: 10})
	tests := []struct {
		raw, want float64
	}{
		{0, 0},
		{5, 50},
		{10, 100},
		{-10, -50},
		{-20, -100},
		{30, 100},    // clamped
		{-500, -100}, // clamped
	}
	for _, tt := range tests {
		if got := s.Normalize(tt.raw); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Normalize(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeZeroBounds(t *testing.T) {
	s := New(Defaults{})
	for _, raw := range []float64{-3, 0, 3} {
		got := s.Normalize(raw)
		if got != 0 || math.IsNaN(got) {
			t.Errorf("Normalize(%v) with zero bounds = %v, want 0", raw, got)
		}
	}

	// First non-zero observation establishes the bound.
	s.AdaptiveMinMax([]float64{10}, 0, 10)
	if got := s.Normalize(9); got != 100 {
		t.Errorf("Normalize(9) = %v, want 100", got)
	}
	if got := s.Normalize(-1); got != 0 {
		t.Errorf("negative side still unbounded, got %v", got)
	}
}

func TestToleranceFilter(t *testing.T) {
	s := New(testDefaults())
	vals := []float64{-1, -0.5, 0.99, 1, 3}
	s.ToleranceFilter(vals)
	want := []float64{-1, 0, 0, 1, 3}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("vals[%d] = %v, want %v", i, vals[i], want[i])
		}
	}
}

func TestExtremeClamp(t *testing.T) {
	s := New(testDefaults())
	if got := s.ExtremeClamp([]float64{10, 200}); got != 25 {
		t.Errorf("ExtremeClamp = %v, want 25", got)
	}
	if got := s.ExtremeClamp(nil); got != 0 {
		t.Errorf("empty ExtremeClamp = %v, want 0", got)
	}
}

func TestResetKeepsTolerances(t *testing.T) {
	s := New(testDefaults())
	s.AdaptiveMinMax([]float64{100, -100}, 0, 10)
	s.MinTol = -3
	s.Reset()
	if s.Min != -5 || s.Max != 5 {
		t.Errorf("Reset bounds = [%v, %v]", s.Min, s.Max)
	}
	if s.MinTol != -3 {
		t.Error("Reset must not touch tolerance")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New(testDefaults())
	s.AdaptiveMinMax([]float64{50}, 0, 10)
	snap := s.Snapshot()
	s.AdaptiveMinMax([]float64{90}, 0, 10)
	s.Restore(snap)
	if s.Max != 45 {
		t.Errorf("Max after restore = %v, want 45", s.Max)
	}
}
