package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/landmark/landmarktest"
)

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name  string
		faces []Face
		want  float64 // confidence of the expected pick
		ok    bool
	}{
		{name: "none", ok: false},
		{
			name:  "single",
			faces: []Face{{Box: image.Rect(0, 0, 10, 10), Confidence: 0.3}},
			want:  0.3, ok: true,
		},
		{
			name: "confidence wins at equal size",
			faces: []Face{
				{Box: image.Rect(0, 0, 50, 50), Confidence: 0.6},
				{Box: image.Rect(0, 0, 50, 50), Confidence: 0.9},
			},
			want: 0.9, ok: true,
		},
		{
			name: "much larger face beats slightly higher confidence",
			faces: []Face{
				{Box: image.Rect(0, 0, 10, 10), Confidence: 0.8},
				{Box: image.Rect(0, 0, 100, 100), Confidence: 0.7},
			},
			want: 0.7, ok: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SelectBest(tc.faces)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got.Confidence != tc.want {
				t.Errorf("picked confidence %.2f, want %.2f", got.Confidence, tc.want)
			}
		})
	}
}

func TestEstimatePoseFrontal(t *testing.T) {
	p := EstimatePose(landmarktest.NeutralFace())
	if math.Abs(p.Roll) > 1e-9 || math.Abs(p.Yaw) > 1e-9 || p.Pitch != 0 {
		t.Errorf("frontal face pose = %+v, want zero", p)
	}
}

func TestEstimatePoseRoll(t *testing.T) {
	f := landmarktest.Move(landmarktest.NeutralFace(), landmark.LeftPupil, 0, 60)
	p := EstimatePose(f)
	// Pupils 60 apart horizontally and vertically: 45 degrees.
	if math.Abs(p.Roll-45) > 1e-9 {
		t.Errorf("roll = %v, want 45", p.Roll)
	}
}

func TestEstimatePoseYaw(t *testing.T) {
	f := landmarktest.Move(landmarktest.NeutralFace(), landmark.NoseTip, 15, 0)
	p := EstimatePose(f)
	// Nose at half of the half inter-ocular distance: asin(0.5).
	if math.Abs(p.Yaw-30) > 1e-9 {
		t.Errorf("yaw = %v, want 30", p.Yaw)
	}
	if p.Roll != 0 {
		t.Errorf("roll = %v, want 0", p.Roll)
	}

	if got := EstimatePose(landmark.NewFrame()); got != (landmark.Pose{}) {
		t.Errorf("untracked frame pose = %+v", got)
	}
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	small, k := downscale(img, 100)
	if small.Bounds().Dx() != 100 || small.Bounds().Dy() != 50 {
		t.Errorf("downscaled to %v", small.Bounds())
	}
	if k != 4 {
		t.Errorf("factor = %v, want 4", k)
	}

	f := Face{Box: image.Rect(10, 10, 20, 20), Frame: landmark.NewFrame()}
	f.Frame.Set(landmark.Chin, 5, 6, 0)
	f = scaleFace(f, k)
	if f.Box != image.Rect(40, 40, 80, 80) {
		t.Errorf("box = %v", f.Box)
	}
	if p, _ := f.Frame.At(landmark.Chin); p.X != 20 || p.Y != 24 {
		t.Errorf("chin = %+v", p)
	}

	if _, k := downscale(img, 0); k != 1 {
		t.Errorf("factor with no limit = %v", k)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{100, 100, 100, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func faceLocator() *MockLocator {
	return &MockLocator{LocateFunc: func(img image.Image) (Face, bool, error) {
		f := landmarktest.NeutralFace()
		return Face{Frame: f, Pose: EstimatePose(f), Confidence: 1}, true, nil
	}}
}

func TestDirSourceOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "c.png"} {
		writePNG(t, filepath.Join(dir, name))
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	loc := faceLocator()
	src, err := OpenDir(dir, loc, DirOptions{})
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next %d: %v", i, err)
		}
		if s.Index != i || !s.Detected {
			t.Errorf("sample %d: index=%d detected=%v", i, s.Index, s.Detected)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, landmark.ErrSourceClosed) {
		t.Errorf("err = %v, want ErrSourceClosed", err)
	}
	if loc.Calls() != 3 {
		t.Errorf("located %d images, want 3", loc.Calls())
	}
}

func TestDirSourceNoFace(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "blank.png"))

	src, err := OpenDir(dir, &MockLocator{}, DirOptions{})
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	s, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.Detected {
		t.Error("sample marked detected without a face")
	}
}

func TestDirSourceFaceWithoutEyes(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "box.png"))

	loc := &MockLocator{LocateFunc: func(img image.Image) (Face, bool, error) {
		return Face{Box: image.Rect(0, 0, 10, 10), Frame: landmark.NewFrame(), Confidence: 1}, true, nil
	}}
	src, err := OpenDir(dir, loc, DirOptions{})
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer src.Close()
	s, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if s.Detected {
		t.Error("face box without landmarks reported as detected")
	}
}

func TestPigoThresholdSeparateFromYuNet(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PigoQThresh <= 1 {
		t.Errorf("PigoQThresh = %v, want a Q-scale threshold", cfg.PigoQThresh)
	}
	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh >= 1 {
		t.Errorf("ConfidenceThresh = %v, want a probability", cfg.ConfidenceThresh)
	}
}

func TestDirSourceWatch(t *testing.T) {
	dir := t.TempDir()
	src, err := OpenDir(dir, faceLocator(), DirOptions{Watch: true})
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		s   landmark.Sample
		err error
	}
	got := make(chan result, 1)
	go func() {
		s, err := src.Next(ctx)
		got <- result{s, err}
	}()

	// Write to a temp name and rename so the watcher never sees a partial file.
	tmp := filepath.Join(dir, "frame.tmp")
	writePNG(t, tmp)
	if err := os.Rename(tmp, filepath.Join(dir, "frame.png")); err != nil {
		t.Fatal(err)
	}

	r := <-got
	if r.err != nil {
		t.Fatalf("Next: %v", r.err)
	}
	if !r.s.Detected {
		t.Error("watched image not detected")
	}
}

func TestDirSourceClose(t *testing.T) {
	src, err := OpenDir(t.TempDir(), faceLocator(), DirOptions{Watch: true})
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, landmark.ErrSourceClosed) {
		t.Errorf("err = %v, want ErrSourceClosed", err)
	}
}

func TestOpenDirMissing(t *testing.T) {
	if _, err := OpenDir(filepath.Join(t.TempDir(), "nope"), faceLocator(), DirOptions{}); err == nil {
		t.Error("expected error for a missing directory")
	}
}

func TestIsImage(t *testing.T) {
	for name, want := range map[string]bool{
		"a.JPG": true, "b.webp": true, "c.png": true, "d.txt": false, "e": false,
	} {
		if IsImage(name) != want {
			t.Errorf("IsImage(%q) = %v", name, !want)
		}
	}
}

func TestDefaultFlpMapping(t *testing.T) {
	seen := make(map[landmark.Index]bool)
	for _, m := range DefaultFlpMapping() {
		if seen[m.Index] {
			t.Errorf("landmark %s mapped twice", m.Index)
		}
		seen[m.Index] = true
	}
}
