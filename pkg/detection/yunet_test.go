package detection

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// findModel walks up from the test directory looking for models/<name>.
func findModel(name string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; dir != "/"; dir = filepath.Dir(dir) {
		p := filepath.Join(dir, "models", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestYuNetNewInvalidPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"
	if _, err := NewYuNet(cfg); err == nil {
		t.Error("Expected error for invalid model path")
	}
}

func TestYuNetSolidImage(t *testing.T) {
	modelPath := findModel("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}
	cfg := DefaultConfig()
	cfg.ModelPath = modelPath

	loc, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer loc.Close()

	_, ok, err := loc.Locate(solidImage(320, 240, color.RGBA{0, 0, 255, 255}))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if ok {
		t.Error("Expected no face in a solid color image")
	}

	if _, _, err := loc.Locate(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestPigoMissingCascade(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FaceFinder = "/nonexistent/facefinder"
	if _, err := NewPigo(cfg, DefaultFlpMapping()); err == nil {
		t.Error("Expected error for missing cascade")
	}
}

func TestPigoSolidImage(t *testing.T) {
	face := findModel(filepath.Join("pigo", "facefinder"))
	pup := findModel(filepath.Join("pigo", "puploc"))
	if face == "" || pup == "" {
		t.Skip("pigo cascades not found, skipping test")
	}
	cfg := DefaultConfig()
	cfg.FaceFinder, cfg.Puploc, cfg.FlpDir = face, pup, ""

	loc, err := NewPigo(cfg, DefaultFlpMapping())
	if err != nil {
		t.Fatalf("NewPigo failed: %v", err)
	}
	_, ok, err := loc.Locate(solidImage(200, 200, color.RGBA{90, 90, 90, 255}))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if ok {
		t.Error("Expected no face in a solid color image")
	}
}
