package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// yunetPoints is the order of YuNet's five landmarks (columns 4-13).
var yunetPoints = [5]landmark.Index{
	landmark.RightPupil,
	landmark.LeftPupil,
	landmark.NoseTip,
	landmark.MouthRightCorner,
	landmark.MouthLeftCorner,
}

// YuNetLocator uses OpenCV's FaceDetectorYN. It tracks five points per face,
// so only the action units built on eyes, nose tip and mouth corners move.
type YuNetLocator struct {
	detector gocv.FaceDetectorYN
	cfg      Config
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a YuNet locator from the ONNX model at cfg.ModelPath.
func NewYuNet(cfg Config) (*YuNetLocator, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	// Input size is updated per image.
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetLocator{detector: detector, cfg: cfg}, nil
}

// Locate implements Locator.
func (d *YuNetLocator) Locate(img image.Image) (Face, bool, error) {
	if img.Bounds().Empty() {
		return Face{}, false, ErrEmptyImage
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return Face{}, false, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()
	return d.LocateMat(mat)
}

// LocateMat finds the best face in a BGR Mat.
func (d *YuNetLocator) LocateMat(img gocv.Mat) (Face, bool, error) {
	if img.Empty() {
		return Face{}, false, ErrEmptyImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	// Row layout: 0-3 bbox (x, y, w, h), 4-13 five (x, y) points, 14 score.
	var found []Face
	for r := 0; r < faces.Rows(); r++ {
		at := func(c int) float64 { return float64(faces.GetFloatAt(r, c)) }

		x, y := int(at(0)), int(at(1))
		f := Face{
			Box:        image.Rect(x, y, x+int(at(2)), y+int(at(3))),
			Confidence: at(14),
			Frame:      landmark.NewFrame(),
		}
		for i, idx := range yunetPoints {
			f.Frame.Set(idx, at(4+2*i), at(5+2*i), 0)
		}
		found = append(found, f)
	}

	best, ok := SelectBest(found)
	if !ok {
		return Face{}, false, nil
	}
	best.Pose = EstimatePose(best.Frame)
	return best, true, nil
}

// Close implements Locator.
func (d *YuNetLocator) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
