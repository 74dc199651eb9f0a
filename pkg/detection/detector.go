// Package detection turns images into landmark samples. Two locators are
// provided: pigo cascades (pure Go) for still images and OpenCV's YuNet for
// camera capture.
package detection

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// ErrEmptyImage is returned for images with no pixels.
var ErrEmptyImage = errors.New("detection: empty image")

// Face is one located face in image pixel coordinates.
type Face struct {
	Box        image.Rectangle
	Confidence float64
	Frame      landmark.Frame
	Pose       landmark.Pose
}

// Area returns the bounding box area in pixels.
func (f Face) Area() float64 {
	return float64(f.Box.Dx() * f.Box.Dy())
}

// Usable reports whether the face carries enough landmarks to scale deltas.
// A located box without eyes is not a detection.
func (f Face) Usable() bool {
	return f.Frame.InterOcular() > 0
}

// Locator finds the landmarks of the most prominent face in an image.
type Locator interface {
	// Locate returns ok=false when no face was found.
	Locate(img image.Image) (face Face, ok bool, err error)

	// Close releases resources
	Close() error
}

// Config holds locator configuration.
type Config struct {
	// pigo cascades
	FaceFinder string // face detection cascade
	Puploc     string // pupil localisation cascade
	FlpDir     string // directory of facial landmark point cascades (lp38, lp42, ...)

	// YuNet
	ModelPath   string
	InputWidth  int
	InputHeight int

	ConfidenceThresh float64 // YuNet score (0-1)
	PigoQThresh      float64 // pigo detection quality, unbounded
	MinFaceSize      int     // pixels
	MaxWidth         int     // images wider than this are downscaled first (0 = never)
}

// DefaultConfig returns defaults matching the layout of the models directory.
func DefaultConfig() Config {
	return Config{
		FaceFinder:       "models/pigo/facefinder",
		Puploc:           "models/pigo/puploc",
		FlpDir:           "models/pigo/lps",
		ModelPath:        "models/face_detection_yunet.onnx",
		InputWidth:       320,
		InputHeight:      320,
		ConfidenceThresh: 0.5,
		PigoQThresh:      5.0,
		MinFaceSize:      60,
		MaxWidth:         1280,
	}
}

// SelectBest picks the best face from multiple candidates.
// Priority: confidence * 0.7 + relative area * 0.3
func SelectBest(faces []Face) (Face, bool) {
	switch len(faces) {
	case 0:
		return Face{}, false
	case 1:
		return faces[0], true
	}

	maxArea := 0.0
	for _, f := range faces {
		maxArea = max(maxArea, f.Area())
	}

	best, bestScore := 0, -1.0
	for i, f := range faces {
		score := f.Confidence * 0.7
		if maxArea > 0 {
			score += f.Area() / maxArea * 0.3
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return faces[best], true
}

// downscale shrinks img to maxWidth and returns the factor that maps
// coordinates in the result back to the original.
func downscale(img image.Image, maxWidth int) (image.Image, float64) {
	w := img.Bounds().Dx()
	if maxWidth <= 0 || w <= maxWidth {
		return img, 1
	}
	small := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	return small, float64(w) / float64(maxWidth)
}

// scaleFace maps a face located in a downscaled image back to source pixels.
func scaleFace(f Face, k float64) Face {
	if k == 1 {
		return f
	}
	f.Box = image.Rect(
		int(float64(f.Box.Min.X)*k), int(float64(f.Box.Min.Y)*k),
		int(float64(f.Box.Max.X)*k), int(float64(f.Box.Max.Y)*k),
	)
	for i, p := range f.Frame.Points {
		if p.Tracked {
			f.Frame.Points[i].X = p.X * k
			f.Frame.Points[i].Y = p.Y * k
		}
	}
	return f
}
