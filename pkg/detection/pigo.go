package detection

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	pigo "github.com/esimov/pigo/core"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// FlpPoint maps one facial landmark point cascade to a landmark. Flip runs
// the cascade mirrored, which finds the symmetric point on the other side.
type FlpPoint struct {
	Cascade string
	Flip    bool
	Index   landmark.Index
}

// DefaultFlpMapping is the layout of the standard pigo lps cascade set.
// Unflipped cascades find the point on the image-left side, which is the
// subject's right.
func DefaultFlpMapping() []FlpPoint {
	return []FlpPoint{
		{"lp46", false, landmark.RightBrowOuter},
		{"lp46", true, landmark.LeftBrowOuter},
		{"lp44", false, landmark.RightBrowInner},
		{"lp44", true, landmark.LeftBrowInner},
		{"lp42", false, landmark.RightEyeOuter},
		{"lp42", true, landmark.LeftEyeOuter},
		{"lp38", false, landmark.RightEyeInner},
		{"lp38", true, landmark.LeftEyeInner},
		{"lp312", false, landmark.NoseRightWing},
		{"lp312", true, landmark.NoseLeftWing},
		{"lp84", false, landmark.MouthRightCorner},
		{"lp84", true, landmark.MouthLeftCorner},
		{"lp93", false, landmark.NoseBottom},
		{"lp82", false, landmark.UpperLipCenter},
		{"lp81", false, landmark.LowerLipCenter},
	}
}

// Cascade search parameters.
const (
	pigoShiftFactor = 0.1
	pigoScaleFactor = 1.1
	pigoIoU         = 0.2
	pigoPerturbs    = 63
)

// PigoLocator finds faces with pigo's pixel-intensity cascades.
type PigoLocator struct {
	cfg     Config
	face    *pigo.Pigo
	pupils  *pigo.PuplocCascade
	points  map[string]*pigo.PuplocCascade
	mapping []FlpPoint

	mu sync.Mutex
}

// NewPigo loads the face, pupil and landmark cascades named by cfg. The
// landmark set is optional: without FlpDir only pupils are located.
func NewPigo(cfg Config, mapping []FlpPoint) (*PigoLocator, error) {
	data, err := os.ReadFile(cfg.FaceFinder)
	if err != nil {
		return nil, fmt.Errorf("read face cascade: %w", err)
	}
	face, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack face cascade: %w", err)
	}

	data, err = os.ReadFile(cfg.Puploc)
	if err != nil {
		return nil, fmt.Errorf("read pupil cascade: %w", err)
	}
	pupils, err := new(pigo.PuplocCascade).UnpackCascade(data)
	if err != nil {
		return nil, fmt.Errorf("unpack pupil cascade: %w", err)
	}

	l := &PigoLocator{
		cfg:     cfg,
		face:    face,
		pupils:  pupils,
		points:  make(map[string]*pigo.PuplocCascade),
		mapping: mapping,
	}
	if cfg.FlpDir == "" {
		l.mapping = nil
		return l, nil
	}
	for _, m := range mapping {
		if _, ok := l.points[m.Cascade]; ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(cfg.FlpDir, m.Cascade))
		if err != nil {
			return nil, fmt.Errorf("read landmark cascade %s: %w", m.Cascade, err)
		}
		c, err := new(pigo.PuplocCascade).UnpackCascade(data)
		if err != nil {
			return nil, fmt.Errorf("unpack landmark cascade %s: %w", m.Cascade, err)
		}
		l.points[m.Cascade] = c
	}
	return l, nil
}

// Locate implements Locator.
func (l *PigoLocator) Locate(img image.Image) (Face, bool, error) {
	if img.Bounds().Empty() {
		return Face{}, false, ErrEmptyImage
	}
	src, k := downscale(img, l.cfg.MaxWidth)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	params := pigo.ImageParams{
		Pixels: pigo.RgbToGrayscale(src),
		Rows:   rows,
		Cols:   cols,
		Dim:    cols,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dets := l.face.RunCascade(pigo.CascadeParams{
		MinSize:     l.cfg.MinFaceSize,
		MaxSize:     max(rows, cols),
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: pigoScaleFactor,
		ImageParams: params,
	}, 0)
	dets = l.face.ClusterDetections(dets, pigoIoU)

	var faces []Face
	for _, d := range dets {
		if float64(d.Q) < l.cfg.PigoQThresh {
			continue
		}
		// Pupils missed: nothing to measure against.
		if f := l.landmarks(d, params); f.Usable() {
			faces = append(faces, f)
		}
	}
	best, ok := SelectBest(faces)
	if !ok {
		return Face{}, false, nil
	}
	best = scaleFace(best, k)
	best.Pose = EstimatePose(best.Frame)
	return best, true, nil
}

// landmarks runs the pupil and point cascades inside one detection.
func (l *PigoLocator) landmarks(d pigo.Detection, params pigo.ImageParams) Face {
	half := d.Scale / 2
	face := Face{
		Box:        image.Rect(d.Col-half, d.Row-half, d.Col+half, d.Row+half),
		Confidence: float64(d.Q),
		Frame:      landmark.NewFrame(),
	}

	scale := float32(d.Scale)
	right := l.pupils.RunDetector(pigo.Puploc{
		Row:      d.Row - int(0.075*scale),
		Col:      d.Col - int(0.175*scale),
		Scale:    scale * 0.25,
		Perturbs: pigoPerturbs,
	}, params, 0, false)
	left := l.pupils.RunDetector(pigo.Puploc{
		Row:      d.Row - int(0.075*scale),
		Col:      d.Col + int(0.185*scale),
		Scale:    scale * 0.25,
		Perturbs: pigoPerturbs,
	}, params, 0, false)

	if !found(right) || !found(left) {
		return face
	}
	face.Frame.Set(landmark.RightPupil, float64(right.Col), float64(right.Row), 0)
	face.Frame.Set(landmark.LeftPupil, float64(left.Col), float64(left.Row), 0)

	// GetLandmarkPoint reuses its result, so copy before the next call.
	re, le := *right, *left
	for _, m := range l.mapping {
		c := l.points[m.Cascade]
		if c == nil {
			continue
		}
		p := c.GetLandmarkPoint(&re, &le, params, pigoPerturbs, m.Flip)
		if found(p) {
			face.Frame.Set(m.Index, float64(p.Col), float64(p.Row), 0)
		}
	}
	return face
}

func found(p *pigo.Puploc) bool {
	return p != nil && p.Row > 0 && p.Col > 0
}

// Close implements Locator.
func (l *PigoLocator) Close() error { return nil }
