package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// CameraSource captures frames from a video device and locates a face in
// each with YuNet.
type CameraSource struct {
	device  string
	capture *gocv.VideoCapture
	locator *YuNetLocator

	mu     sync.Mutex
	frame  gocv.Mat
	index  int
	closed bool
}

// OpenCamera opens a device id ("0") or a video file / stream URL.
func OpenCamera(device string, loc *YuNetLocator) (*CameraSource, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", landmark.ErrNoSource, device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s not opened", landmark.ErrNoSource, device)
	}
	return &CameraSource{
		device:  device,
		capture: capture,
		locator: loc,
		frame:   gocv.NewMat(),
	}, nil
}

// Next implements landmark.Source. Reads block at the device frame rate.
func (c *CameraSource) Next(ctx context.Context) (landmark.Sample, error) {
	if err := ctx.Err(); err != nil {
		return landmark.Sample{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return landmark.Sample{}, landmark.ErrSourceClosed
	}

	if ok := c.capture.Read(&c.frame); !ok {
		// End of a file or a dropped device.
		return landmark.Sample{}, landmark.ErrSourceClosed
	}
	if c.frame.Empty() {
		return landmark.Sample{}, errors.New("camera: empty frame")
	}

	face, ok, err := c.locator.LocateMat(c.frame)
	if err != nil {
		return landmark.Sample{}, err
	}
	ok = ok && face.Usable()
	s := landmark.Sample{Index: c.index, Time: time.Now(), Detected: ok}
	c.index++
	if ok {
		s.Frame = face.Frame
		s.Pose = face.Pose
	}
	return s, nil
}

// Close implements landmark.Source.
func (c *CameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.frame.Close()
	return c.capture.Close()
}

// Name implements landmark.Source.
func (c *CameraSource) Name() string { return "camera:" + c.device }
