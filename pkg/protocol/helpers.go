package protocol

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-affect/pkg/landmark"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewLandmarksMessage creates a landmarks message from a sample
func NewLandmarksMessage(s landmark.Sample) (*Message, error) {
	return NewMessage(TypeLandmarks, FromSample(s))
}

// NewReferenceMessage creates a reference message from a neutral frame
func NewReferenceMessage(f landmark.Frame, pose landmark.Pose) (*Message, error) {
	return NewMessage(TypeReference, FromSample(landmark.Sample{Detected: true, Frame: f, Pose: pose}))
}

// NewSessionMessage creates a session announcement
func NewSessionMessage(id, subject string) (*Message, error) {
	return NewMessage(TypeSession, SessionData{ID: id, Subject: subject})
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Conversion between wire and landmark types
// =============================================================================

// FromSample converts a sample to its wire form. Untracked points are omitted.
func FromSample(s landmark.Sample) LandmarksData {
	d := LandmarksData{
		Index:    s.Index,
		Detected: s.Detected,
		Pose:     PoseData{Pitch: s.Pose.Pitch, Roll: s.Pose.Roll, Yaw: s.Pose.Yaw},
	}
	for i, p := range s.Frame.Points {
		if !p.Tracked {
			continue
		}
		d.Points = append(d.Points, PointData{Name: landmark.Index(i).String(), X: p.X, Y: p.Y, Z: p.Z})
	}
	return d
}

// Sample converts wire data back into a sample stamped with ts.
// Unknown point names are an error so tracker layout bugs surface early, as
// is a detected face that carries no points.
func (d *LandmarksData) Sample(ts time.Time) (landmark.Sample, error) {
	s := landmark.Sample{
		Index:    d.Index,
		Time:     ts,
		Detected: d.Detected,
		Frame:    landmark.NewFrame(),
		Pose:     landmark.Pose{Pitch: d.Pose.Pitch, Roll: d.Pose.Roll, Yaw: d.Pose.Yaw},
	}
	if d.Detected && len(d.Points) == 0 {
		return landmark.Sample{}, errors.New("detected face without landmarks")
	}
	if d.Matrix != nil {
		s.Pose = landmark.PoseFromMatrix(*d.Matrix)
	}
	for _, p := range d.Points {
		idx, ok := landmark.ParseIndex(p.Name)
		if !ok {
			return landmark.Sample{}, fmt.Errorf("unknown landmark %q", p.Name)
		}
		s.Frame.Set(idx, p.X, p.Y, p.Z)
	}
	return s, nil
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetLandmarksData extracts landmarks from a landmarks or reference message
func (m *Message) GetLandmarksData() (*LandmarksData, error) {
	var data LandmarksData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionData extracts session data from a message
func (m *Message) GetSessionData() (*SessionData, error) {
	var data SessionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
