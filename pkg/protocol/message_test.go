package protocol

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/landmark/landmarktest"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "landmarks message",
			msgType: TypeLandmarks,
			data:    LandmarksData{Index: 3, Detected: true},
		},
		{
			name:    "session message",
			msgType: TypeSession,
			data:    SessionData{ID: "abc", Subject: "alice"},
		},
		{
			name:    "nil data",
			msgType: TypeRecalibrate,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeResult,
			data:    math.NaN(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestLandmarksRoundTrip(t *testing.T) {
	orig := landmark.Sample{
		Index:    7,
		Detected: true,
		Frame:    landmarktest.NeutralFace(),
		Pose:     landmark.Pose{Pitch: 1, Roll: -2, Yaw: 3},
	}

	msg, err := NewLandmarksMessage(orig)
	if err != nil {
		t.Fatalf("NewLandmarksMessage: %v", err)
	}
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if parsed.Type != TypeLandmarks {
		t.Fatalf("type = %s", parsed.Type)
	}
	ld, err := parsed.GetLandmarksData()
	if err != nil {
		t.Fatalf("GetLandmarksData: %v", err)
	}
	if len(ld.Points) != int(landmark.NumLandmarks) {
		t.Errorf("points = %d, want %d", len(ld.Points), landmark.NumLandmarks)
	}

	ts := time.UnixMilli(parsed.Timestamp)
	got, err := ld.Sample(ts)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got.Index != orig.Index || got.Pose != orig.Pose || !got.Time.Equal(ts) {
		t.Errorf("sample = %+v", got)
	}
	for i := landmark.Index(0); i < landmark.NumLandmarks; i++ {
		a, _ := orig.Frame.At(i)
		b, ok := got.Frame.At(i)
		if !ok || a != b {
			t.Errorf("%s: %+v vs %+v", i, a, b)
		}
	}
}

func TestPartialFrame(t *testing.T) {
	f := landmark.NewFrame()
	f.Set(landmark.Chin, 1, 2, 0)
	d := FromSample(landmark.Sample{Detected: true, Frame: f})
	if len(d.Points) != 1 || d.Points[0].Name != "chin" {
		t.Fatalf("points = %+v", d.Points)
	}

	s, err := d.Sample(time.Now())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if _, ok := s.Frame.At(landmark.NoseTip); ok {
		t.Error("untracked point came back tracked")
	}
}

func TestUnknownPoint(t *testing.T) {
	d := LandmarksData{Points: []PointData{{Name: "third_eye"}}}
	if _, err := d.Sample(time.Now()); err == nil {
		t.Error("expected error for an unknown landmark name")
	}
}

func TestDetectedWithoutPoints(t *testing.T) {
	d := LandmarksData{Index: 2, Detected: true}
	if _, err := d.Sample(time.Now()); err == nil {
		t.Error("expected error for a detected face without landmarks")
	}

	// An undetected sample legitimately has no points.
	d.Detected = false
	if _, err := d.Sample(time.Now()); err != nil {
		t.Errorf("undetected sample: %v", err)
	}
}

func TestMatrixOverridesPose(t *testing.T) {
	// 90 degree yaw about Z.
	m := [4][4]float64{
		{0, -1, 0, 0},
		{1, 0, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	d := LandmarksData{Pose: PoseData{Yaw: 5}, Matrix: &m}
	s, err := d.Sample(time.Now())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if math.Abs(s.Pose.Yaw-90) > 1e-9 {
		t.Errorf("yaw = %v, want 90 from the matrix", s.Pose.Yaw)
	}
}

func TestParseMessageErrors(t *testing.T) {
	if _, err := ParseMessage([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := ParseMessage([]byte(`{"ts": 5}`)); err == nil {
		t.Error("expected error for a message without type")
	}
}

func TestPingPong(t *testing.T) {
	ping, err := NewPingMessage("p1")
	if err != nil {
		t.Fatal(err)
	}
	pd, err := ping.GetPingData()
	if err != nil || pd.ID != "p1" || pd.Timestamp == 0 {
		t.Fatalf("ping = %+v, %v", pd, err)
	}

	pong, _ := NewPongMessage(pd.ID, 1000, 1025)
	var raw map[string]any
	b, _ := pong.Bytes()
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	pod, _ := pong.GetPongData()
	if pod.LatencyMs != 25 {
		t.Errorf("latency = %d, want 25", pod.LatencyMs)
	}
	if raw["type"] != "pong" {
		t.Errorf("type = %v", raw["type"])
	}
}
