// Package protocol defines the WebSocket messages exchanged between landmark
// trackers, the scoring daemon and result viewers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Tracker → daemon messages
	TypeLandmarks   MessageType = "landmarks"   // One tracked frame
	TypeReference   MessageType = "reference"   // Known neutral face, skips live capture
	TypeRecalibrate MessageType = "recalibrate" // Reset bounds and recapture the reference
	TypeReset       MessageType = "reset"       // Reset bounds only

	// Daemon → tracker / viewer messages
	TypeSession MessageType = "session" // Session bound to a tracker connection
	TypeResult  MessageType = "result"  // Scores for one processed frame
	TypeError   MessageType = "error"   // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Tracker → Daemon Message Types
// =============================================================================

// PointData is one named landmark. Names follow landmark.Index.String().
type PointData struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z,omitempty"`
}

// PoseData is a head orientation in degrees.
type PoseData struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

// LandmarksData is one tracked frame. Trackers that report a head transform
// instead of angles send Matrix; it wins over Pose when present.
type LandmarksData struct {
	Index    int            `json:"index"`
	Detected bool           `json:"detected"`
	Points   []PointData    `json:"points,omitempty"`
	Pose     PoseData       `json:"pose"`
	Matrix   *[4][4]float64 `json:"matrix,omitempty"`
}

// SessionData announces the session serving a connection.
type SessionData struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
}

// ErrorData describes a rejected message.
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
