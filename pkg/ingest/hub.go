// Package ingest accepts landmark streams from remote trackers over
// WebSocket. Each connection becomes a landmark.Source bound to one scoring
// session.
package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/protocol"
)

// ErrTrackerNotFound is returned when sending to an unknown connection.
var ErrTrackerNotFound = errors.New("ingest: tracker not connected")

// Control is what a tracker may do to its session's pipeline.
type Control interface {
	SetReference(f landmark.Frame, pose landmark.Pose)
	RequestReset()
	RequestRecalibration()
}

// Binding ties a connection to the session consuming its source.
type Binding struct {
	SessionID string
	Control   Control
}

// StartFunc starts a session for a newly connected tracker.
type StartFunc func(subject string, src *Source) (Binding, error)

// Tracker is one connected landmark tracker.
type Tracker struct {
	ID        string
	Subject   string
	SessionID string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	source  *Source
	control Control
	mu      sync.Mutex
}

// Send writes a message to the tracker.
func (t *Tracker) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Conn.WriteMessage(websocket.TextMessage, data)
}

// Config tunes the ingest hub.
type Config struct {
	// Buffer is the per-connection sample queue length.
	Buffer int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Buffer: 8}
}

// Hub manages tracker connections.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	trackers map[string]*Tracker
	start    StartFunc

	// Stats
	messagesReceived atomic.Uint64
	samplesReceived  atomic.Uint64
	rejected         atomic.Uint64
}

// NewHub creates a tracker hub.
func NewHub(cfg Config) *Hub {
	return &Hub{
		cfg:      cfg,
		logger:   log.With("component", "ingest"),
		trackers: make(map[string]*Tracker),
	}
}

// OnConnect sets the callback that starts a session for each tracker.
func (h *Hub) OnConnect(fn StartFunc) {
	h.mu.Lock()
	h.start = fn
	h.mu.Unlock()
}

// RegisterRoutes registers the capture endpoint on a Fiber app.
func (h *Hub) RegisterRoutes(app fiber.Router) {
	app.Use("/ws/capture", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/capture/:subject", websocket.New(h.handleTracker))
}

// handleTracker runs one tracker connection until it closes.
func (h *Hub) handleTracker(c *websocket.Conn) {
	subject := c.Params("subject")
	id := uuid.NewString()

	h.mu.RLock()
	start := h.start
	h.mu.RUnlock()

	t := &Tracker{
		ID:        id,
		Subject:   subject,
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
		source:    newSource("ws:"+subject, h.cfg.Buffer),
	}

	if start == nil {
		h.reject(t, errors.New("no session handler configured"))
		return
	}
	binding, err := start(subject, t.source)
	if err != nil {
		h.reject(t, fmt.Errorf("start session: %w", err))
		return
	}
	t.SessionID = binding.SessionID
	t.control = binding.Control

	h.mu.Lock()
	h.trackers[id] = t
	count := len(h.trackers)
	h.mu.Unlock()
	h.logger.Info("tracker connected", "tracker", id, "subject", subject, "session", t.SessionID, "total", count)

	defer func() {
		t.source.Close()
		h.mu.Lock()
		delete(h.trackers, id)
		count := len(h.trackers)
		h.mu.Unlock()
		h.logger.Info("tracker disconnected", "tracker", id, "dropped", t.source.Dropped(), "remaining", count)
	}()

	if msg, err := protocol.NewSessionMessage(t.SessionID, subject); err == nil {
		t.Send(msg)
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("tracker read error", "tracker", id, "error", err)
			return
		}

		t.mu.Lock()
		t.LastSeen = time.Now()
		t.mu.Unlock()

		h.messagesReceived.Add(1)
		if err := h.handleMessage(t, data); err != nil {
			h.rejected.Add(1)
			h.logger.Warn("rejected tracker message", "tracker", id, "error", err)
			if msg, merr := protocol.NewErrorMessage(err); merr == nil {
				t.Send(msg)
			}
		}
	}
}

func (h *Hub) reject(t *Tracker, err error) {
	h.logger.Warn("tracker refused", "subject", t.Subject, "error", err)
	if msg, merr := protocol.NewErrorMessage(err); merr == nil {
		t.Send(msg)
	}
	t.Conn.Close()
}

// handleMessage processes one message from a tracker.
func (h *Hub) handleMessage(t *Tracker, data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}

	ts := time.Now()
	if msg.Timestamp > 0 {
		ts = time.UnixMilli(msg.Timestamp)
	}

	switch msg.Type {
	case protocol.TypeLandmarks:
		ld, err := msg.GetLandmarksData()
		if err != nil {
			return fmt.Errorf("landmarks: %w", err)
		}
		s, err := ld.Sample(ts)
		if err != nil {
			return fmt.Errorf("landmarks: %w", err)
		}
		h.samplesReceived.Add(1)
		t.source.push(s)

	case protocol.TypeReference:
		ld, err := msg.GetLandmarksData()
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		s, err := ld.Sample(ts)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		if s.Frame.InterOcular() <= 0 {
			return errors.New("reference: eyes not tracked")
		}
		t.control.SetReference(s.Frame, s.Pose)

	case protocol.TypeRecalibrate:
		t.control.RequestRecalibration()

	case protocol.TypeReset:
		t.control.RequestReset()

	case protocol.TypePing:
		ping, _ := msg.GetPingData()
		pingTS := msg.Timestamp
		var pingID string
		if ping != nil {
			pingID = ping.ID
		}
		pong, err := protocol.NewPongMessage(pingID, pingTS, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return t.Send(pong)

	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
	return nil
}

// Send writes a message to one tracker.
func (h *Hub) Send(trackerID string, msg *protocol.Message) error {
	h.mu.RLock()
	t, ok := h.trackers[trackerID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTrackerNotFound, trackerID)
	}
	return t.Send(msg)
}

// TrackerCount returns the number of connected trackers.
func (h *Hub) TrackerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.trackers)
}

// TrackerInfo contains info about a connected tracker
type TrackerInfo struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	SessionID string    `json:"session_id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Dropped   uint64    `json:"dropped"`
}

// Trackers returns info about all connected trackers.
func (h *Hub) Trackers() []TrackerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]TrackerInfo, 0, len(h.trackers))
	for _, t := range h.trackers {
		t.mu.Lock()
		infos = append(infos, TrackerInfo{
			ID:        t.ID,
			Subject:   t.Subject,
			SessionID: t.SessionID,
			Connected: t.Connected,
			LastSeen:  t.LastSeen,
			Dropped:   t.source.Dropped(),
		})
		t.mu.Unlock()
	}
	return infos
}

// Stats contains hub statistics
type Stats struct {
	Trackers         int    `json:"trackers"`
	MessagesReceived uint64 `json:"messages_received"`
	SamplesReceived  uint64 `json:"samples_received"`
	Rejected         uint64 `json:"rejected"`
}

// GetStats returns hub statistics.
func (h *Hub) GetStats() Stats {
	return Stats{
		Trackers:         h.TrackerCount(),
		MessagesReceived: h.messagesReceived.Load(),
		SamplesReceived:  h.samplesReceived.Load(),
		Rejected:         h.rejected.Load(),
	}
}
