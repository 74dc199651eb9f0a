package web

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/hub"
	"github.com/teslashibe/go-affect/pkg/ingest"
	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/recording"
	"github.com/teslashibe/go-affect/pkg/replay"
)

// errorHandler maps package sentinels onto HTTP status codes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, pipeline.ErrSessionNotFound),
		errors.Is(err, replay.ErrNoRecordings),
		errors.Is(err, recording.ErrFrameOutOfRange),
		errors.Is(err, emotions.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, replay.ErrNotLoaded):
		code = fiber.StatusConflict
	case errors.Is(err, model.ErrUnknownEmotion):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// Status is the daemon overview returned by GET /api/status.
type Status struct {
	Sessions int           `json:"sessions"`
	Profiles int           `json:"profiles"`
	Results  hub.Stats     `json:"results"`
	Ingest   *ingest.Stats `json:"ingest,omitempty"`
	Analysis *AnalysisInfo `json:"analysis,omitempty"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := Status{
		Sessions: len(s.cfg.Scheduler.List()),
		Profiles: s.cfg.Registry.Count(),
	}
	if s.cfg.Results != nil {
		st.Results = s.cfg.Results.GetStats()
	}
	if s.cfg.Ingest != nil {
		is := s.cfg.Ingest.GetStats()
		st.Ingest = &is
	}
	s.analysisMu.Lock()
	if s.analysis != nil {
		info := analysisInfo(s.analysis)
		st.Analysis = &info
	}
	s.analysisMu.Unlock()
	return c.JSON(st)
}

func (s *Server) handleListSessions(c *fiber.Ctx) error {
	return c.JSON(s.cfg.Scheduler.List())
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sess, err := s.cfg.Scheduler.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(sess.Info())
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.cfg.Scheduler.Reset(id); err != nil {
		return err
	}
	s.logger.Info("reset requested", "session", id)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"session": id, "requested": "reset"})
}

func (s *Server) handleRecalibrate(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.cfg.Scheduler.Recalibrate(id); err != nil {
		return err
	}
	s.logger.Info("recalibration requested", "session", id)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"session": id, "requested": "recalibrate"})
}

func (s *Server) handleListProfiles(c *fiber.Ctx) error {
	return c.JSON(s.cfg.Registry.Profiles())
}

// AnalysisInfo describes the loaded analysis.
type AnalysisInfo struct {
	Label      model.Emotion `json:"label"`
	Recordings int           `json:"recordings"`
	Frames     int           `json:"frames"`
}

func analysisInfo(a *replay.Analyzer) AnalysisInfo {
	return AnalysisInfo{Label: a.Label(), Recordings: a.Recordings(), Frames: a.Len()}
}

// handleLoadAnalysis loads every recording of a label, replacing the
// current analysis.
func (s *Server) handleLoadAnalysis(c *fiber.Ctx) error {
	if s.cfg.Store == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no recording store configured")
	}
	label, err := model.ParseEmotion(c.Params("label"))
	if err != nil {
		return err
	}
	a, err := replay.Load(c.UserContext(), s.cfg.Store, label, s.cfg.Registry, s.cfg.Replay)
	if err != nil {
		return err
	}

	s.analysisMu.Lock()
	s.analysis = a
	s.analysisMu.Unlock()

	info := analysisInfo(a)
	s.logger.Info("analysis loaded", "label", label, "recordings", info.Recordings, "frames", info.Frames)
	return c.Status(fiber.StatusCreated).JSON(info)
}

func (s *Server) loaded() (*replay.Analyzer, error) {
	s.analysisMu.Lock()
	defer s.analysisMu.Unlock()
	if s.analysis == nil {
		return nil, replay.ErrNotLoaded
	}
	return s.analysis, nil
}

func (s *Server) handleSeek(c *fiber.Ctx) error {
	a, err := s.loaded()
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(c.Params("n"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "frame must be an integer")
	}
	frames, err := a.Seek(c.UserContext(), n)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"label": a.Label(), "frame": n, "tracks": frames})
}

func (s *Server) handleSummary(c *fiber.Ctx) error {
	a, err := s.loaded()
	if err != nil {
		return err
	}
	sum, err := a.Summarize(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

// handleResultsWS streams results to a renderer; ?subject= narrows it to one
// subject.
func (s *Server) handleResultsWS(c *websocket.Conn) {
	hub.NewClient(s.cfg.Results, c, c.Query("subject")).Run()
}
