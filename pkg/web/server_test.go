package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/hub"
	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/landmark/landmarktest"
	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/recording"
	"github.com/teslashibe/go-affect/pkg/replay"
)

type fixture struct {
	srv   *Server
	sess  *pipeline.Session
	store *recording.DirStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg, err := emotions.DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	store, err := recording.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}

	sched := pipeline.NewScheduler(ctx, pipeline.DefaultSchedulerConfig())
	p, err := pipeline.New("alice", reg, pipeline.DefaultConfig())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	src := &landmark.Mock{NextFunc: func(ctx context.Context) (landmark.Sample, error) {
		<-ctx.Done()
		return landmark.Sample{}, ctx.Err()
	}}
	sess := pipeline.NewSession(p, src, pipeline.WithID("s1"))
	if err := sched.Start(sess); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(sched.StopAll)

	srv := NewServer(Config{
		Scheduler: sched,
		Registry:  reg,
		Results:   hub.New("results"),
		Store:     store,
		Replay:    replay.DefaultConfig(),
	})
	return &fixture{srv: srv, sess: sess, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, out any) int {
	t.Helper()
	resp, err := f.srv.App().Test(httptest.NewRequest(method, path, nil), -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, body, err)
		}
	}
	return resp.StatusCode
}

func smileRecording(subject string, n int) *recording.Recording {
	r := recording.New(subject, model.Joy, 30)
	r.Reference = landmarktest.NeutralFace()
	for i := 0; i < n; i++ {
		px := float64(i % 6)
		f := landmarktest.Move(landmarktest.NeutralFace(), landmark.MouthLeftCorner, 0, -px)
		f = landmarktest.Move(f, landmark.MouthRightCorner, 0, -px)
		r.Samples = append(r.Samples, landmark.Sample{Index: i, Detected: true, Frame: f})
	}
	return r
}

func TestSessions(t *testing.T) {
	f := newFixture(t)

	var list []pipeline.SessionInfo
	if code := f.do(t, http.MethodGet, "/api/sessions", &list); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(list) != 1 || list[0].ID != "s1" || list[0].Subject != "alice" {
		t.Errorf("sessions = %+v", list)
	}

	var info pipeline.SessionInfo
	if code := f.do(t, http.MethodGet, "/api/sessions/s1", &info); code != http.StatusOK || info.ID != "s1" {
		t.Errorf("GET session: code=%d info=%+v", code, info)
	}

	var errBody map[string]string
	if code := f.do(t, http.MethodGet, "/api/sessions/nope", &errBody); code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", code)
	}
	if errBody["error"] == "" {
		t.Error("missing error message")
	}
}

func TestRecalibrationEndpoints(t *testing.T) {
	f := newFixture(t)
	p := f.sess.Pipeline()
	p.SetReference(landmarktest.NeutralFace(), landmark.Pose{})

	if code := f.do(t, http.MethodPost, "/api/sessions/s1/reset", nil); code != http.StatusAccepted {
		t.Errorf("reset status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/sessions/s1/recalibrate", nil); code != http.StatusAccepted {
		t.Errorf("recalibrate status = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/api/sessions/missing/recalibrate", nil); code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want 404", code)
	}

	// Recalibration applies at the next processed sample and restarts capture.
	res, err := p.Process(landmark.Sample{Detected: true, Frame: landmarktest.NeutralFace()})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Status != pipeline.StatusCalibrating {
		t.Errorf("status after recalibrate = %s, want calibrating", res.Status)
	}
}

func TestProfiles(t *testing.T) {
	f := newFixture(t)
	var profiles []emotions.Profile
	if code := f.do(t, http.MethodGet, "/api/profiles", &profiles); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(profiles) != int(model.NumEmotions) {
		t.Errorf("got %d profiles, want %d", len(profiles), model.NumEmotions)
	}
}

func TestAnalysis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if code := f.do(t, http.MethodGet, "/api/analysis/frame/0", nil); code != http.StatusConflict {
		t.Errorf("seek before load = %d, want 409", code)
	}
	if code := f.do(t, http.MethodPost, "/api/analysis/joy", nil); code != http.StatusNotFound {
		t.Errorf("load with no recordings = %d, want 404", code)
	}
	if code := f.do(t, http.MethodPost, "/api/analysis/boredom", nil); code != http.StatusBadRequest {
		t.Errorf("unknown label = %d, want 400", code)
	}

	for _, r := range []*recording.Recording{smileRecording("a", 12), smileRecording("b", 8)} {
		if _, err := f.store.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	var info AnalysisInfo
	if code := f.do(t, http.MethodPost, "/api/analysis/joy", &info); code != http.StatusCreated {
		t.Fatalf("load status = %d", code)
	}
	if info.Label != model.Joy || info.Recordings != 2 || info.Frames != 12 {
		t.Errorf("info = %+v", info)
	}

	var frame struct {
		Frame  int                 `json:"frame"`
		Tracks []replay.TrackFrame `json:"tracks"`
	}
	if code := f.do(t, http.MethodGet, "/api/analysis/frame/10", &frame); code != http.StatusOK {
		t.Fatalf("seek status = %d", code)
	}
	if frame.Frame != 10 || len(frame.Tracks) != 2 {
		t.Errorf("frame = %+v", frame)
	}

	if code := f.do(t, http.MethodGet, "/api/analysis/frame/12", nil); code != http.StatusNotFound {
		t.Errorf("seek past end = %d, want 404", code)
	}
	if code := f.do(t, http.MethodGet, "/api/analysis/frame/x", nil); code != http.StatusBadRequest {
		t.Errorf("bad frame = %d, want 400", code)
	}

	var sum replay.Summary
	if code := f.do(t, http.MethodGet, "/api/analysis/summary", &sum); code != http.StatusOK {
		t.Fatalf("summary status = %d", code)
	}
	if sum.Label != model.Joy || len(sum.Tracks) != 2 {
		t.Errorf("summary = %+v", sum)
	}

	var st Status
	if code := f.do(t, http.MethodGet, "/api/status", &st); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if st.Sessions != 1 || st.Analysis == nil || st.Analysis.Recordings != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestResultsRequiresUpgrade(t *testing.T) {
	f := newFixture(t)
	if code := f.do(t, http.MethodGet, "/ws/results", nil); code != http.StatusUpgradeRequired {
		t.Errorf("plain GET /ws/results = %d, want 426", code)
	}
}
