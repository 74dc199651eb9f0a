package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/detection"
	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/hub"
	"github.com/teslashibe/go-affect/pkg/ingest"
	"github.com/teslashibe/go-affect/pkg/landmark"
	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/pipeline"
	"github.com/teslashibe/go-affect/pkg/recording"
	"github.com/teslashibe/go-affect/pkg/replay"
	"github.com/teslashibe/go-affect/pkg/web"
)

// App is the scoring daemon.
type App struct {
	opts   Options
	logger *slog.Logger

	record bool
	label  model.Emotion

	registry *emotions.Registry
	store    recording.Store
	pcfg     pipeline.Config

	results   *hub.Hub
	ingest    *ingest.Hub
	publisher *pipeline.Publisher
	scheduler *pipeline.Scheduler
	web       *web.Server

	closersMu sync.Mutex
	closers   []io.Closer

	ready chan struct{}
}

// New validates opts and creates the daemon. Environment overrides must
// already be applied to opts.Config.
func New(opts Options) (*App, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		opts:   opts,
		logger: log.With("component", "daemon"),
		ready:  make(chan struct{}),
	}
	if opts.RecordLabel != "" {
		a.label, _ = model.ParseEmotion(opts.RecordLabel)
		a.record = true
	}
	return a, nil
}

// Init loads profiles, opens the recording store and builds the hubs.
// Call this after New() and before Run().
func (a *App) Init(ctx context.Context) error {
	reg, err := emotions.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("built-in profiles: %w", err)
	}
	if dir := a.opts.Config.ProfilesDir; dir != "" {
		if err := reg.LoadCustomDir(dir); err != nil {
			return fmt.Errorf("custom profiles: %w", err)
		}
	}
	a.registry = reg
	a.logger.Info("profiles loaded", "count", reg.Count())

	a.pcfg, err = a.opts.Config.PipelineConfig(a.opts.Diagnostics)
	if err != nil {
		return err
	}

	a.store, err = a.opts.Config.Store.Open(ctx)
	if err != nil {
		return err
	}

	a.results = hub.New("results")
	a.ingest = ingest.NewHub(ingest.DefaultConfig())
	a.publisher = pipeline.NewPublisher(a.opts.Config.Pipeline.RenderHz, a.results.Publish)
	return nil
}

// Run starts every component and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.scheduler = pipeline.NewScheduler(ctx, pipeline.DefaultSchedulerConfig())
	a.scheduler.OnExit(a.sessionExited)

	go a.results.Run(ctx)
	go a.publisher.Run(ctx)
	a.ingest.OnConnect(a.startTracker)

	if err := a.startLocal(ctx); err != nil {
		return err
	}

	a.web = web.NewServer(web.Config{
		Addr:      a.opts.Config.Addr,
		Scheduler: a.scheduler,
		Registry:  a.registry,
		Results:   a.results,
		Ingest:    a.ingest,
		Store:     a.store,
		Replay:    replay.Config{Pipeline: a.pcfg},
	})
	a.web.StartAsync()
	close(a.ready)

	<-ctx.Done()
	return nil
}

// Ready is closed once Run has started serving.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Shutdown stops the API, waits for sessions to end so recordings are saved,
// and releases local sources.
func (a *App) Shutdown() {
	if a.web != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.web.Shutdown(ctx); err != nil {
			a.logger.Warn("api shutdown", "error", err)
		}
		cancel()
	}
	if a.scheduler != nil {
		a.scheduler.StopAll()
		a.scheduler.Wait()
	}

	a.closersMu.Lock()
	defer a.closersMu.Unlock()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
	a.logger.Info("daemon stopped")
}

// newSession builds a session for subject without starting it.
func (a *App) newSession(subject string, src landmark.Source, record bool) (*pipeline.Session, error) {
	p, err := pipeline.New(subject, a.registry, a.pcfg)
	if err != nil {
		return nil, err
	}
	opts := []pipeline.SessionOption{pipeline.WithSink(a.publisher.Sink())}
	if record && a.record {
		rec := recording.NewRecorder(a.store, subject, a.label, a.opts.Config.Pipeline.TickHz)
		opts = append(opts, pipeline.WithRecorder(rec))
	}
	return pipeline.NewSession(p, src, opts...), nil
}

// StartSession scores src as subject.
func (a *App) StartSession(subject string, src landmark.Source) (*pipeline.Session, error) {
	sess, err := a.newSession(subject, src, true)
	if err != nil {
		return nil, err
	}
	if err := a.scheduler.Start(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (a *App) startTracker(subject string, src *ingest.Source) (ingest.Binding, error) {
	sess, err := a.StartSession(subject, src)
	if err != nil {
		return ingest.Binding{}, err
	}
	return ingest.Binding{SessionID: sess.ID, Control: sess.Pipeline()}, nil
}

// sessionExited drops state for finished sessions. Failed sessions stay
// listed so operators can see why.
func (a *App) sessionExited(sess *pipeline.Session) {
	a.publisher.Forget(sess.ID)
	if sess.Info().State == pipeline.StateStopped {
		a.scheduler.Remove(sess.ID)
	}
}

func (a *App) addCloser(c io.Closer) {
	a.closersMu.Lock()
	a.closers = append(a.closers, c)
	a.closersMu.Unlock()
}

// startLocal starts the camera, watched directory and replay sessions that
// were asked for.
func (a *App) startLocal(ctx context.Context) error {
	var errs []error
	if a.opts.Camera != "" {
		errs = append(errs, a.startCamera())
	}
	if a.opts.WatchDir != "" {
		errs = append(errs, a.startWatch())
	}
	for _, key := range a.opts.Replay {
		errs = append(errs, a.startReplay(ctx, key))
	}
	return errors.Join(errs...)
}

func (a *App) detectionConfig() detection.Config {
	cfg := detection.DefaultConfig()
	if a.opts.YuNetModel != "" {
		cfg.ModelPath = a.opts.YuNetModel
	}
	if dir := a.opts.CascadeDir; dir != "" {
		cfg.FaceFinder = filepath.Join(dir, "facefinder")
		cfg.Puploc = filepath.Join(dir, "puploc")
		cfg.FlpDir = filepath.Join(dir, "lps")
	}
	return cfg
}

func (a *App) startCamera() error {
	loc, err := detection.NewYuNet(a.detectionConfig())
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	a.addCloser(loc)
	src, err := detection.OpenCamera(a.opts.Camera, loc)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if _, err := a.StartSession(a.opts.CameraSubject, src); err != nil {
		src.Close()
		return fmt.Errorf("camera: %w", err)
	}
	a.logger.Info("camera session started", "device", a.opts.Camera, "subject", a.opts.CameraSubject)
	return nil
}

func (a *App) startWatch() error {
	loc, err := detection.NewPigo(a.detectionConfig(), detection.DefaultFlpMapping())
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	a.addCloser(loc)
	src, err := detection.OpenDir(a.opts.WatchDir, loc, detection.DirOptions{Watch: true})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if _, err := a.StartSession(a.opts.WatchSubject, src); err != nil {
		src.Close()
		return fmt.Errorf("watch: %w", err)
	}
	a.logger.Info("watching directory", "dir", a.opts.WatchDir, "subject", a.opts.WatchSubject)
	return nil
}

// startReplay plays a stored recording back as a live session at the
// configured tick rate.
func (a *App) startReplay(ctx context.Context, key string) error {
	rec, err := a.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("replay %s: %w", key, err)
	}
	src := recording.NewSource(rec, a.opts.Config.Pipeline.TickHz)
	subject := rec.Subject
	if subject == "" {
		subject = strings.TrimSuffix(filepath.Base(key), filepath.Ext(key))
	}

	// Replays are not recorded again.
	sess, err := a.newSession(subject, src, false)
	if err != nil {
		return fmt.Errorf("replay %s: %w", key, err)
	}
	if !rec.Reference.Empty() {
		sess.Pipeline().SetReference(rec.Reference, rec.ReferencePose)
	}
	if err := a.scheduler.Start(sess); err != nil {
		return fmt.Errorf("replay %s: %w", key, err)
	}
	a.logger.Info("replay session started", "key", key, "subject", subject, "frames", rec.Len())
	return nil
}
