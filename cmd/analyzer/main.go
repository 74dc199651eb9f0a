// analyzer re-scores every stored recording of one emotion label and prints
// per-recording peaks, means and how often the label came out on top.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/teslashibe/go-affect/internal/config"
	"github.com/teslashibe/go-affect/internal/httpc"
	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/emotions"
	"github.com/teslashibe/go-affect/pkg/model"
	"github.com/teslashibe/go-affect/pkg/replay"
)

const (
	bold  = "\033[1m"
	green = "\033[32m"
	reset = "\033[0m"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	storeDir := flag.String("store", "", "Recording directory (overrides config)")
	labelName := flag.String("label", "", "Emotion label to analyse (required)")
	frame := flag.Int("frame", -1, "Also print every track at this frame index")
	workers := flag.Int("workers", 0, "Tracks evaluated concurrently (0 = all)")
	logLevel := flag.String("log-level", "warn", "Log level")
	remote := flag.String("remote", "", "Ask a running affectd (host:port) instead of reading the store")
	flag.Parse()

	log.Init(*logLevel)

	var err error
	if *remote != "" {
		err = runRemote(*remote, *labelName)
	} else {
		err = run(*configPath, *storeDir, *labelName, *frame, *workers)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyzer: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, storeDir, labelName string, frame, workers int) error {
	label, err := model.ParseEmotion(labelName)
	if err != nil {
		return fmt.Errorf("-label: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.LoadEnvConfig()
	if storeDir != "" {
		cfg.Store.Dir = storeDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	pcfg, err := cfg.PipelineConfig(false)
	if err != nil {
		return err
	}

	reg, err := emotions.DefaultRegistry()
	if err != nil {
		return err
	}
	if cfg.ProfilesDir != "" {
		if err := reg.LoadCustomDir(cfg.ProfilesDir); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := cfg.Store.Open(ctx)
	if err != nil {
		return err
	}
	a, err := replay.Load(ctx, store, label, reg, replay.Config{Pipeline: pcfg, Workers: workers})
	if errors.Is(err, replay.ErrNoRecordings) {
		fmt.Printf("no %s recordings found\n", label)
		return nil
	}
	if err != nil {
		return err
	}

	sum, err := a.Summarize(ctx)
	if err != nil {
		return err
	}
	out := newPrinter(os.Stdout)
	out.summary(sum)

	if frame >= 0 {
		tracks, err := a.Seek(ctx, frame)
		if err != nil {
			return err
		}
		out.frame(frame, tracks)
	}
	return nil
}

// runRemote prints the summary computed by a running daemon.
func runRemote(addr, labelName string) error {
	label, err := model.ParseEmotion(labelName)
	if err != nil {
		return fmt.Errorf("-label: %w", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sum, err := httpc.New("http://"+addr, 5*time.Minute).Summary(ctx, label)
	var apiErr *httpc.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 404 {
		fmt.Printf("no %s recordings found\n", label)
		return nil
	}
	if err != nil {
		return err
	}
	newPrinter(os.Stdout).summary(sum)
	return nil
}

type printer struct {
	w     io.Writer
	color bool
	width int
}

func newPrinter(f *os.File) *printer {
	p := &printer{w: f, width: 80}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		p.color = true
		if w, _, err := term.GetSize(fd); err == nil && w > 40 {
			p.width = w
		}
	}
	return p
}

func (p *printer) style(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + reset
}

// bar renders v in [0, 100] as a proportional bar.
func (p *printer) bar(v float64) string {
	n := int(v / 100 * float64(p.width/4))
	n = max(0, min(n, p.width/4))
	return strings.Repeat("#", n)
}

func (p *printer) summary(sum replay.Summary) {
	fmt.Fprintln(p.w, p.style(bold, fmt.Sprintf("%s: %d recordings, %d scored frames, hit rate %.0f%%",
		sum.Label, len(sum.Tracks), sum.Scored, sum.HitRate*100)))
	fmt.Fprintln(p.w)

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDING\tSUBJECT\tFRAMES\tSCORED\tPEAK\tMEAN\tHITS\t")
	for _, t := range sum.Tracks {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t%.1f\t%.0f%%\t%s\n",
			t.RecordingID, t.Subject, t.Frames, t.Scored,
			t.Peak[sum.Label], t.Mean[sum.Label], t.HitRate*100, p.style(green, p.bar(t.Mean[sum.Label])))
	}
	tw.Flush()

	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.style(bold, "mean score per emotion"))
	tw = tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, e := range model.Emotions() {
		var total float64
		for _, t := range sum.Tracks {
			total += t.Mean[e]
		}
		mean := 0.0
		if len(sum.Tracks) > 0 {
			mean = total / float64(len(sum.Tracks))
		}
		name := e.String()
		if e == sum.Label {
			name = p.style(green, name)
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%s\n", name, mean, p.bar(mean))
	}
	tw.Flush()
}

func (p *printer) frame(n int, tracks []replay.TrackFrame) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, p.style(bold, fmt.Sprintf("frame %d", n)))
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDING\tSTATUS\tTOP\tSCORE\t")
	for _, t := range tracks {
		status := string(t.Result.Status)
		if t.Ended {
			status = "ended"
		}
		top, score, ok := t.Result.Top()
		topName := "-"
		if ok {
			topName = top.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t\n", t.RecordingID, status, topName, score)
	}
	tw.Flush()
}
