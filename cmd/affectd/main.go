// affectd scores facial landmark streams into action units and emotions.
// Trackers stream landmarks over WebSocket; renderers subscribe to results.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-affect/internal/config"
	"github.com/teslashibe/go-affect/internal/log"
	"github.com/teslashibe/go-affect/pkg/daemon"
)

func main() {
	opts := parseFlags()

	log.Setup(log.Options{Level: opts.Config.LogLevel, File: opts.Config.LogFile})

	app, err := daemon.New(opts)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
}

// parseFlags loads the config file and applies command line overrides.
func parseFlags() daemon.Options {
	opts := daemon.DefaultOptions()

	configPath := flag.String("config", "", "YAML config file")
	debug := flag.Bool("debug", false, "Debug logging and per-module diagnostics in results")
	addr := flag.String("addr", "", "Listen address (overrides config and AFFECT_ADDR)")
	storeDir := flag.String("store", "", "Recording directory (overrides config)")
	record := flag.String("record", "", "Record every session under this emotion label")
	camera := flag.String("camera", "", "Capture device id or video file scored with YuNet")
	cameraSubject := flag.String("camera-subject", opts.CameraSubject, "Subject name for the camera session")
	yunet := flag.String("yunet", "", "YuNet ONNX model path")
	watch := flag.String("watch", "", "Directory of face images to score as they arrive")
	watchSubject := flag.String("watch-subject", opts.WatchSubject, "Subject name for the watched directory")
	cascades := flag.String("cascades", "", "Directory with pigo facefinder, puploc and lps cascades")
	replay := flag.String("replay", "", "Comma-separated recording keys to play back as live sessions")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}
	// Environment sits between the file and the flags.
	cfg.LoadEnvConfig()

	if *debug {
		cfg.LogLevel = "debug"
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *storeDir != "" {
		cfg.Store.Dir = *storeDir
	}

	opts.Config = cfg
	opts.Diagnostics = *debug
	opts.RecordLabel = *record
	opts.Camera, opts.CameraSubject, opts.YuNetModel = *camera, *cameraSubject, *yunet
	opts.WatchDir, opts.WatchSubject, opts.CascadeDir = *watch, *watchSubject, *cascades
	if *replay != "" {
		for _, key := range strings.Split(*replay, ",") {
			if key = strings.TrimSpace(key); key != "" {
				opts.Replay = append(opts.Replay, key)
			}
		}
	}
	return opts
}
