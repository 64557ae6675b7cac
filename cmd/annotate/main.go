package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sensor-fusion-go/internal/config"
	"sensor-fusion-go/internal/logging"
	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/services/detection"
	"sensor-fusion-go/internal/services/frameprocessing"
	"sensor-fusion-go/internal/services/recorder"
	"sensor-fusion-go/internal/services/streamcapture"
)

func main() {
	os.Exit(run())
}

func run() int {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration, then let command line flags override it
	cfg := config.Load()

	var (
		path    = flag.String("path", cfg.InputPath, "Path to input video")
		threads = flag.Int("threads", cfg.Threads, "Number of worker threads")
		name    = flag.String("name", cfg.OutputPath, "Output video file")
	)
	flag.Parse()

	cfg.InputPath = *path
	cfg.Threads = *threads
	cfg.OutputPath = *name

	errorLog, err := logging.Setup(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to set up logging")
		return 1
	}
	defer errorLog.Close()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 1
	}
	if cfg.InputPath == "" {
		log.Error().Msg("--path is required")
		return 1
	}

	runID := logging.NewRunID()
	svcLog := logging.NewServiceLogger(runID, "annotate")
	svcLog.Info().
		Str("input", cfg.InputPath).
		Str("output", cfg.OutputPath).
		Int("threads", cfg.Threads).
		Str("model", cfg.PoseModelPath).
		Msg("Starting parallel pose annotation")

	src, err := streamcapture.OpenFile(cfg.InputPath)
	if err != nil {
		svcLog.Error().Err(err).Msg("Failed to open input video")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Each worker loads its own model so no inference state is shared
	newModel := func(worker int) (frameprocessing.Model, error) {
		m, err := detection.NewPoseModel(cfg.PoseModelPath, cfg.PoseInputSize, cfg.PoseScoreThreshold, cfg.PoseNMSThreshold)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	newWriter := func(res models.Resolution) (frameprocessing.FrameWriter, error) {
		w, err := recorder.NewWriter(cfg.OutputPath, cfg.OutputCodec, cfg.OutputFPS, res)
		if err != nil {
			return nil, err
		}
		return w, nil
	}

	processor := frameprocessing.NewProcessor(frameprocessing.Options{
		Workers:        cfg.Threads,
		PopTimeout:     cfg.WorkerPopTimeout,
		CollectTimeout: cfg.CollectTimeout,
		GapPolicy:      cfg.GapPolicy,
		RunID:          runID,
	}, newModel)

	report, err := processor.Run(ctx, src, newWriter)
	if err != nil {
		svcLog.Error().Err(err).Msg("Video processing failed")
		return 1
	}

	svcLog.Info().
		Str("output", cfg.OutputPath).
		Int("frames_written", report.FramesWritten).
		Int("gaps", len(report.Gaps)).
		Dur("elapsed", report.Elapsed).
		Msg("Output video written")
	return 0
}
