package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sensor-fusion-go/internal/config"
	"sensor-fusion-go/internal/logging"
	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/queue"
	"sensor-fusion-go/internal/services/display"
	"sensor-fusion-go/internal/services/fusion"
	"sensor-fusion-go/internal/services/sensor"
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
		name       = flag.Int("name", cfg.CameraIndex, "Camera index")
		resolution = flag.String("resolution", cfg.Resolution.String(), "Capture resolution, WxH")
		frequency  = flag.Float64("frequency", cfg.Frequency.Seconds(), "Render and camera poll delay in seconds")
	)
	flag.Parse()

	res, err := models.ParseResolution(*resolution)
	if err != nil {
		log.Error().Err(err).Msg("Invalid --resolution")
		return 1
	}
	cfg.CameraIndex = *name
	cfg.Resolution = res
	cfg.Frequency = config.SecondsToDuration(*frequency)

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

	runID := logging.NewRunID()
	svcLog := logging.NewServiceLogger(runID, "fusion")
	svcLog.Info().
		Int("camera", cfg.CameraIndex).
		Str("resolution", cfg.Resolution.String()).
		Dur("frequency", cfg.Frequency).
		Msg("Starting sensor fusion display")

	camera, err := streamcapture.OpenCamera(cfg.CameraIndex, cfg.Resolution)
	if err != nil {
		svcLog.Error().Err(err).Msg("Failed to open camera")
		return 1
	}
	defer camera.Close()

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		svcLog.Info().Msg("Shutdown signal received")
		cancel(nil)
	}()

	// One queue per source; each has exactly one writer and one reader
	video := queue.NewDropOldest[models.Sample](cfg.QueueCapacity)
	var sensorQueues [3]*queue.DropOldest[models.Sample]
	for i := range sensorQueues {
		sensorQueues[i] = queue.NewDropOldest[models.Sample](cfg.QueueCapacity)
	}

	// Producers are background tasks; they stop with ctx and are not joined
	go func() {
		p := sensor.NewProducer(camera, video, cfg.Frequency, logging.WithSensor(svcLog, camera.Name()))
		if err := p.Run(ctx); err != nil {
			cancel(err)
		}
	}()

	for i, q := range sensorQueues {
		counter := sensor.NewCounter(fmt.Sprintf("sensor%d", i+1), cfg.SensorDelays[i])
		p := sensor.NewProducer(counter, q, 0, logging.WithSensor(svcLog, counter.Name()))
		go p.Run(ctx)
	}

	window := display.NewWindow(cfg.WindowName, cfg.OverlayFont)
	defer window.Close()

	loop := fusion.NewLoop(fusion.Options{
		Tick:         cfg.Frequency,
		QuitKey:      'q',
		OverlayScale: cfg.OverlayScale,
	}, video, fusion.DefaultChannels(sensorQueues), window, svcLog)

	if err := loop.Run(ctx); err != nil {
		svcLog.Error().Err(err).Msg("Sensor fusion display stopped on fatal error")
		return 1
	}

	svcLog.Info().Int64("rendered", loop.Rendered()).Msg("Sensor fusion display stopped")
	return 0
}
