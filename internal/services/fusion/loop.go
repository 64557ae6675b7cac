package fusion

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/rs/zerolog"

	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/queue"
)

// ErrNullFrame means the camera reported a read but delivered no pixels
var ErrNullFrame = errors.New("fusion: unable to read the input frame")

// Display renders composited frames and reports key presses
type Display interface {
	Show(frame *models.Frame, overlay []models.OverlayText) error
	// WaitKey waits up to delay for a key press and returns its code, or -1
	WaitKey(delay time.Duration) int
	Close() error
}

// Channel binds one sensor queue to where and how its value is drawn
type Channel struct {
	Name     string
	Queue    *queue.DropOldest[models.Sample]
	Position image.Point
	Color    color.RGBA
}

// Reading is the value currently displayed for one sensor
type Reading struct {
	Name  string
	Value int64
	Valid bool // false until the sensor delivered its first sample
}

type Options struct {
	Tick         time.Duration // poll/render delay
	QuitKey      int
	OverlayScale float64
}

// Loop drains the latest available value of every queue each tick and renders
// the current frame with all last-known sensor values. It never waits for a
// late sensor or camera.
type Loop struct {
	opts    Options
	video   *queue.DropOldest[models.Sample]
	sensors []Channel
	display Display
	log     zerolog.Logger

	frame    *models.Frame
	readings []Reading
	rendered int64
}

// DefaultChannels lays the three sensors out one per line: black, blue, red
func DefaultChannels(queues [3]*queue.DropOldest[models.Sample]) []Channel {
	return []Channel{
		{Name: "Sensor1", Queue: queues[0], Position: image.Pt(30, 30), Color: color.RGBA{R: 0, G: 0, B: 0, A: 255}},
		{Name: "Sensor2", Queue: queues[1], Position: image.Pt(30, 60), Color: color.RGBA{R: 0, G: 0, B: 255, A: 255}},
		{Name: "Sensor3", Queue: queues[2], Position: image.Pt(30, 90), Color: color.RGBA{R: 255, G: 0, B: 0, A: 255}},
	}
}

func NewLoop(opts Options, video *queue.DropOldest[models.Sample], sensors []Channel, display Display, log zerolog.Logger) *Loop {
	if opts.QuitKey == 0 {
		opts.QuitKey = 'q'
	}
	if opts.OverlayScale <= 0 {
		opts.OverlayScale = 1.2
	}

	readings := make([]Reading, len(sensors))
	for i, ch := range sensors {
		readings[i] = Reading{Name: ch.Name}
	}

	return &Loop{
		opts:     opts,
		video:    video,
		sensors:  sensors,
		display:  display,
		log:      log,
		readings: readings,
	}
}

// Run ticks until the quit key is pressed, ctx ends, or the camera fails.
// If ctx was cancelled with a cause other than context.Canceled, that cause is
// returned so a dead camera producer surfaces as a fatal error.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Dur("tick", l.opts.Tick).Int("sensors", len(l.sensors)).Msg("Fusion loop running")

	for {
		if ctx.Err() != nil {
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				l.log.Error().Err(cause).Msg("Fusion loop aborted")
				return cause
			}
			return nil
		}

		if key := l.display.WaitKey(l.opts.Tick); key >= 0 && key&0xFF == l.opts.QuitKey {
			l.log.Info().Int64("rendered", l.rendered).Msg("Quit key pressed")
			return nil
		}

		if err := l.Step(); err != nil {
			return err
		}
	}
}

// Step runs one tick: take the newest frame and sensor values if any arrived,
// then render the held frame with the current readings.
func (l *Loop) Step() error {
	if sample, ok := l.video.Latest(); ok {
		if sample.Frame.Empty() {
			l.log.Error().Err(ErrNullFrame).Bool("read_ok", sample.OK).Msg("Unable to read the input")
			return ErrNullFrame
		}
		l.frame = sample.Frame
	}

	for i, ch := range l.sensors {
		if sample, ok := ch.Queue.Latest(); ok {
			l.readings[i].Value = sample.Value
			l.readings[i].Valid = true
		}
	}

	if l.frame == nil {
		return nil
	}

	if err := l.display.Show(l.frame.Clone(), l.Overlay()); err != nil {
		l.log.Error().Err(err).Msg("Camera out")
		return nil
	}
	l.rendered++
	return nil
}

// Overlay returns the text lines for the current readings in fixed sensor order
func (l *Loop) Overlay() []models.OverlayText {
	lines := make([]models.OverlayText, len(l.sensors))
	for i, ch := range l.sensors {
		lines[i] = models.OverlayText{
			Text:     formatReading(l.readings[i]),
			Position: ch.Position,
			Color:    ch.Color,
			Scale:    l.opts.OverlayScale,
		}
	}
	return lines
}

// Readings returns a copy of the displayed values
func (l *Loop) Readings() []Reading {
	out := make([]Reading, len(l.readings))
	copy(out, l.readings)
	return out
}

// Rendered returns how many frames were shown
func (l *Loop) Rendered() int64 { return l.rendered }

func formatReading(r Reading) string {
	if !r.Valid {
		return r.Name + ": --"
	}
	return fmt.Sprintf("%s: %d", r.Name, r.Value)
}
