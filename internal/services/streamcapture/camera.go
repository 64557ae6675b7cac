package streamcapture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"sensor-fusion-go/internal/helpers"
	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/services/sensor"
)

// Camera is a sensor.Source over a local capture device. Each sample carries
// the read flag and the decoded frame, which is nil when the device gave no
// image; the fusion loop decides whether that is fatal.
type Camera struct {
	name    string
	mu      sync.Mutex
	capture *gocv.VideoCapture
	img     gocv.Mat
	reads   int64
}

// OpenCamera opens device index at the requested resolution with a one-frame
// driver buffer so reads return the freshest image
func OpenCamera(index int, resolution models.Resolution) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("index of camera is wrong: %d", index)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(resolution.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(resolution.Height))
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	log.Info().
		Int("camera_index", index).
		Float64("actual_fps", capture.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", capture.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", capture.Get(gocv.VideoCaptureFrameHeight)).
		Msg("Camera opened")

	return &Camera{
		name:    fmt.Sprintf("camera%d", index),
		capture: capture,
		img:     gocv.NewMat(),
	}, nil
}

func (c *Camera) Name() string { return c.name }

// Acquire reads one frame. It only errors when the device has been closed.
func (c *Camera) Acquire(ctx context.Context) (models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return models.Sample{}, fmt.Errorf("%w: camera %s is closed", sensor.ErrSourceAcquisition, c.name)
	}

	ok := c.capture.Read(&c.img)
	c.reads++

	sample := models.Sample{Sensor: c.name, Value: c.reads, OK: ok, Timestamp: time.Now()}
	if ok {
		frame, err := helpers.MatToFrame(c.img)
		if err != nil {
			return models.Sample{}, fmt.Errorf("%w: %w", sensor.ErrSourceAcquisition, err)
		}
		sample.Frame = frame
	}
	return sample, nil
}

// Close releases the device. Safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	c.img.Close()
	return err
}
