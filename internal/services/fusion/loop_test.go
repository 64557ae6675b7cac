package fusion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/queue"
	"sensor-fusion-go/internal/services/sensor"
)

type fakeDisplay struct {
	mu      sync.Mutex
	shows   [][]models.OverlayText
	frames  []*models.Frame
	waits   int
	quitAt  int // WaitKey returns 'q' on this call (1-based); 0 never
	showErr error
}

func (d *fakeDisplay) Show(frame *models.Frame, overlay []models.OverlayText) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.showErr != nil {
		return d.showErr
	}
	d.frames = append(d.frames, frame)
	d.shows = append(d.shows, overlay)
	return nil
}

func (d *fakeDisplay) WaitKey(delay time.Duration) int {
	time.Sleep(delay)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waits++
	if d.quitAt > 0 && d.waits >= d.quitAt {
		return 'q'
	}
	return -1
}

func (d *fakeDisplay) Close() error { return nil }

func (d *fakeDisplay) texts() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]string, len(d.shows))
	for i, lines := range d.shows {
		for _, l := range lines {
			out[i] = append(out[i], l.Text)
		}
	}
	return out
}

func newQueues() (*queue.DropOldest[models.Sample], [3]*queue.DropOldest[models.Sample]) {
	return queue.NewDropOldest[models.Sample](2), [3]*queue.DropOldest[models.Sample]{
		queue.NewDropOldest[models.Sample](2),
		queue.NewDropOldest[models.Sample](2),
		queue.NewDropOldest[models.Sample](2),
	}
}

func testFrame() *models.Frame {
	return &models.Frame{Data: make([]byte, 4*4*3), Width: 4, Height: 4, Format: models.FormatBGR24}
}

func TestStepRendersNothingBeforeFirstFrame(t *testing.T) {
	video, sensors := newQueues()
	d := &fakeDisplay{}
	l := NewLoop(Options{}, video, DefaultChannels(sensors), d, zerolog.Nop())

	sensors[0].Push(models.Sample{Value: 5})
	require.NoError(t, l.Step())
	assert.Empty(t, d.texts())
	assert.Equal(t, int64(5), l.Readings()[0].Value, "sensor values are still taken")
}

func TestStepCarriesForwardLastKnownValues(t *testing.T) {
	video, sensors := newQueues()
	d := &fakeDisplay{}
	l := NewLoop(Options{}, video, DefaultChannels(sensors), d, zerolog.Nop())

	video.Push(models.Sample{Frame: testFrame(), OK: true})
	sensors[0].Push(models.Sample{Value: 1})
	sensors[1].Push(models.Sample{Value: 10})
	sensors[1].Push(models.Sample{Value: 11})
	require.NoError(t, l.Step())

	// Only sensor3 reports this tick
	sensors[2].Push(models.Sample{Value: 100})
	require.NoError(t, l.Step())

	// Nothing new at all
	require.NoError(t, l.Step())

	assert.Equal(t, [][]string{
		{"Sensor1: 1", "Sensor2: 11", "Sensor3: --"},
		{"Sensor1: 1", "Sensor2: 11", "Sensor3: 100"},
		{"Sensor1: 1", "Sensor2: 11", "Sensor3: 100"},
	}, d.texts())
	assert.Equal(t, int64(3), l.Rendered())
}

func TestStepDrawsOnACopy(t *testing.T) {
	video, sensors := newQueues()
	d := &fakeDisplay{}
	l := NewLoop(Options{}, video, DefaultChannels(sensors), d, zerolog.Nop())

	f := testFrame()
	video.Push(models.Sample{Frame: f, OK: true})
	require.NoError(t, l.Step())

	require.Len(t, d.frames, 1)
	d.frames[0].Data[0] = 255
	assert.Equal(t, byte(0), f.Data[0], "display must receive a clone")
}

func TestOverlayLayoutIsFixed(t *testing.T) {
	video, sensors := newQueues()
	l := NewLoop(Options{}, video, DefaultChannels(sensors), &fakeDisplay{}, zerolog.Nop())

	lines := l.Overlay()
	require.Len(t, lines, 3)
	assert.Equal(t, 30, lines[0].Position.Y)
	assert.Equal(t, 60, lines[1].Position.Y)
	assert.Equal(t, 90, lines[2].Position.Y)
	assert.Equal(t, uint8(255), lines[1].Color.B)
	assert.Equal(t, uint8(255), lines[2].Color.R)
	assert.Equal(t, 1.2, lines[0].Scale)
}

func TestNullFrameIsFatal(t *testing.T) {
	video, sensors := newQueues()
	d := &fakeDisplay{}
	l := NewLoop(Options{Tick: time.Millisecond}, video, DefaultChannels(sensors), d, zerolog.Nop())

	// read reported success but produced no image
	video.Push(models.Sample{Frame: nil, OK: true})

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrNullFrame)
	assert.Empty(t, d.texts())
}

func TestShowErrorIsNotFatal(t *testing.T) {
	video, sensors := newQueues()
	d := &fakeDisplay{showErr: errors.New("window closed")}
	l := NewLoop(Options{}, video, DefaultChannels(sensors), d, zerolog.Nop())

	video.Push(models.Sample{Frame: testFrame(), OK: true})
	assert.NoError(t, l.Step())
	assert.Equal(t, int64(0), l.Rendered())
}

func TestRunStopsOnQuitKey(t *testing.T) {
	video, sensors := newQueues()
	d := &fakeDisplay{quitAt: 3}
	l := NewLoop(Options{Tick: time.Millisecond}, video, DefaultChannels(sensors), d, zerolog.Nop())

	video.Push(models.Sample{Frame: testFrame(), OK: true})
	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, 3, d.waits)
	assert.Equal(t, int64(2), l.Rendered())
}

func TestRunReturnsCancelCause(t *testing.T) {
	video, sensors := newQueues()
	l := NewLoop(Options{Tick: time.Millisecond}, video, DefaultChannels(sensors), &fakeDisplay{}, zerolog.Nop())

	cameraDown := errors.New("camera producer terminated")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cameraDown)
	assert.ErrorIs(t, l.Run(ctx), cameraDown)

	ctx, plainCancel := context.WithCancel(context.Background())
	plainCancel()
	assert.NoError(t, l.Run(ctx))
}

// A consumer ticking faster than the slow sensor keeps showing the slow
// sensor's previous value until a new one arrives.
func TestSlowSensorValueCarriedAcrossTicks(t *testing.T) {
	video, sensors := newQueues()
	d := &fakeDisplay{}
	l := NewLoop(Options{Tick: time.Millisecond}, video, DefaultChannels(sensors), d, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fast := sensor.NewProducer(sensor.NewCounter("fast", time.Millisecond), sensors[0], 0, zerolog.Nop())
	slow := sensor.NewProducer(sensor.NewCounter("slow", 150*time.Millisecond), sensors[1], 0, zerolog.Nop())
	go fast.Run(ctx)
	go slow.Run(ctx)

	video.Push(models.Sample{Frame: testFrame(), OK: true})

	runCtx, stop := context.WithTimeout(ctx, 400*time.Millisecond)
	defer stop()
	require.NoError(t, l.Run(runCtx))

	texts := d.texts()
	require.Greater(t, len(texts), 10)

	// Count how many consecutive renders showed the same slow value
	longestRun, current := 1, 1
	for i := 1; i < len(texts); i++ {
		if texts[i][1] == texts[i-1][1] {
			current++
			if current > longestRun {
				longestRun = current
			}
		} else {
			current = 1
		}
	}
	assert.Greater(t, longestRun, 3, "slow sensor value should persist across several ticks")

	// Once a value appears it never reverts to the placeholder
	seen := false
	for _, lines := range texts {
		if lines[1] != "Sensor2: --" {
			seen = true
		} else {
			assert.False(t, seen, "displayed value reverted to placeholder")
		}
	}
	assert.True(t, seen)
}
