package sensor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"sensor-fusion-go/internal/models"
)

// ErrSourceAcquisition wraps any unrecoverable failure to read from a source
var ErrSourceAcquisition = errors.New("sensor: source acquisition failed")

// Source is the one capability the fusion loop needs from a sensor: produce
// the next sample. Implementations return io.EOF when the source is exhausted.
type Source interface {
	Name() string
	Acquire(ctx context.Context) (models.Sample, error)
}

// Counter is a synthetic sensor: each acquisition waits delay and returns the
// next value of a monotonically increasing counter starting at 1.
type Counter struct {
	name  string
	delay time.Duration
	value atomic.Int64
}

// NewCounter creates a synthetic counter sensor
func NewCounter(name string, delay time.Duration) *Counter {
	return &Counter{name: name, delay: delay}
}

func (c *Counter) Name() string { return c.name }

// Acquire blocks for the sensor delay, then increments the counter
func (c *Counter) Acquire(ctx context.Context) (models.Sample, error) {
	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return models.Sample{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return models.Sample{}, err
	}

	return models.Sample{
		Sensor:    c.name,
		Value:     c.value.Add(1),
		OK:        true,
		Timestamp: time.Now(),
	}, nil
}
