package sensor

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/queue"
)

// scriptedSource returns values 1..failAfter, then err
type scriptedSource struct {
	calls     atomic.Int64
	failAfter int64
	err       error
	panicMsg  string
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Acquire(ctx context.Context) (models.Sample, error) {
	n := s.calls.Add(1)
	if s.failAfter > 0 && n > s.failAfter {
		if s.panicMsg != "" {
			panic(s.panicMsg)
		}
		return models.Sample{}, s.err
	}
	return models.Sample{Sensor: "scripted", Value: n, OK: true}, nil
}

func TestCounterIncrements(t *testing.T) {
	c := NewCounter("sensor1", 0)
	for want := int64(1); want <= 3; want++ {
		s, err := c.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, s.Value)
		assert.Equal(t, "sensor1", s.Sensor)
		assert.True(t, s.OK)
	}
}

func TestCounterHonoursDelayAndCancel(t *testing.T) {
	c := NewCounter("slow", 20*time.Millisecond)

	start := time.Now()
	_, err := c.Acquire(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProducerKeepsLatestSamples(t *testing.T) {
	src := &scriptedSource{failAfter: 10, err: io.EOF}
	q := queue.NewDropOldest[models.Sample](2)

	err := NewProducer(src, q, 0, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err, "EOF ends the producer cleanly")

	first, ok := q.TryPop()
	require.True(t, ok)
	second, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, int64(9), first.Value)
	assert.Equal(t, int64(10), second.Value)
	assert.Equal(t, uint64(8), q.Dropped())
}

func TestProducerTerminatesOnAcquisitionError(t *testing.T) {
	boom := errors.New("device unplugged")
	src := &scriptedSource{failAfter: 3, err: boom}
	q := queue.NewDropOldest[models.Sample](2)

	err := NewProducer(src, q, 0, zerolog.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, ErrSourceAcquisition)
	assert.ErrorIs(t, err, boom)

	// The last good value is still available to the consumer
	latest, ok := q.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(3), latest.Value)
}

func TestProducerRecoversPanic(t *testing.T) {
	src := &scriptedSource{failAfter: 1, panicMsg: "driver crashed"}
	q := queue.NewDropOldest[models.Sample](2)

	err := NewProducer(src, q, 0, zerolog.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, ErrSourceAcquisition)
}

func TestProducerStopsOnCancel(t *testing.T) {
	q := queue.NewDropOldest[models.Sample](2)
	p := NewProducer(NewCounter("sensor", time.Millisecond), q, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after cancel")
	}

	latest, ok := q.Latest()
	require.True(t, ok)
	assert.Greater(t, latest.Value, int64(0))
}
