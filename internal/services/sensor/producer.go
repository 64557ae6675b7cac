package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/queue"
)

// Producer repeatedly acquires from one source and pushes into that source's
// dedicated queue. It never owns the queue; the consumer reads it concurrently.
type Producer struct {
	source  Source
	out     *queue.DropOldest[models.Sample]
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewProducer binds source to out. interval is the idle time between samples;
// zero means acquire again immediately.
func NewProducer(source Source, out *queue.DropOldest[models.Sample], interval time.Duration, log zerolog.Logger) *Producer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Producer{
		source:  source,
		out:     out,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Run loops until ctx is cancelled or the source fails. A failed source ends
// only this producer; the consumer keeps showing the last value it received.
func (p *Producer) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("Producer panic recovered")
			err = fmt.Errorf("%w: panic: %v", ErrSourceAcquisition, r)
		}
	}()

	p.log.Debug().Msg("Producer started")

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.stopped(ctx, err)
		}

		sample, err := p.source.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return p.stopped(ctx, ctx.Err())
			}
			if errors.Is(err, io.EOF) {
				p.log.Info().Msg("Source exhausted, producer stopping")
				return nil
			}
			p.log.Error().Err(err).Msg("Source acquisition failed, producer terminating")
			return fmt.Errorf("%w: %s: %w", ErrSourceAcquisition, p.source.Name(), err)
		}

		if evicted := p.out.Push(sample); evicted {
			p.log.Trace().Uint64("dropped_total", p.out.Dropped()).Msg("Queue full, dropped oldest sample")
		}
	}
}

func (p *Producer) stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		p.log.Debug().Msg("Producer stopping")
		return nil
	}
	return err
}
