package frameprocessing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sensor-fusion-go/internal/logging"
	"sensor-fusion-go/internal/models"
	"sensor-fusion-go/internal/queue"
)

var (
	// ErrItemProcessing marks a single frame the model could not annotate.
	// The frame is dropped and the batch continues.
	ErrItemProcessing = errors.New("frameprocessing: frame processing failed")
	// ErrNoFrames is returned when the source produced nothing to encode
	ErrNoFrames = errors.New("frameprocessing: no frames read from source")
)

// Gap policies for slots no worker filled
const (
	GapSkip   = "skip"   // omit the index from the output
	GapRepeat = "repeat" // write the previously written frame in its place
)

// FrameSource yields frames in stream order. io.EOF, or a nil frame with a
// nil error, marks the end of the stream.
type FrameSource interface {
	Read() (*models.Frame, error)
	Close() error
}

// Model annotates one frame. An instance is used by a single worker only.
type Model interface {
	Annotate(frame *models.Frame) (*models.Frame, error)
	Close() error
}

// ModelFactory loads a fresh model for the given worker
type ModelFactory func(worker int) (Model, error)

// FrameWriter encodes frames to the output video
type FrameWriter interface {
	Write(frame *models.Frame) error
	Close() error
}

// WriterFactory opens the output once the source resolution is known
type WriterFactory func(resolution models.Resolution) (FrameWriter, error)

type Options struct {
	Workers        int
	PopTimeout     time.Duration // worker gives up after the work queue stays empty this long
	CollectTimeout time.Duration // collector stops after the output queue stays empty this long
	GapPolicy      string
	RunID          string
}

// Report summarises one run
type Report struct {
	RunID           string
	FramesRead      int
	FramesAnnotated int
	FramesWritten   int
	Gaps            []int
	Resolution      models.Resolution
	Elapsed         time.Duration
}

// Processor splits a video into indexed frames, annotates them on a pool of
// workers and writes them back out in original order.
type Processor struct {
	opts     Options
	newModel ModelFactory
	log      zerolog.Logger
}

func NewProcessor(opts Options, newModel ModelFactory) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	if opts.CollectTimeout <= 0 {
		opts.CollectTimeout = time.Second
	}
	if opts.GapPolicy == "" {
		opts.GapPolicy = GapSkip
	}
	if opts.RunID == "" {
		opts.RunID = logging.NewRunID()
	}

	return &Processor{
		opts:     opts,
		newModel: newModel,
		log:      logging.NewServiceLogger(opts.RunID, "frameprocessing"),
	}
}

// Run processes src end to end and closes it. The writer is opened only after
// the first frame fixes the output resolution.
func (p *Processor) Run(ctx context.Context, src FrameSource, newWriter WriterFactory) (*Report, error) {
	defer func() {
		if err := src.Close(); err != nil {
			p.log.Warn().Err(err).Msg("Failed to release video source")
		}
	}()

	report := &Report{RunID: p.opts.RunID}

	// Phase 1: sequential read
	work := queue.NewUnbounded[models.IndexedFrame]()
	report.FramesRead, report.Resolution = p.read(ctx, src, work)
	p.log.Info().
		Int("frames_read", report.FramesRead).
		Str("resolution", report.Resolution.String()).
		Msg("Video read complete")

	if report.FramesRead == 0 {
		return report, ErrNoFrames
	}

	// Phase 2: parallel annotation, joined before collection starts
	start := time.Now()
	out := queue.NewUnbounded[models.IndexedFrame]()
	report.FramesAnnotated = p.annotateAll(ctx, work, out)
	out.Close()

	// Phase 3: ordered collection
	results := p.collect(ctx, out, report.FramesRead)

	// Phase 4: encode
	writer, err := newWriter(report.Resolution)
	if err != nil {
		return report, fmt.Errorf("failed to open output writer: %w", err)
	}

	written, gaps, err := p.encode(results, writer)
	report.FramesWritten = written
	report.Gaps = gaps
	if closeErr := writer.Close(); closeErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to finalize output: %w", closeErr))
	}
	report.Elapsed = time.Since(start)

	p.log.Info().
		Int("frames_read", report.FramesRead).
		Int("frames_annotated", report.FramesAnnotated).
		Int("frames_written", report.FramesWritten).
		Ints("gaps", report.Gaps).
		Dur("elapsed", report.Elapsed).
		Msg("Video processing finished")

	return report, err
}

// read drains src into work, tagging frames 0,1,2... A read error stops the
// loop; frames read so far are still processed.
func (p *Processor) read(ctx context.Context, src FrameSource, work *queue.Unbounded[models.IndexedFrame]) (int, models.Resolution) {
	defer work.Close()

	var (
		count      int
		resolution models.Resolution
	)
	for ctx.Err() == nil {
		frame, err := src.Read()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Error().Err(err).Int("frames_read", count).Msg("Error in read videofile, processing partial video")
			}
			break
		}
		if frame.Empty() {
			break
		}

		if resolution.IsZero() {
			resolution = frame.Resolution()
		}
		if err := work.Push(models.IndexedFrame{Frame: frame, Index: count}); err != nil {
			p.log.Error().Err(err).Int("frame_index", count).Msg("Failed to enqueue frame")
			break
		}
		p.log.Debug().Int("frame_index", count).Msg("Frame read")
		count++
	}
	return count, resolution
}

// annotateAll runs the worker pool and returns once every worker has exited
func (p *Processor) annotateAll(ctx context.Context, work, out *queue.Unbounded[models.IndexedFrame]) int {
	var (
		wg        sync.WaitGroup
		annotated atomic.Int64
	)

	for id := 0; id < p.opts.Workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id, work, out, &annotated)
		}(id)
	}
	wg.Wait()

	return int(annotated.Load())
}

func (p *Processor) runWorker(ctx context.Context, id int, work, out *queue.Unbounded[models.IndexedFrame], annotated *atomic.Int64) {
	log := logging.WithWorker(p.log, id)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Worker panic recovered")
		}
	}()

	model, err := p.newModel(id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load model, worker exiting")
		return
	}
	defer func() {
		if err := model.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release model")
		}
	}()

	log.Info().Msg("Worker started")
	processed := 0

	for {
		item, err := work.PopTimeout(ctx, p.opts.PopTimeout)
		if err != nil {
			log.Info().Int("processed", processed).Str("reason", err.Error()).Msg("Worker finished")
			return
		}

		result, err := annotate(model, item.Frame)
		if err != nil {
			log.Error().Err(err).Int("frame_index", item.Index).Msg("Error in model processing, dropping frame")
			continue
		}

		if err := out.Push(models.IndexedFrame{Frame: result, Index: item.Index}); err != nil {
			log.Error().Err(err).Int("frame_index", item.Index).Msg("Failed to hand off annotated frame")
			continue
		}
		annotated.Add(1)
		processed++
	}
}

// annotate turns model failures, panics and empty results into ErrItemProcessing
func annotate(model Model, frame *models.Frame) (result *models.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrItemProcessing, r)
		}
	}()

	result, err = model.Annotate(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrItemProcessing, err)
	}
	if result.Empty() {
		return nil, fmt.Errorf("%w: model returned an empty frame", ErrItemProcessing)
	}
	return result, nil
}

// collect moves annotated frames into their slots until the output queue stays
// empty past the collect timeout (or is closed and drained)
func (p *Processor) collect(ctx context.Context, out *queue.Unbounded[models.IndexedFrame], size int) *ResultBuffer {
	results := NewResultBuffer(size)
	for {
		item, err := out.PopTimeout(ctx, p.opts.CollectTimeout)
		if err != nil {
			p.log.Debug().Str("reason", err.Error()).Int("collected", results.Filled()).Msg("Collection complete")
			return results
		}
		if err := results.Put(item.Index, item.Frame); err != nil {
			p.log.Error().Err(err).Int("frame_index", item.Index).Msg("Frame is broken, discarding")
			continue
		}
		p.log.Debug().Int("frame_index", item.Index).Msg("Frame collected")
	}
}

// encode writes slots 0..N-1 in order, applying the gap policy to empty slots
func (p *Processor) encode(results *ResultBuffer, writer FrameWriter) (int, []int, error) {
	var (
		written int
		gaps    []int
		prev    *models.Frame
	)

	for i := 0; i < results.Len(); i++ {
		frame, ok := results.Get(i)
		if !ok {
			gaps = append(gaps, i)
			if p.opts.GapPolicy != GapRepeat || prev == nil {
				p.log.Warn().Int("frame_index", i).Str("gap_policy", GapSkip).Msg("Frame missing, skipped in output")
				continue
			}
			p.log.Warn().Int("frame_index", i).Str("gap_policy", GapRepeat).Msg("Frame missing, repeating previous frame")
			frame = prev
		}

		if err := writer.Write(frame); err != nil {
			return written, gaps, fmt.Errorf("failed to write frame %d: %w", i, err)
		}
		written++
		prev = frame
	}

	return written, gaps, nil
}
