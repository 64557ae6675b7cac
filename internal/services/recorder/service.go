package recorder

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"sensor-fusion-go/internal/helpers"
	"sensor-fusion-go/internal/models"
)

// Writer encodes frames into a single video file at a fixed rate
type Writer struct {
	path       string
	resolution models.Resolution
	vw         *gocv.VideoWriter
	frames     int64
}

// NewWriter opens path with the given fourcc codec (e.g. "mp4v")
func NewWriter(path, codec string, fps float64, resolution models.Resolution) (*Writer, error) {
	vw, err := gocv.VideoWriterFile(path, codec, fps, resolution.Width, resolution.Height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("video writer %s is not opened (codec %s)", path, codec)
	}

	log.Info().
		Str("path", path).
		Str("codec", codec).
		Float64("fps", fps).
		Str("resolution", resolution.String()).
		Msg("Video writer opened")

	return &Writer{path: path, resolution: resolution, vw: vw}, nil
}

// Write appends one frame. Frames must match the writer resolution.
func (w *Writer) Write(frame *models.Frame) error {
	if frame.Resolution() != w.resolution {
		return fmt.Errorf("frame size %s does not match output %s", frame.Resolution(), w.resolution)
	}

	mat, err := helpers.FrameToMat(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	if err := w.vw.Write(mat); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	w.frames++
	return nil
}

// Close finalizes the file
func (w *Writer) Close() error {
	if w.vw == nil {
		return nil
	}
	err := w.vw.Close()
	w.vw = nil

	log.Info().Str("path", w.path).Int64("frames", w.frames).Msg("Video writer closed")
	return err
}
