package streamcapture

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"sensor-fusion-go/internal/helpers"
	"sensor-fusion-go/internal/models"
)

// FileReader decodes a video file frame by frame
type FileReader struct {
	path    string
	capture *gocv.VideoCapture
	img     gocv.Mat
	count   int
}

// OpenFile opens path for sequential decoding
func OpenFile(path string) (*FileReader, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video file %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video file %s could not be opened", path)
	}

	log.Info().
		Str("path", path).
		Float64("fps", capture.Get(gocv.VideoCaptureFPS)).
		Float64("frame_count", capture.Get(gocv.VideoCaptureFrameCount)).
		Msg("Video file opened")

	return &FileReader{path: path, capture: capture, img: gocv.NewMat()}, nil
}

// Read returns the next frame, or io.EOF at end of stream
func (r *FileReader) Read() (*models.Frame, error) {
	if r.capture == nil || !r.capture.IsOpened() {
		return nil, io.EOF
	}
	if ok := r.capture.Read(&r.img); !ok || r.img.Empty() {
		return nil, io.EOF
	}

	frame, err := helpers.MatToFrame(r.img)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %d of %s: %w", r.count, r.path, err)
	}
	r.count++
	return frame, nil
}

// Close releases the capture handle. Safe to call more than once.
func (r *FileReader) Close() error {
	if r.capture == nil {
		return nil
	}
	err := r.capture.Close()
	r.capture = nil
	r.img.Close()
	return err
}
