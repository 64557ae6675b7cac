package helpers

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"sensor-fusion-go/internal/models"
)

// MatToFrame copies a decoded OpenCV image into a detached BGR24 frame.
// An empty mat yields a nil frame.
func MatToFrame(mat gocv.Mat) (*models.Frame, error) {
	if mat.Empty() {
		return nil, nil
	}

	src := mat
	if mat.Channels() != 3 {
		bgr := gocv.NewMat()
		defer bgr.Close()

		switch mat.Channels() {
		case 1:
			gocv.CvtColor(mat, &bgr, gocv.ColorGrayToBGR)
		case 4:
			gocv.CvtColor(mat, &bgr, gocv.ColorBGRAToBGR)
		default:
			return nil, fmt.Errorf("unsupported channel count %d", mat.Channels())
		}
		src = bgr
	}

	return &models.Frame{
		Data:      src.ToBytes(),
		Width:     src.Cols(),
		Height:    src.Rows(),
		Format:    models.FormatBGR24,
		Timestamp: time.Now(),
	}, nil
}

// FrameToMat builds a Mat over a copy of the frame pixels. The caller must Close it.
func FrameToMat(frame *models.Frame) (gocv.Mat, error) {
	if frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("empty frame")
	}

	expected := frame.Width * frame.Height * 3
	if len(frame.Data) != expected {
		return gocv.NewMat(), fmt.Errorf("frame size mismatch: got %d bytes, expected %d for %dx%d BGR24",
			len(frame.Data), expected, frame.Width, frame.Height)
	}

	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create Mat from BGR data: %w", err)
	}
	return mat, nil
}
