package display

import (
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"sensor-fusion-go/internal/helpers"
	"sensor-fusion-go/internal/models"
)

// Window shows frames in a native OpenCV window. All methods must be called
// from the goroutine that created it.
type Window struct {
	win       *gocv.Window
	font      gocv.HersheyFont
	thickness int
}

// NewWindow opens a window titled name. font is an OpenCV Hershey font id.
func NewWindow(name string, font int) *Window {
	log.Info().Str("window", name).Msg("Display window opened")
	return &Window{
		win:       gocv.NewWindow(name),
		font:      gocv.HersheyFont(font),
		thickness: 1,
	}
}

// Show draws the overlay lines onto frame and displays it. The frame is
// expected to be a copy the caller no longer needs.
func (w *Window) Show(frame *models.Frame, overlay []models.OverlayText) error {
	mat, err := helpers.FrameToMat(frame)
	if err != nil {
		return err
	}
	defer mat.Close()

	for _, line := range overlay {
		gocv.PutText(&mat, line.Text, line.Position, w.font, line.Scale, line.Color, w.thickness)
	}

	w.win.IMShow(mat)
	return nil
}

// WaitKey pumps the window event loop for delay and returns the key pressed, or -1
func (w *Window) WaitKey(delay time.Duration) int {
	ms := int(delay / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return w.win.WaitKey(ms)
}

func (w *Window) Close() error {
	return w.win.Close()
}
