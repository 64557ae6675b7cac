package models

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"
)

// FormatBGR24 is the only pixel layout frames carry between stages (OpenCV default).
const FormatBGR24 = "BGR24"

// Frame is a decoded image detached from any OpenCV handle
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Format    string
	Timestamp time.Time
}

// Empty reports whether the frame carries no pixels. A nil frame is empty.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0
}

// Clone returns a deep copy so overlays can be drawn without touching the source
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	data := make([]byte, len(f.Data))
	copy(data, f.Data)
	return &Frame{
		Data:      data,
		Width:     f.Width,
		Height:    f.Height,
		Format:    f.Format,
		Timestamp: f.Timestamp,
	}
}

// Resolution returns the frame size
func (f *Frame) Resolution() Resolution {
	if f == nil {
		return Resolution{}
	}
	return Resolution{Width: f.Width, Height: f.Height}
}

// IndexedFrame tags a frame with its ordinal position in the source video
type IndexedFrame struct {
	Frame *Frame
	Index int
}

// OverlayText is a single line of text composited onto a frame before rendering
type OverlayText struct {
	Text     string
	Position image.Point
	Color    color.RGBA
	Scale    float64
}

// Resolution is a width x height pair
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// IsZero reports whether no resolution has been recorded yet
func (r Resolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

// ParseResolution parses strings such as "640x480"
func ParseResolution(s string) (Resolution, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Resolution{}, fmt.Errorf("invalid resolution %q: expected WxH", s)
	}

	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Resolution{}, fmt.Errorf("invalid resolution width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Resolution{}, fmt.Errorf("invalid resolution height %q: %w", parts[1], err)
	}
	if w <= 0 || h <= 0 {
		return Resolution{}, fmt.Errorf("invalid resolution %q: dimensions must be positive", s)
	}

	return Resolution{Width: w, Height: h}, nil
}
