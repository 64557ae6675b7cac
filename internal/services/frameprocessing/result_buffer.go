package frameprocessing

import (
	"errors"
	"fmt"

	"sensor-fusion-go/internal/models"
)

var (
	ErrIndexOutOfRange = errors.New("frameprocessing: frame index out of range")
	ErrDuplicateIndex  = errors.New("frameprocessing: frame index already filled")
)

// ResultBuffer holds one slot per frame read, addressed by the frame's
// original index. Each slot is written at most once. It is owned by the
// collector and needs no locking.
type ResultBuffer struct {
	slots  []*models.Frame
	filled int
}

func NewResultBuffer(size int) *ResultBuffer {
	if size < 0 {
		size = 0
	}
	return &ResultBuffer{slots: make([]*models.Frame, size)}
}

// Put stores frame at index
func (b *ResultBuffer) Put(index int, frame *models.Frame) error {
	if index < 0 || index >= len(b.slots) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(b.slots))
	}
	if frame == nil {
		return fmt.Errorf("frameprocessing: nil frame for index %d", index)
	}
	if b.slots[index] != nil {
		return fmt.Errorf("%w: %d", ErrDuplicateIndex, index)
	}
	b.slots[index] = frame
	b.filled++
	return nil
}

// Get returns the frame at index and whether the slot was filled
func (b *ResultBuffer) Get(index int) (*models.Frame, bool) {
	if index < 0 || index >= len(b.slots) {
		return nil, false
	}
	f := b.slots[index]
	return f, f != nil
}

// Len is the number of slots, equal to the number of frames read
func (b *ResultBuffer) Len() int { return len(b.slots) }

// Filled is the number of slots holding a frame
func (b *ResultBuffer) Filled() int { return b.filled }

// Missing lists the indices of empty slots in increasing order
func (b *ResultBuffer) Missing() []int {
	var gaps []int
	for i, f := range b.slots {
		if f == nil {
			gaps = append(gaps, i)
		}
	}
	return gaps
}
