package frameprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensor-fusion-go/internal/models"
)

func TestResultBufferPutGet(t *testing.T) {
	b := NewResultBuffer(3)
	f := &models.Frame{Data: []byte{1, 2, 3}, Width: 1, Height: 1}

	require.NoError(t, b.Put(2, f))
	got, ok := b.Get(2)
	assert.True(t, ok)
	assert.Same(t, f, got)

	_, ok = b.Get(0)
	assert.False(t, ok)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 1, b.Filled())
	assert.Equal(t, []int{0, 1}, b.Missing())
}

func TestResultBufferRejectsBadWrites(t *testing.T) {
	b := NewResultBuffer(2)
	f := &models.Frame{Data: []byte{1, 2, 3}, Width: 1, Height: 1}

	assert.ErrorIs(t, b.Put(-1, f), ErrIndexOutOfRange)
	assert.ErrorIs(t, b.Put(2, f), ErrIndexOutOfRange)
	assert.Error(t, b.Put(0, nil))

	require.NoError(t, b.Put(1, f))
	assert.ErrorIs(t, b.Put(1, f), ErrDuplicateIndex, "slots are written once")
	assert.Equal(t, 1, b.Filled())

	_, ok := b.Get(5)
	assert.False(t, ok)
}

func TestResultBufferNegativeSize(t *testing.T) {
	b := NewResultBuffer(-4)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Missing())
}
