package index

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineIndex_AppendAndLookup(t *testing.T) {
	idx := NewLineIndex(0)
	assert.Equal(t, 0, idx.Append(0, 10, 25))
	assert.Equal(t, 3, idx.Append(40))
	assert.Equal(t, 4, idx.LineCount())

	assert.Equal(t, int64(25), idx.ByteOffset(2))
	assert.Equal(t, InvalidOffset, idx.ByteOffset(4))
	assert.Equal(t, InvalidOffset, idx.ByteOffset(-1))

	last, off, ok := idx.Last()
	assert.True(t, ok)
	assert.Equal(t, 3, last)
	assert.Equal(t, int64(40), off)
}

func TestLineIndex_CopyOffsets(t *testing.T) {
	idx := NewLineIndex(0)
	idx.Append(0, 5, 9)

	dst := make([]int64, 4)
	idx.CopyOffsets([]int{2, 0, 7, -3}, dst)
	assert.Equal(t, []int64{9, 0, InvalidOffset, InvalidOffset}, dst)

	run := make([]int64, 3)
	idx.CopyRange(1, run)
	assert.Equal(t, []int64{5, 9, InvalidOffset}, run)
}

func TestLineIndex_TruncateAndClear(t *testing.T) {
	idx := NewLineIndex(0)
	idx.Append(0, 5, 9)

	assert.Equal(t, 1, idx.Truncate(2))
	assert.Equal(t, 0, idx.Truncate(5))
	assert.Equal(t, 2, idx.LineCount())

	assert.Equal(t, 2, idx.Clear())
	assert.Equal(t, 0, idx.LineCount())
	_, _, ok := idx.Last()
	assert.False(t, ok)
}

func TestLineIndex_ConcurrentAppendAndRead(t *testing.T) {
	idx := NewLineIndex(0)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			idx.Append(int64(i * 10))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		dst := make([]int64, 8)
		for i := 0; i < 1000; i++ {
			idx.CopyRange(0, dst)
			for j, off := range dst {
				if off != InvalidOffset {
					assert.Equal(t, int64(j*10), off)
				}
			}
		}
	}()

	wg.Wait()
	assert.Equal(t, 1000, idx.LineCount())
}
