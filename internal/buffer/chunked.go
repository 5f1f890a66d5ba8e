// SPDX-License-Identifier: MIT
/*
Package buffer implements the chunked sample store that sits between audio
delivery and analysis.

Audio arrives in bursts of arbitrary size. Instead of flattening every burst
into one contiguous slice (a full copy per delivery), Chunked keeps the bursts
as they are and maintains a cumulative end-offset index. Random access costs a
binary search over that index, O(log n) in the number of chunks.

Lifecycle:
  - created empty for one analysis tick
  - grown only by Add
  - read by At, ReadInto and Size
  - dropped after the tick
*/
package buffer

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrIndexOutOfRange is returned when a read goes past the logical end of the buffer.
var ErrIndexOutOfRange = errors.New("index out of range")

// Chunk is one delivery of signed 16-bit samples. Once handed to a Chunked it
// must not be modified.
type Chunk []int16

// Chunked is an append-only logical concatenation of chunks.
// It is not safe for concurrent use; a snapshot is owned by one consumer.
type Chunked struct {
	channels int
	size     int
	ends     []int   // ends[k] is the logical index of the last sample in chunks[k]
	chunks   []Chunk // in arrival order
}

// NewChunked creates an empty buffer for the given channel count. The channel
// count is fixed for the lifetime of the buffer.
func NewChunked(channels int) *Chunked {
	return &Chunked{channels: channels}
}

// Add appends a chunk. Zero-length chunks carry no samples and are skipped so
// the offset index stays strictly increasing.
func (c *Chunked) Add(chunk Chunk) {
	if len(chunk) == 0 {
		return
	}

	end := len(chunk) - 1
	if n := len(c.ends); n > 0 {
		end = c.ends[n-1] + len(chunk)
	}

	c.ends = append(c.ends, end)
	c.chunks = append(c.chunks, chunk)
	c.size += len(chunk)
}

// locate returns the chunk holding logical index i and the offset inside it.
func (c *Chunked) locate(i int) (int, int) {
	k := sort.SearchInts(c.ends, i)
	if k == 0 {
		return 0, i
	}
	return k, i - (c.ends[k-1] + 1)
}

// At returns the sample at logical index i.
func (c *Chunked) At(i int) (int16, error) {
	if i < 0 || i >= c.size {
		return 0, fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, i, c.size)
	}
	k, off := c.locate(i)
	return c.chunks[k][off], nil
}

// ReadInto copies up to len(dst) samples starting at logical index start into
// dst, crossing chunk borders as needed. It performs a single search and then
// walks the chunks sequentially. Returns the number of samples copied.
func (c *Chunked) ReadInto(dst []int16, start int) (int, error) {
	if start < 0 || start >= c.size {
		return 0, fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, start, c.size)
	}

	k, off := c.locate(start)
	n := 0
	for n < len(dst) && k < len(c.chunks) {
		copied := copy(dst[n:], c.chunks[k][off:])
		n += copied
		k++
		off = 0
	}
	return n, nil
}

// Chunks calls yield for every chunk in arrival order until yield returns false.
func (c *Chunked) Chunks(yield func(Chunk) bool) {
	for _, chunk := range c.chunks {
		if !yield(chunk) {
			return
		}
	}
}

// Len returns the number of chunks held.
func (c *Chunked) Len() int {
	return len(c.chunks)
}

// Empty reports whether no samples have been added.
func (c *Chunked) Empty() bool {
	return len(c.chunks) == 0
}

// Size returns the total number of samples across all chunks.
func (c *Chunked) Size() int {
	return c.size
}

// Channels returns the channel count fixed at construction.
func (c *Chunked) Channels() int {
	return c.channels
}

// InputScale is the factor applied to raw samples before windowing. Using the
// full int16 range leaves the accumulated spectrum tiny, so samples are scaled
// to 64x the normalized range.
func (c *Chunked) InputScale() float64 {
	return 1.0 / float64(math.MaxInt16/64)
}
