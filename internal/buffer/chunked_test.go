// SPDX-License-Identifier: MIT
package buffer

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func buildChunked(sizes ...int) (*Chunked, []int16) {
	c := NewChunked(1)
	var flat []int16
	next := int16(1)
	for _, size := range sizes {
		chunk := make(Chunk, size)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		c.Add(chunk)
		flat = append(flat, chunk...)
	}
	return c, flat
}

func TestChunkedScenario(t *testing.T) {
	c := NewChunked(1)
	chunk0 := Chunk{10, 11, 12, 13, 14}
	chunk1 := Chunk{20, 21, 22}
	chunk2 := Chunk{30, 31, 32, 33, 34, 35, 36}
	c.Add(chunk0)
	c.Add(chunk1)
	c.Add(chunk2)

	if c.Size() != 15 {
		t.Fatalf("Size() = %d, want 15", c.Size())
	}

	tests := []struct {
		index int
		want  int16
	}{
		{0, chunk0[0]},
		{4, chunk0[4]},
		{5, chunk1[0]},
		{7, chunk1[2]},
		{8, chunk2[0]},
		{14, chunk2[6]},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("At(%d)", tt.index), func(t *testing.T) {
			got, err := c.At(tt.index)
			if err != nil {
				t.Fatalf("At(%d) error: %v", tt.index, err)
			}
			if got != tt.want {
				t.Errorf("At(%d) = %d, want %d", tt.index, got, tt.want)
			}
		})
	}

	if _, err := c.At(15); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("At(15) error = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := c.At(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("At(-1) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestChunkedReadBack(t *testing.T) {
	layouts := [][]int{
		{1},
		{1, 1, 1},
		{5, 3, 7},
		{2000, 2000, 2000, 2000},
		{13, 1, 256, 7, 512, 3},
	}

	for _, sizes := range layouts {
		t.Run(fmt.Sprint(sizes), func(t *testing.T) {
			c, flat := buildChunked(sizes...)
			if c.Size() != len(flat) {
				t.Fatalf("Size() = %d, want %d", c.Size(), len(flat))
			}
			for i, want := range flat {
				got, err := c.At(i)
				if err != nil {
					t.Fatalf("At(%d) error: %v", i, err)
				}
				if got != want {
					t.Fatalf("At(%d) = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestChunkedSizeMonotonic(t *testing.T) {
	c := NewChunked(1)
	prev := c.Size()
	total := 0
	for _, size := range []int{4, 0, 9, 1, 0, 30} {
		c.Add(make(Chunk, size))
		total += size
		if c.Size() < prev {
			t.Fatalf("Size decreased from %d to %d", prev, c.Size())
		}
		if c.Size() != total {
			t.Fatalf("Size() = %d, want %d", c.Size(), total)
		}
		prev = c.Size()
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4 (empty chunks skipped)", c.Len())
	}
}

func TestChunkedReadInto(t *testing.T) {
	c, flat := buildChunked(5, 3, 7)

	tests := []struct {
		name    string
		start   int
		dstLen  int
		wantN   int
		wantErr bool
	}{
		{"Whole buffer", 0, 15, 15, false},
		{"Across borders", 3, 8, 8, false},
		{"Past end truncates", 10, 10, 5, false},
		{"Start at chunk border", 8, 7, 7, false},
		{"Start out of range", 15, 1, 0, true},
		{"Negative start", -1, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]int16, tt.dstLen)
			n, err := c.ReadInto(dst, tt.start)
			if tt.wantErr {
				if !errors.Is(err, ErrIndexOutOfRange) {
					t.Fatalf("error = %v, want ErrIndexOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != tt.wantN {
				t.Fatalf("n = %d, want %d", n, tt.wantN)
			}
			for i := 0; i < n; i++ {
				if dst[i] != flat[tt.start+i] {
					t.Errorf("dst[%d] = %d, want %d", i, dst[i], flat[tt.start+i])
				}
			}
		})
	}
}

func TestChunkedChunksOrder(t *testing.T) {
	c, _ := buildChunked(2, 3, 4)
	var sizes []int
	c.Chunks(func(chunk Chunk) bool {
		sizes = append(sizes, len(chunk))
		return true
	})
	if fmt.Sprint(sizes) != "[2 3 4]" {
		t.Errorf("chunk order = %v, want [2 3 4]", sizes)
	}

	visited := 0
	c.Chunks(func(Chunk) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("visited %d chunks after early stop, want 1", visited)
	}
}

func TestChunkedEmptyAndChannels(t *testing.T) {
	c := NewChunked(2)
	if !c.Empty() {
		t.Error("new buffer should be empty")
	}
	if c.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", c.Channels())
	}
	c.Add(Chunk{})
	if !c.Empty() {
		t.Error("buffer should stay empty after adding an empty chunk")
	}
	c.Add(Chunk{1})
	if c.Empty() {
		t.Error("buffer should not be empty after adding samples")
	}
}

func TestInputScale(t *testing.T) {
	c := NewChunked(1)
	want := 1.0 / 511.0
	if math.Abs(c.InputScale()-want) > 1e-15 {
		t.Errorf("InputScale() = %g, want %g", c.InputScale(), want)
	}
}

func TestReadIntoZeroAllocs(t *testing.T) {
	c, _ := buildChunked(2000, 2000, 2000, 2000)
	dst := make([]int16, 512)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = c.ReadInto(dst, 1900)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ReadInto, got %.1f", allocs)
	}
}

func BenchmarkAt(b *testing.B) {
	c, _ := buildChunked(441, 441, 441, 441, 441, 441, 441, 441)
	size := c.Size()
	b.ReportAllocs()

	i := 0
	for b.Loop() {
		_, _ = c.At(i)
		i = (i + 7) % size
	}
}

func BenchmarkReadInto(b *testing.B) {
	c, _ := buildChunked(441, 441, 441, 441, 441, 441, 441, 441)
	dst := make([]int16, 512)
	b.ReportAllocs()

	for b.Loop() {
		_, _ = c.ReadInto(dst, 300)
	}
}
