// SPDX-License-Identifier: MIT
package audio

import (
	"spectra/internal/buffer"
	"sync/atomic"
)

// node is one enqueued chunk. Nodes form a LIFO list linked newest first.
type node struct {
	chunk buffer.Chunk
	next  *node
}

// Queue hands captured audio from any number of producers to a single periodic
// consumer without locks. Producers push with a compare-and-swap and never
// wait; the consumer detaches the whole list with one atomic swap.
type Queue struct {
	head      atomic.Pointer[node]
	delivered atomic.Uint64 // Samples accepted by AddData.
	drained   atomic.Uint64 // Samples handed out by Read.
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// AddData copies samples into an owned chunk and enqueues it. The caller may
// reuse samples as soon as AddData returns. Empty input is ignored.
//
// Safe to call from the capture callback: it never blocks.
func (q *Queue) AddData(samples []int16) {
	if len(samples) == 0 {
		return
	}

	chunk := make(buffer.Chunk, len(samples))
	copy(chunk, samples)
	n := &node{chunk: chunk}

	for {
		head := q.head.Load()
		n.next = head
		if q.head.CompareAndSwap(head, n) {
			break
		}
	}
	q.delivered.Add(uint64(len(samples)))
}

// Read takes everything enqueued so far and returns it as a mono buffer in
// arrival order. It never waits for more data; an empty queue yields an empty
// buffer. Only one goroutine should call Read.
func (q *Queue) Read() *buffer.Chunked {
	list := q.head.Swap(nil)

	// Reverse the newest-first list into arrival order.
	var ordered *node
	for list != nil {
		next := list.next
		list.next = ordered
		ordered = list
		list = next
	}

	data := buffer.NewChunked(1)
	for n := ordered; n != nil; n = n.next {
		data.Add(n.chunk)
	}
	q.drained.Add(uint64(data.Size()))
	return data
}

// Delivered returns the number of samples accepted so far.
func (q *Queue) Delivered() uint64 {
	return q.delivered.Load()
}

// Drained returns the number of samples handed to the consumer so far.
func (q *Queue) Drained() uint64 {
	return q.drained.Load()
}

// Pending returns the number of samples accepted but not yet drained. It is a
// snapshot and may be stale by the time it returns.
func (q *Queue) Pending() uint64 {
	drained := q.drained.Load()
	delivered := q.delivered.Load()
	if delivered < drained {
		return 0
	}
	return delivered - drained
}
