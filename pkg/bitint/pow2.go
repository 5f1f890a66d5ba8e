// SPDX-License-Identifier: MIT
//
// Package bitint holds the power-of-2 checks behind buffer sizing: capture
// buffers must be a power of 2 frames, and the -b flag rounds a request up
// to one.
//
//	frames := bitint.NextPowerOfTwo(500)       // 512
//	ok := bitint.IsPowerOfTwo(cfg.Audio.FramesPerBuffer)
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 that is >= size, and 1 for
// size <= 0. Exact powers of 2 are returned unchanged because the bit length
// is taken of size-1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
func IsPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}
