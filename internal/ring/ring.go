// Package ring implements the lock-free single-producer/single-consumer
// sample ring that connects a capture worker to a render worker within one
// forwarding path.
package ring

import "sync/atomic"

// SampleRing is a fixed-capacity, power-of-two-sized ring of float32 samples
// with exactly one producer and one consumer. One slot is permanently
// reserved so that a full ring can be distinguished from an empty one.
//
// The zero value is not usable; construct with New. A SampleRing must never
// be written to by more than one goroutine, nor read from by more than one
// goroutine — that contract is the whole of its safety argument and is not
// (and cannot be) enforced by the type system.
type SampleRing struct {
	buf  []float32
	size uint64 // len(buf), always a power of two
	mask uint64 // size - 1

	// head is the next write index, published with release ordering (via
	// atomic.Store) after the corresponding slots are stored. tail is the
	// next read index, published the same way. The producer only ever
	// writes head and reads tail; the consumer is the mirror image.
	head atomic.Uint64
	tail atomic.Uint64
}

// New creates a ring whose usable capacity is at least capacity samples.
// The backing array is rounded up to the next power of two; Capacity then
// reports (rounded - 1), since one slot is reserved.
func New(capacity int) *SampleRing {
	if capacity < 1 {
		capacity = 1
	}
	size := nextPowerOfTwo(uint64(capacity) + 1)
	return &SampleRing{
		buf:  make([]float32, size),
		size: size,
		mask: size - 1,
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// Capacity returns the usable capacity in samples (rounded size - 1).
func (r *SampleRing) Capacity() int {
	return int(r.mask)
}

// occupancy computes (head-tail) mod size. Since size is a power of two
// this is a mask, not a modulo instruction.
func (r *SampleRing) occupancy(head, tail uint64) uint64 {
	return (head - tail) & r.mask
}

// Occupancy returns the number of samples currently buffered. Safe to call
// from either the producer or the consumer goroutine (or any other), though
// the value is stale the instant it is read.
func (r *SampleRing) Occupancy() int {
	return int(r.occupancy(r.head.Load(), r.tail.Load()))
}

// IsEmpty reports whether the ring currently holds no samples.
func (r *SampleRing) IsEmpty() bool {
	return r.head.Load() == r.tail.Load()
}

// Write copies as many leading elements of samples as fit and returns the
// count copied. Never blocks, never reallocates. Returns 0 on a full ring —
// callers that care about overflow compare the returned count against
// len(samples) and account for the difference themselves (drop-newest).
func (r *SampleRing) Write(samples []float32) int {
	if len(samples) == 0 {
		return 0
	}
	head := r.head.Load()
	tail := r.tail.Load()
	free := int(r.mask) - int(r.occupancy(head, tail))
	if free <= 0 {
		return 0
	}
	n := len(samples)
	if n > free {
		n = free
	}
	for i := 0; i < n; i++ {
		r.buf[(head+uint64(i))&r.mask] = samples[i]
	}
	r.head.Store(head + uint64(n))
	return n
}

// Read copies as many leading available samples as out will hold and
// returns the count copied. Never blocks.
func (r *SampleRing) Read(out []float32) int {
	if len(out) == 0 {
		return 0
	}
	head := r.head.Load()
	tail := r.tail.Load()
	avail := int(r.occupancy(head, tail))
	if avail == 0 {
		return 0
	}
	n := len(out)
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[(tail+uint64(i))&r.mask]
	}
	r.tail.Store(tail + uint64(n))
	return n
}

// Clear drops all buffered samples. Only safe to call when neither the
// producer nor the consumer is concurrently active (e.g. during teardown).
func (r *SampleRing) Clear() {
	r.tail.Store(r.head.Load())
}
