// Package pcm defines the PCM wire format shared across the capture,
// render, and conversion stages of the forwarding engine.
package pcm

import "fmt"

// SampleWidthBits is the only sample width the engine uses. Shared-mode
// mixing on every supported host normalizes streams to 32-bit IEEE-754
// float, and every session opens its device with 32-bit float samples; no
// other width is ever requested.
const SampleWidthBits = 32

// BytesPerSample is the byte size of one float32 sample.
const BytesPerSample = 4

// Format describes the negotiated mix format of one endpoint.
type Format struct {
	SampleRate uint32 // Hz, positive
	Channels   uint16 // positive
}

// FrameSize returns the byte size of one frame (one sample per channel).
func (f Format) FrameSize() int {
	return int(f.Channels) * BytesPerSample
}

// Equal reports whether two formats describe the same rate and channel count.
func (f Format) Equal(o Format) bool {
	return f.SampleRate == o.SampleRate && f.Channels == o.Channels
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/f32", f.SampleRate, f.Channels)
}
