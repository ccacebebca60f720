package hostaudio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
	"github.com/Fallstop/SpeedSwitchHub/internal/resolver"
	"github.com/Fallstop/SpeedSwitchHub/internal/ring"
)

// RenderSession wraps one malgo playback device as a poll-style sink: Write
// pushes samples into an internal ring, and the malgo callback drains it,
// filling any shortfall with silence so the device is never starved for a
// tick (matching the "available = buffer_frames - padding" contract of
// spec.md §4.3 — here "available" is the ring's free space instead of
// WASAPI's padding counter).
type RenderSession struct {
	ctx  *malgo.AllocatedContext
	enum *Enumerator

	mu      sync.Mutex
	device  *malgo.Device
	ring    *ring.SampleRing
	format  pcm.Format
	started bool
}

// NewRenderSession constructs an unstarted session.
func NewRenderSession(ctx *malgo.AllocatedContext, enum *Enumerator) *RenderSession {
	return &RenderSession{ctx: ctx, enum: enum}
}

// Open resolves endpointID against the render enumeration and prepares the
// underlying malgo device at the given format.
func (r *RenderSession) Open(endpointID string, format pcm.Format) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, err := resolver.Resolve(r.enum, endpointID, resolver.Render)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEndpointNotFound, err)
	}
	rawID, ok := r.enum.rawID(resolver.Render, dev.ID)
	if !ok {
		return fmt.Errorf("%w: device %q vanished between resolve and open", ErrEndpointNotFound, dev.ID)
	}

	if format.SampleRate == 0 || format.Channels == 0 {
		return fmt.Errorf("%w: zero-valued render format requested", ErrUnsupported)
	}

	r.format = format
	r.ring = ring.New(internalRingSamples)

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Playback,
		SampleRate:         format.SampleRate,
		PeriodSizeInFrames: format.SampleRate / 100, // 10ms
		Playback: malgo.SubConfig{
			Format:   malgo.FormatF32,
			Channels: uint32(format.Channels),
			DeviceID: rawID.Pointer(),
		},
	}

	callbacks := malgo.DeviceCallbacks{
		Data: r.onSendFrames,
	}

	device, err := malgo.InitDevice(r.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("%w: init render device: %v", ErrHostAPI, err)
	}
	r.device = device
	return nil
}

func (r *RenderSession) onSendFrames(output []byte, _ []byte, frameCount uint32) {
	rb := r.ring
	if rb == nil {
		zeroFill(output)
		return
	}
	needed := len(output) / pcm.BytesPerSample
	scratch := make([]float32, needed)
	got := rb.Read(scratch)
	for i := 0; i < got; i++ {
		binary.LittleEndian.PutUint32(output[i*4:], math.Float32bits(scratch[i]))
	}
	for i := got; i < needed; i++ {
		binary.LittleEndian.PutUint32(output[i*4:], 0)
	}
}

func zeroFill(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// Start begins streaming. Idempotent.
func (r *RenderSession) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if r.device == nil {
		return ErrNotStarted
	}
	if err := r.device.Start(); err != nil {
		return fmt.Errorf("%w: start render device: %v", ErrHostAPI, err)
	}
	r.started = true
	return nil
}

// Stop stops streaming. Idempotent, always safe during teardown.
func (r *RenderSession) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.device == nil {
		return nil
	}
	err := r.device.Stop()
	r.started = false
	if err != nil {
		return fmt.Errorf("%w: stop render device: %v", ErrHostAPI, err)
	}
	return nil
}

// Write pushes at most len(src) samples into the render ring, returning the
// number of samples accepted, not frames. Returns 0 when the ring is full (the device is not
// draining fast enough, or more plausibly, more has been queued than one
// buffer period needs).
func (r *RenderSession) Write(src []float32) (int, error) {
	r.mu.Lock()
	rb := r.ring
	r.mu.Unlock()
	if rb == nil {
		return 0, ErrNotStarted
	}
	return rb.Write(src), nil
}

// Format returns the negotiated format, valid only after a successful Open.
func (r *RenderSession) Format() (pcm.Format, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return pcm.Format{}, false
	}
	return r.format, true
}

// Close stops the device (if running) and releases it. Safe to call
// multiple times and on every exit path.
func (r *RenderSession) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return nil
	}
	if r.started {
		_ = r.device.Stop()
		r.started = false
	}
	r.device.Uninit()
	r.device = nil
	r.ring = nil
	return nil
}
