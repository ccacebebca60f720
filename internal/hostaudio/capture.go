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

// internalRingSamples sizes the small ring each session uses to bridge
// malgo's callback thread and the caller's poll-style Read/Write, absorbing
// the jitter between callback invocations and the caller's poll cadence.
// At 8192 samples (about 85 ms of 48 kHz stereo) it is larger than a path's
// SampleRing at the default 10 ms buffer.
const internalRingSamples = 8192

// CaptureSession wraps one malgo capture device as a poll-style source:
// the malgo callback pushes samples into an internal ring, and Read drains
// it. Capture format is fixed at open time: the device is opened at the
// caller's requested format, not probed for the endpoint's own mix format.
type CaptureSession struct {
	ctx  *malgo.AllocatedContext
	enum *Enumerator

	mu      sync.Mutex
	device  *malgo.Device
	ring    *ring.SampleRing
	format  pcm.Format
	started bool
}

// NewCaptureSession constructs an unstarted session. ctx and enum are
// shared with every other session the engine owns.
func NewCaptureSession(ctx *malgo.AllocatedContext, enum *Enumerator) *CaptureSession {
	return &CaptureSession{ctx: ctx, enum: enum}
}

// Open resolves endpointID against the capture enumeration and prepares
// (but does not start) the underlying malgo device at the given format.
func (c *CaptureSession) Open(endpointID string, format pcm.Format) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dev, err := resolver.Resolve(c.enum, endpointID, resolver.Capture)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEndpointNotFound, err)
	}
	rawID, ok := c.enum.rawID(resolver.Capture, dev.ID)
	if !ok {
		return fmt.Errorf("%w: device %q vanished between resolve and open", ErrEndpointNotFound, dev.ID)
	}

	if format.SampleRate == 0 || format.Channels == 0 {
		return fmt.Errorf("%w: zero-valued capture format requested", ErrUnsupported)
	}

	c.format = format
	c.ring = ring.New(internalRingSamples)

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Capture,
		SampleRate:         format.SampleRate,
		PeriodSizeInFrames: format.SampleRate / 100, // 10ms, matches §4.3 start() contract
		Capture: malgo.SubConfig{
			Format:   malgo.FormatF32,
			Channels: uint32(format.Channels),
			DeviceID: rawID.Pointer(),
		},
	}

	callbacks := malgo.DeviceCallbacks{
		Data: c.onRecvFrames,
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("%w: init capture device: %v", ErrHostAPI, err)
	}
	c.device = device
	return nil
}

func (c *CaptureSession) onRecvFrames(_ []byte, input []byte, frameCount uint32) {
	r := c.ring
	if r == nil || len(input) == 0 {
		return
	}
	samples := bytesToFloat32(input)
	r.Write(samples)
}

// Start begins streaming. Idempotent.
func (c *CaptureSession) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	if c.device == nil {
		return ErrNotStarted
	}
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("%w: start capture device: %v", ErrHostAPI, err)
	}
	c.started = true
	return nil
}

// Stop stops streaming. Idempotent, always safe during teardown.
func (c *CaptureSession) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.device == nil {
		return nil
	}
	err := c.device.Stop()
	c.started = false
	if err != nil {
		return fmt.Errorf("%w: stop capture device: %v", ErrHostAPI, err)
	}
	return nil
}

// Read pulls at most len(dest) samples currently buffered, returning the
// number of samples read, not frames (0 when nothing is available — never
// blocks).
func (c *CaptureSession) Read(dest []float32) (int, error) {
	c.mu.Lock()
	r := c.ring
	c.mu.Unlock()
	if r == nil {
		return 0, ErrNotStarted
	}
	return r.Read(dest), nil
}

// Format returns the negotiated format, valid only after a successful Open.
func (c *CaptureSession) Format() (pcm.Format, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return pcm.Format{}, false
	}
	return c.format, true
}

// Close stops the device (if running) and releases it. Safe to call
// multiple times and on every exit path.
func (c *CaptureSession) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return nil
	}
	if c.started {
		_ = c.device.Stop()
		c.started = false
	}
	c.device.Uninit()
	c.device = nil
	c.ring = nil
	return nil
}

func bytesToFloat32(data []byte) []float32 {
	n := len(data) / pcm.BytesPerSample
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}
