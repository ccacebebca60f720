// Package engine composes the speaker path, the optional mic path, and the
// shared control record they read from (spec.md §4.6). It owns the one
// malgo context every session in the process shares and the atomic run flag
// that is the sole cancellation signal for every worker.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"

	"github.com/Fallstop/SpeedSwitchHub/internal/config"
	"github.com/Fallstop/SpeedSwitchHub/internal/hostaudio"
	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
	"github.com/Fallstop/SpeedSwitchHub/internal/path"
	"github.com/Fallstop/SpeedSwitchHub/internal/recovery"
)

// DefaultSampleRate and DefaultChannels seed the SampleRing capacity
// calculation only; they are not used to open any session (spec.md §4.6).
const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
)

// ErrMicNotConfigured is returned by SetMicInput/EnableMic when the mic
// path was not enabled at startup (spec.md §4.7).
var ErrMicNotConfigured = errors.New("mic path not configured")

// Status mirrors the GetStatus reply fields (spec.md §6).
type Status struct {
	Running        bool
	OutputDevice   string
	MicConfigured  bool
	MicEnabled     bool
	MicInputDevice string
}

// Engine wires the shared malgo context, the enumerator, the two path
// states, and the format/buffer sizing used to open every session.
type Engine struct {
	ctx    *malgo.AllocatedContext
	enum   *hostaudio.Enumerator
	logger *log.Logger

	run *atomic.Bool

	speaker *path.State
	mic     *path.State // nil when the mic path is not configured

	format   pcm.Format
	bufferMs uint32
}

// New allocates the malgo context and the per-path shared state. The
// caller must call Close when the engine is done (normally after Run
// returns).
func New(settings *config.Settings, logger *log.Logger) (*Engine, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("malgo", "msg", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	enum := hostaudio.NewEnumerator(ctx)
	run := &atomic.Bool{}
	run.Store(true)

	format := pcm.Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels}
	capacity := ringCapacity(format, settings.BufferMs)

	speakerEnabled := &atomic.Bool{}
	speakerEnabled.Store(true)
	speaker := path.NewState(capacity, settings.SpeakerIn, settings.SpeakerOut, speakerEnabled, run)

	var mic *path.State
	if settings.MicConfigured() {
		micEnabled := &atomic.Bool{}
		micEnabled.Store(true)
		mic = path.NewState(capacity, settings.MicIn, settings.MicOut, micEnabled, run)
	}

	return &Engine{
		ctx:      ctx,
		enum:     enum,
		logger:   logger,
		run:      run,
		speaker:  speaker,
		mic:      mic,
		format:   format,
		bufferMs: settings.BufferMs,
	}, nil
}

// ringCapacity implements spec.md §4.6's sizing formula in samples rather
// than bytes: ring.New already rounds up to the next power of two and
// reserves one slot, so only frames*channels needs to be computed here.
func ringCapacity(format pcm.Format, bufferMs uint32) int {
	frames := int(math.Ceil(float64(format.SampleRate) * float64(bufferMs) / 1000))
	if frames <= 0 {
		frames = 1
	}
	return frames * int(format.Channels)
}

// Run spawns the producer/consumer goroutines for every configured path and
// blocks until all of them return (normally because the run flag cleared).
// A propagated worker error does not stop the other path (spec.md §7); it
// is logged and folded into Run's return value so the process can exit
// non-zero.
func (e *Engine) Run() error {
	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	bufFrames := int(e.format.SampleRate) / 100 // 10ms chunks, matches session PeriodSizeInFrames
	if bufFrames <= 0 {
		bufFrames = 480
	}

	spawn := func(name string, run func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer recovery.HandlePanicFunc(func() {
				errCh <- fmt.Errorf("%s: panic recovered", name)
			})
			if err := run(); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	newCapturer := func() path.Capturer { return hostaudio.NewCaptureSession(e.ctx, e.enum) }
	newRenderer := func() path.Renderer { return hostaudio.NewRenderSession(e.ctx, e.enum) }

	speakerProducer := path.NewProducer("speaker-capture", e.speaker, newCapturer, e.format, false, e.logger, bufFrames)
	speakerConsumer := path.NewConsumer("speaker-render", e.speaker, newRenderer, e.format, true, e.bufferMs, e.logger, bufFrames)
	spawn("speaker-capture", speakerProducer.Run)
	spawn("speaker-render", speakerConsumer.Run)

	if e.mic != nil {
		micProducer := path.NewProducer("mic-capture", e.mic, newCapturer, e.format, true, e.logger, bufFrames)
		micConsumer := path.NewConsumer("mic-render", e.mic, newRenderer, e.format, false, e.bufferMs, e.logger, bufFrames)
		spawn("mic-capture", micProducer.Run)
		spawn("mic-render", micConsumer.Run)
	}

	var firstErr error
	done := make(chan struct{})
	go func() {
		for err := range errCh {
			e.logger.Error("path worker exited", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		close(done)
	}()

	wg.Wait()
	close(errCh)
	<-done
	return firstErr
}

// Close releases the shared malgo context. Call after Run returns.
func (e *Engine) Close() error {
	if e.ctx == nil {
		return nil
	}
	if err := e.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninit audio context: %w", err)
	}
	return e.ctx.Free()
}

// Stop clears the run flag, the sole cancellation signal for every worker
// (spec.md §5). Idempotent.
func (e *Engine) Stop() {
	e.run.Store(false)
}

// RunFlag returns the shared run flag so callers (the control dispatcher)
// observe the same cancellation signal as every path worker.
func (e *Engine) RunFlag() *atomic.Bool {
	return e.run
}

// SetSpeakerOutput overwrites the speaker path's render target (SetOutput,
// spec.md §4.7).
func (e *Engine) SetSpeakerOutput(deviceID string) {
	e.speaker.RenderTarget.Set(deviceID)
}

// SetMicInput overwrites the mic path's capture target, or reports
// ErrMicNotConfigured if the mic path is not active.
func (e *Engine) SetMicInput(deviceID string) error {
	if e.mic == nil {
		return ErrMicNotConfigured
	}
	e.mic.CaptureTarget.Set(deviceID)
	return nil
}

// EnableMic sets the mic path's enable gate, or reports ErrMicNotConfigured
// if the mic path is not active.
func (e *Engine) EnableMic(enabled bool) error {
	if e.mic == nil {
		return ErrMicNotConfigured
	}
	e.mic.Enabled.Store(enabled)
	return nil
}

// Status reads the current run flag, speaker render target, and (if
// configured) mic enable state and capture target, for GetStatus replies.
func (e *Engine) Status() Status {
	st := Status{
		Running:      e.run.Load(),
		OutputDevice: e.speaker.RenderTarget.Get(),
	}
	if e.mic != nil {
		st.MicConfigured = true
		st.MicEnabled = e.mic.Enabled.Load()
		st.MicInputDevice = e.mic.CaptureTarget.Get()
	}
	return st
}
