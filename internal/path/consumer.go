package path

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Fallstop/SpeedSwitchHub/internal/convert"
	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
)

// Consumer is the render half of one path (spec.md §4.5). For the speaker
// path it renders to a hot-swappable real endpoint; for the mic path it
// renders to a fixed virtual endpoint and honors the enable gate.
type Consumer struct {
	Name       string
	State      *State
	NewSession func() Renderer
	Format     pcm.Format // requested render format
	HotSwap    bool       // true only for the speaker path
	BufferMs   uint32
	Logger     *log.Logger

	scratch        []float32
	convScratch    []float32 // Convert's final-stage (resample/identity) buffer
	channelScratch []float32 // Convert's intermediate channel-conversion buffer
	sleep          func(time.Duration)
}

// NewConsumer builds a render half. bufFrames sizes the per-iteration
// scratch buffer in frames.
func NewConsumer(name string, state *State, newSession func() Renderer, format pcm.Format, hotSwap bool, bufferMs uint32, logger *log.Logger, bufFrames int) *Consumer {
	return &Consumer{
		Name:       name,
		State:      state,
		NewSession: newSession,
		Format:     format,
		HotSwap:    hotSwap,
		BufferMs:   bufferMs,
		Logger:     logger,
		scratch:    make([]float32, bufFrames*int(format.Channels)),
		sleep:      time.Sleep,
	}
}

// Run executes the render loop until the run flag clears or an
// unrecoverable error occurs.
func (c *Consumer) Run() error {
	var session Renderer
	current := ""
	errCount := 0
	prefilled := false

	defer func() {
		if session != nil {
			_ = session.Stop()
			_ = session.Close()
		}
	}()

	for c.State.Run.Load() {
		if !c.State.Enabled.Load() {
			if session != nil {
				c.writeSilence(session, 1)
			}
			c.sleep(10 * time.Millisecond)
			continue
		}

		target := c.State.RenderTarget.Get()
		if session == nil || (c.HotSwap && target != current) {
			if err := c.swap(&session, &current, target); err != nil {
				errCount++
				if errCount >= MaxRecoveryAttempts {
					return fmt.Errorf("%s render: exceeded recovery budget: %w", c.Name, err)
				}
				c.Logger.Warn("render open failed, retrying", "path", c.Name, "attempt", errCount, "err", err)
				c.sleep(time.Second)
				continue
			}
			errCount = 0
			prefilled = false
		}

		if !prefilled {
			c.writeSilence(session, c.BufferMs)
			prefilled = true
		}

		n := c.State.Ring.Read(c.scratch)
		if n > 0 {
			errCount = 0
			out := c.scratch[:n]
			if capFmt, ok := c.State.CaptureFormat.Get(); ok {
				if rndFmt, rok := session.Format(); rok && convert.NeedsConversion(capFmt, rndFmt) {
					var converted []float32
					converted, c.channelScratch = convert.Convert(out, capFmt, rndFmt, c.channelScratch, c.convScratch)
					c.convScratch = converted[:cap(converted)]
					out = converted
				}
			}
			if _, err := session.Write(out); err != nil {
				errCount++
				if errCount >= MaxRecoveryAttempts {
					return fmt.Errorf("%s render: exceeded recovery budget: %w", c.Name, err)
				}
				c.Logger.Warn("render error, attempting recovery", "path", c.Name, "attempt", errCount, "err", err)
				c.sleep(time.Second)
				if rerr := c.reopen(&session, current); rerr != nil {
					c.Logger.Warn("render recovery attempt failed", "path", c.Name, "err", rerr)
				} else {
					prefilled = false
				}
			}
		} else {
			c.writeSilence(session, 1)
			c.sleep(500 * time.Microsecond)
		}
	}

	return nil
}

// writeSilence writes ms milliseconds of zero samples at the render
// format's rate/channels, ignoring any write error (best-effort fill).
func (c *Consumer) writeSilence(session Renderer, ms uint32) {
	if session == nil {
		return
	}
	rate := c.Format.SampleRate
	channels := int(c.Format.Channels)
	if fmtv, ok := session.Format(); ok {
		rate = fmtv.SampleRate
		channels = int(fmtv.Channels)
	}
	frames := int(rate*ms) / 1000
	if frames <= 0 || channels <= 0 {
		return
	}
	silence := make([]float32, frames*channels)
	_, _ = session.Write(silence)
}

// swap stops *session (if any) and opens+starts target, falling back to
// current on failure; it only propagates if both the new endpoint and the
// fallback fail to open, or no fallback is available (the initial open, or
// a non-hot-swap path). Run bounds repeated propagation from here with the
// same recovery budget it applies to Write errors.
func (c *Consumer) swap(session *Renderer, current *string, target string) error {
	if *session != nil {
		_ = (*session).Stop()
		_ = (*session).Close()
		*session = nil
	}

	next := c.NewSession()
	if err := openRender(next, target, c.Format); err == nil {
		*session = next
		*current = target
		return nil
	} else if *current == "" || *current == target {
		return fmt.Errorf("%s render: open %q: %w", c.Name, target, err)
	}

	fallback := c.NewSession()
	if ferr := openRender(fallback, *current, c.Format); ferr != nil {
		return fmt.Errorf("%s render: open %q failed and fallback to %q also failed: %w", c.Name, target, *current, ferr)
	}
	c.Logger.Warn("hot-swap failed, reverted to previous endpoint", "path", c.Name, "requested", target, "reverted_to", *current)
	*session = fallback
	return nil
}

func (c *Consumer) reopen(session *Renderer, endpoint string) error {
	if *session != nil {
		_ = (*session).Close()
	}
	next := c.NewSession()
	if err := openRender(next, endpoint, c.Format); err != nil {
		*session = nil
		return err
	}
	*session = next
	return nil
}

func openRender(r Renderer, endpoint string, format pcm.Format) error {
	if err := r.Open(endpoint, format); err != nil {
		return err
	}
	return r.Start()
}
