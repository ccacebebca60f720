package path

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Fallstop/SpeedSwitchHub/internal/pcm"
)

// Producer is the capture half of one path (spec.md §4.5). For the speaker
// path it captures from a fixed virtual endpoint; for the mic path it
// captures from a hot-swappable physical endpoint and honors the enable
// gate.
type Producer struct {
	Name       string // worker name for log context, e.g. "speaker-capture"
	State      *State
	NewSession func() Capturer
	Format     pcm.Format // requested capture format
	HotSwap    bool       // true only for the mic path
	Logger     *log.Logger

	scratch []float32
	sleep   func(time.Duration)
}

// NewProducer builds a producer half. bufFrames sizes the per-iteration
// scratch buffer in frames.
func NewProducer(name string, state *State, newSession func() Capturer, format pcm.Format, hotSwap bool, logger *log.Logger, bufFrames int) *Producer {
	return &Producer{
		Name:       name,
		State:      state,
		NewSession: newSession,
		Format:     format,
		HotSwap:    hotSwap,
		Logger:     logger,
		scratch:    make([]float32, bufFrames*int(format.Channels)),
		sleep:      time.Sleep,
	}
}

// Run executes the producer loop until the run flag clears or an
// unrecoverable error occurs. The value of CaptureTarget when Run opens a
// session (and, for the mic path, any later Set) determines which endpoint
// is opened.
func (p *Producer) Run() error {
	var session Capturer
	current := ""
	errCount := 0

	defer func() {
		if session != nil {
			_ = session.Stop()
			_ = session.Close()
		}
	}()

	for p.State.Run.Load() {
		if p.HotSwap && !p.State.Enabled.Load() {
			p.sleep(50 * time.Millisecond)
			continue
		}

		target := p.State.CaptureTarget.Get()
		if session == nil || (p.HotSwap && target != current) {
			if err := p.swap(&session, &current, target); err != nil {
				errCount++
				if errCount >= MaxRecoveryAttempts {
					return fmt.Errorf("%s capture: exceeded recovery budget: %w", p.Name, err)
				}
				p.Logger.Warn("capture open failed, retrying", "path", p.Name, "attempt", errCount, "err", err)
				p.sleep(time.Second)
				continue
			}
			errCount = 0
		}

		n, err := session.Read(p.scratch)
		switch {
		case err != nil:
			errCount++
			if errCount >= MaxRecoveryAttempts {
				return fmt.Errorf("%s capture: exceeded recovery budget: %w", p.Name, err)
			}
			p.Logger.Warn("capture error, attempting recovery", "path", p.Name, "attempt", errCount, "err", err)
			p.sleep(time.Second)
			if rerr := p.reopen(&session, current); rerr != nil {
				p.Logger.Warn("capture recovery attempt failed", "path", p.Name, "err", rerr)
			}

		case n > 0:
			errCount = 0
			written := p.State.Ring.Write(p.scratch[:n])
			if written < n {
				p.Logger.Warn("ring overflow: samples dropped", "path", p.Name, "dropped", n-written)
			}

		default:
			p.sleep(500 * time.Microsecond)
		}
	}

	return nil
}

// swap stops *session (if any) and opens+starts target, falling back to
// current on failure; it only propagates if both the new endpoint and the
// fallback fail to open, or no fallback is available (the initial open, or
// a non-hot-swap path). Run bounds repeated propagation from here with the
// same recovery budget it applies to Read/Write errors.
func (p *Producer) swap(session *Capturer, current *string, target string) error {
	if *session != nil {
		_ = (*session).Stop()
		_ = (*session).Close()
		*session = nil
	}

	next := p.NewSession()
	if err := openCapture(next, target, p.Format); err == nil {
		*session = next
		*current = target
		if fmtv, ok := next.Format(); ok {
			p.State.CaptureFormat.Set(fmtv)
		}
		return nil
	} else if *current == "" || *current == target {
		return fmt.Errorf("%s capture: open %q: %w", p.Name, target, err)
	}

	fallback := p.NewSession()
	if ferr := openCapture(fallback, *current, p.Format); ferr != nil {
		return fmt.Errorf("%s capture: open %q failed and fallback to %q also failed: %w", p.Name, target, *current, ferr)
	}
	p.Logger.Warn("hot-swap failed, reverted to previous endpoint", "path", p.Name, "requested", target, "reverted_to", *current)
	*session = fallback
	if fmtv, ok := fallback.Format(); ok {
		p.State.CaptureFormat.Set(fmtv)
	}
	return nil
}

// reopen closes *session and opens a fresh one against endpoint, used by
// the bounded-retry recovery path.
func (p *Producer) reopen(session *Capturer, endpoint string) error {
	if *session != nil {
		_ = (*session).Close()
	}
	next := p.NewSession()
	if err := openCapture(next, endpoint, p.Format); err != nil {
		*session = nil
		return err
	}
	*session = next
	if fmtv, ok := next.Format(); ok {
		p.State.CaptureFormat.Set(fmtv)
	}
	return nil
}

func openCapture(c Capturer, endpoint string, format pcm.Format) error {
	if err := c.Open(endpoint, format); err != nil {
		return err
	}
	return c.Start()
}
