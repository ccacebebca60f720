// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const AppName = "speedswitchhub"

// Settings holds the fully parsed and validated command-line surface
// (spec.md §6): the two required speaker endpoints, the optional mic
// path pair, and the shared buffer size.
type Settings struct {
	SpeakerIn  string
	SpeakerOut string
	MicIn      string
	MicOut     string
	BufferMs   uint32
}

// MicConfigured reports whether both mic endpoints were supplied, which
// enables the mic path (spec.md §4.6).
func (s *Settings) MicConfigured() bool {
	return s.MicIn != "" && s.MicOut != ""
}

// Validate checks that the parsed settings are internally consistent.
func (s *Settings) Validate() error {
	var errs []error

	if s.SpeakerIn == "" {
		errs = append(errs, errors.New("speaker-in is required"))
	}
	if s.SpeakerOut == "" {
		errs = append(errs, errors.New("speaker-out is required"))
	}
	if (s.MicIn == "") != (s.MicOut == "") {
		errs = append(errs, errors.New("mic-in and mic-out must be set together"))
	}
	if s.BufferMs == 0 || s.BufferMs > 1000 {
		errs = append(errs, fmt.Errorf("buffer must be between 1 and 1000 ms, got %d", s.BufferMs))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// usage is printed for --help and on parse failure.
const usage = `speedswitchhub - low-latency PCM audio forwarding daemon

Usage:
  speedswitchhub --speaker-in <id> --speaker-out <id> [flags]
  speedswitchhub <speaker-in> <speaker-out> [buffer-ms]   (legacy positional form)

Flags:
      --speaker-in string    capture endpoint for the speaker path (required)
      --speaker-out string   render endpoint for the speaker path (required)
      --mic-in string        capture endpoint for the optional mic path
      --mic-out string       render endpoint for the optional mic path
      --buffer uint32        ring buffer size in milliseconds (default 10)
  -h, --help                  print this message and exit
`

// ErrHelpRequested is returned by Parse when --help/-h was given; the
// caller should print usage and exit 0 rather than treating it as a
// failure.
var ErrHelpRequested = errors.New("help requested")

// Parse builds Settings from args (os.Args[1:]). It accepts the legacy
// positional form `<speaker-in> <speaker-out> [buffer-ms]` when the
// first argument does not start with "--" (spec.md §6).
func Parse(args []string) (*Settings, error) {
	if len(args) > 0 && args[0] != "--help" && args[0] != "-h" && !strings.HasPrefix(args[0], "--") {
		return parseLegacyPositional(args)
	}

	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.Usage = func() { _, _ = fmt.Fprint(os.Stderr, usage) }
	fs.SetOutput(os.Stderr)

	speakerIn := fs.String("speaker-in", "", "capture endpoint for the speaker path")
	speakerOut := fs.String("speaker-out", "", "render endpoint for the speaker path")
	micIn := fs.String("mic-in", "", "capture endpoint for the optional mic path")
	micOut := fs.String("mic-out", "", "render endpoint for the optional mic path")
	bufferMs := fs.Uint32("buffer", 10, "ring buffer size in milliseconds")
	help := fs.BoolP("help", "h", false, "print usage and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if *help {
		return nil, ErrHelpRequested
	}

	s := &Settings{
		SpeakerIn:  *speakerIn,
		SpeakerOut: *speakerOut,
		MicIn:      *micIn,
		MicOut:     *micOut,
		BufferMs:   *bufferMs,
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func parseLegacyPositional(args []string) (*Settings, error) {
	if len(args) < 2 {
		return nil, errors.New("legacy positional form requires <speaker-in> <speaker-out> [buffer-ms]")
	}
	s := &Settings{
		SpeakerIn:  args[0],
		SpeakerOut: args[1],
		BufferMs:   10,
	}
	if len(args) >= 3 {
		ms, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid buffer-ms %q: %w", args[2], err)
		}
		s.BufferMs = uint32(ms)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// PrintUsage writes the usage banner to stdout (used for --help, which
// exits 0 per spec.md §6).
func PrintUsage() {
	fmt.Print(usage)
}
