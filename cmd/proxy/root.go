// Package proxy wires the parsed settings, the structured logger, the
// engine, and the control dispatcher together, and owns process lifecycle:
// signal handling and exit codes (spec.md §6).
package proxy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Fallstop/SpeedSwitchHub/internal/config"
	"github.com/Fallstop/SpeedSwitchHub/internal/control"
	"github.com/Fallstop/SpeedSwitchHub/internal/engine"
	"github.com/Fallstop/SpeedSwitchHub/internal/logging"
	"github.com/Fallstop/SpeedSwitchHub/internal/recovery"
)

// Run parses args, starts the engine and control dispatcher, and blocks
// until shutdown. It returns the process exit code (spec.md §6): 0 on
// clean shutdown, 1 on parse failure or unrecoverable engine error.
func Run(args []string, stderr io.Writer) int {
	settings, err := config.Parse(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			config.PrintUsage()
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "%v\n", err)
		config.PrintUsage()
		return 1
	}

	logger := logging.New(false)

	eng, err := engine.New(settings, logger)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "init engine: %v\n", err)
		return 1
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			logger.Warn("close audio context", "err", cerr)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", "signal", sig)
		eng.Stop()
	}()

	dispatcher := control.NewDispatcher(eng, eng.RunFlag(), logger)
	go func() {
		defer recovery.HandlePanic()
		if err := dispatcher.Serve(); err != nil {
			logger.Warn("control dispatcher exited", "err", err)
		}
	}()

	logger.Info("speedswitchhub starting",
		"speaker_in", settings.SpeakerIn, "speaker_out", settings.SpeakerOut,
		"mic_configured", settings.MicConfigured(), "buffer_ms", settings.BufferMs)

	if err := eng.Run(); err != nil {
		logger.Error("engine exited with error", "err", err)
		return 1
	}

	logger.Info("speedswitchhub stopped")
	return 0
}

// Execute is the main() entry point.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stderr))
}
