// Package control implements the out-of-band supervisor channel (spec.md
// §4.7, §6): a Windows named pipe serving one JSON request per connection.
// Transport is github.com/Microsoft/go-winio, the ecosystem-standard way to
// get a net.Listener/net.Conn pair over a named pipe on Windows; encoding is
// stdlib encoding/json since the request/reply schema is flat and small
// enough that no third-party codec in the examples pack offers anything
// beyond what encoding/json already does.
package control

import (
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/charmbracelet/log"

	"github.com/Fallstop/SpeedSwitchHub/internal/engine"
)

// PipeName is the well-known local pipe the supervisor connects to.
const PipeName = `\\.\pipe\GAutoSwitchAudioProxy`

const maxMessageBytes = 4096

// acceptPollInterval bounds how long Serve blocks inside one Accept
// before re-checking the run flag (spec.md §5).
const acceptPollInterval = 100 * time.Millisecond

// Controller is the subset of *engine.Engine the dispatcher mutates and
// reads. Declared here, not satisfied by an import cycle, so tests can
// supply a fake engine.
type Controller interface {
	SetSpeakerOutput(deviceID string)
	SetMicInput(deviceID string) error
	EnableMic(enabled bool) error
	Stop()
	Status() engine.Status
}

// Request is the tagged-union request envelope (spec.md §6).
type Request struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Reply is the flat reply envelope; status fields are populated only for
// GetStatus.
type Reply struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	Running        *bool   `json:"running,omitempty"`
	OutputDevice   *string `json:"output_device,omitempty"`
	MicEnabled     *bool   `json:"mic_enabled,omitempty"`
	MicInputDevice *string `json:"mic_input_device,omitempty"`
}

type deviceIDPayload struct {
	DeviceID string `json:"device_id"`
}

type enabledPayload struct {
	Enabled bool `json:"enabled"`
}

// Dispatcher serves the control pipe, one connection and one request at a
// time.
type Dispatcher struct {
	Controller Controller
	Run        *atomic.Bool
	Logger     *log.Logger
}

// NewDispatcher builds a dispatcher bound to ctrl and the shared run flag.
func NewDispatcher(ctrl Controller, run *atomic.Bool, logger *log.Logger) *Dispatcher {
	return &Dispatcher{Controller: ctrl, Run: run, Logger: logger}
}

// Serve listens on PipeName until the run flag clears. It is torn down by
// process exit if blocked accepting a connection when the process is
// killed (spec.md §4.6) — normal shutdown instead observes the run flag
// between accepts.
func (d *Dispatcher) Serve() error {
	listener, err := winio.ListenPipe(PipeName, nil)
	if err != nil {
		return fmt.Errorf("listen %s: %w", PipeName, err)
	}

	type accepted struct {
		conn net.Conn
		err  error
	}
	connCh := make(chan accepted)
	go func() {
		for {
			conn, err := listener.Accept()
			connCh <- accepted{conn, err}
			if err != nil {
				return
			}
		}
	}()

	for d.Run.Load() {
		select {
		case a := <-connCh:
			if a.err != nil {
				return nil
			}
			d.handleConn(a.conn)
		case <-time.After(acceptPollInterval):
		}
	}
	_ = listener.Close()
	return nil
}

func (d *Dispatcher) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	buf := make([]byte, maxMessageBytes)
	n, err := conn.Read(buf)
	if err != nil {
		d.Logger.Warn("control read error", "err", err)
		return
	}

	var req Request
	if err := json.Unmarshal(buf[:n], &req); err != nil {
		d.Logger.Warn("control malformed request", "err", err)
		return
	}

	reply, ok := d.dispatch(req)
	if !ok {
		d.Logger.Warn("control unknown command, closing", "command", req.Command)
		return
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		d.Logger.Warn("control marshal reply error", "err", err)
		return
	}
	if _, err := conn.Write(payload); err != nil {
		d.Logger.Warn("control write error", "err", err)
	}
}

// dispatch executes one command and builds its reply. ok is false for an
// unrecognized command, signaling the caller to close without replying
// (spec.md §4.7: "unknown commands yield a parse error... and close the
// connection").
func (d *Dispatcher) dispatch(req Request) (Reply, bool) {
	switch req.Command {
	case "SetOutput":
		var p deviceIDPayload
		if err := json.Unmarshal(req.Data, &p); err != nil || p.DeviceID == "" {
			return Reply{Success: false, Message: "invalid SetOutput payload"}, true
		}
		d.Controller.SetSpeakerOutput(p.DeviceID)
		return Reply{Success: true, Message: "output updated"}, true

	case "GetStatus":
		st := d.Controller.Status()
		running := st.Running
		output := st.OutputDevice
		reply := Reply{Success: true, Message: "ok", Running: &running, OutputDevice: &output}
		if st.MicConfigured {
			micEnabled := st.MicEnabled
			micInput := st.MicInputDevice
			reply.MicEnabled = &micEnabled
			reply.MicInputDevice = &micInput
		}
		return reply, true

	case "Stop":
		d.Controller.Stop()
		return Reply{Success: true, Message: "stopping"}, true

	case "SetMicInput":
		var p deviceIDPayload
		if err := json.Unmarshal(req.Data, &p); err != nil || p.DeviceID == "" {
			return Reply{Success: false, Message: "invalid SetMicInput payload"}, true
		}
		if err := d.Controller.SetMicInput(p.DeviceID); err != nil {
			return Reply{Success: false, Message: err.Error()}, true
		}
		return Reply{Success: true, Message: "mic input updated"}, true

	case "EnableMic":
		var p enabledPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return Reply{Success: false, Message: "invalid EnableMic payload"}, true
		}
		if err := d.Controller.EnableMic(p.Enabled); err != nil {
			return Reply{Success: false, Message: err.Error()}, true
		}
		return Reply{Success: true, Message: "mic enable updated"}, true

	default:
		return Reply{}, false
	}
}
