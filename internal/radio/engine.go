// internal/radio/engine.go
package radio

import (
	"context"
	"errors"
	"strings"
)

// OpMode mirrors the protocol engine's operating-mode bitfield.
type OpMode uint16

const (
	OpJoining  OpMode = 1 << iota // join request in progress
	OpRejoin                      // rejoin after session loss
	OpTxData                      // uplink queued
	OpTxRxPend                    // transmit or receive window pending
	OpScan                        // beacon scan / other engine activity
)

// Joining reports a join or rejoin in progress.
func (m OpMode) Joining() bool { return m&(OpJoining|OpRejoin) != 0 }

// Transmitting reports an uplink queued or in flight.
func (m OpMode) Transmitting() bool { return m&(OpTxData|OpTxRxPend) != 0 }

// Busy reports the channel-busy flag the uplink gate waits on.
func (m OpMode) Busy() bool { return m&OpTxRxPend != 0 }

func (m OpMode) String() string {
	if m == 0 {
		return "idle"
	}
	var parts []string
	for _, f := range []struct {
		bit  OpMode
		name string
	}{
		{OpJoining, "joining"},
		{OpRejoin, "rejoin"},
		{OpTxData, "txdata"},
		{OpTxRxPend, "txrxpend"},
		{OpScan, "scan"},
	} {
		if m&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

var (
	// ErrBusy is returned by Submit while a previous job is pending.
	ErrBusy = errors.New("radio: transmit pending, not sending")
	// ErrNotJoined is returned by Submit before the session is up.
	ErrNotJoined = errors.New("radio: not joined")
)

// Engine is the protocol-engine contract consumed by the duty-cycle core.
type Engine interface {
	// Run drives the engine until ctx is done.
	Run(ctx context.Context) error
	// Submit queues one uplink. A nil error means the job was accepted.
	Submit(port uint8, payload []byte) error
	// OpMode returns the current operating-mode flags.
	OpMode() OpMode
	// Event returns the text of the last engine event.
	Event() string
}
