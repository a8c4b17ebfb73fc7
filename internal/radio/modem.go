// internal/radio/modem.go
package radio

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tamzrod/paxcounter/internal/serialport"
)

// Modem drives an AT-command LoRaWAN modem (LoRa-E5 style) over a serial port.
// The MAC runs inside the modem; this adapter only tracks its op mode.
type Modem struct {
	port         serialport.Port
	rejoinDelay  time.Duration
	rejoinSignal chan struct{}

	writeMu sync.Mutex

	mu      sync.Mutex
	mode    OpMode
	event   string
	port0   uint8 // last port sent with AT+PORT
	pending []byte
	pendTo  uint8
}

// NewModem wraps an open port. The modem starts in joining mode; Run sends the join.
func NewModem(p serialport.Port, rejoinDelay time.Duration) *Modem {
	if rejoinDelay <= 0 {
		rejoinDelay = 10 * time.Second
	}
	return &Modem{
		port:         p,
		rejoinDelay:  rejoinDelay,
		rejoinSignal: make(chan struct{}, 1),
		mode:         OpJoining,
		event:        "JOINING",
	}
}

// Run issues the initial join and then consumes modem output until ctx is done.
func (m *Modem) Run(ctx context.Context) error {
	if err := m.command("AT+JOIN"); err != nil {
		return fmt.Errorf("radio modem: join: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- serialport.ReadLines(ctx, m.port, m.handleLine)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("radio modem: read: %w", err)
			}
			return nil
		case <-m.rejoinSignal:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.rejoinDelay):
			}
			if err := m.command("AT+JOIN"); err != nil {
				log.Printf("radio modem: rejoin command failed: %v", err)
			}
		}
	}
}

// Submit queues one uplink. While joining the payload is held, newest
// wins, and sent as soon as the join completes.
func (m *Modem) Submit(port uint8, payload []byte) error {
	m.mu.Lock()
	if m.mode.Busy() {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.mode.Joining() {
		// queued only: the channel is not busy until the frame goes out
		m.mode |= OpTxData
		m.pending = append([]byte(nil), payload...)
		m.pendTo = port
		m.event = "TX queued"
		m.mu.Unlock()
		return nil
	}
	m.mode |= OpTxData | OpTxRxPend
	m.mu.Unlock()

	if err := m.send(port, payload); err != nil {
		m.mu.Lock()
		m.mode &^= OpTxData | OpTxRxPend
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Modem) OpMode() OpMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Modem) Event() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.event
}

func (m *Modem) send(port uint8, payload []byte) error {
	m.mu.Lock()
	needPort := m.port0 != port
	m.mu.Unlock()

	if needPort {
		if err := m.command(fmt.Sprintf("AT+PORT=%d", port)); err != nil {
			return fmt.Errorf("radio modem: set port: %w", err)
		}
		m.mu.Lock()
		m.port0 = port
		m.mu.Unlock()
	}
	cmd := fmt.Sprintf("AT+MSGHEX=\"%s\"", strings.ToUpper(hex.EncodeToString(payload)))
	if err := m.command(cmd); err != nil {
		return fmt.Errorf("radio modem: send: %w", err)
	}
	return nil
}

func (m *Modem) command(cmd string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_, err := m.port.Write([]byte(cmd + "\r\n"))
	return err
}

// handleLine applies one line of modem output to the op mode.
func (m *Modem) handleLine(line string) {
	var (
		flush   []byte
		flushTo uint8
		rejoin  bool
	)

	m.mu.Lock()
	switch {
	case strings.HasPrefix(line, "+JOIN: Network joined"):
		m.mode &^= OpJoining | OpRejoin
		m.event = "JOINED"
		if m.pending != nil {
			flush, flushTo = m.pending, m.pendTo
			m.pending = nil
			m.mode |= OpTxRxPend
		}

	case strings.HasPrefix(line, "+JOIN: Join failed"):
		m.mode = (m.mode &^ OpJoining) | OpRejoin
		m.event = "JOIN failed"
		rejoin = true

	case strings.HasPrefix(line, "+JOIN:"):
		// progress lines (Start, NORMAL, NetID, Done)

	case strings.HasPrefix(line, "+MSGHEX: Done"):
		m.mode &^= OpTxData | OpTxRxPend
		m.event = "TX done"

	case strings.HasPrefix(line, "+MSGHEX: Please join network first"):
		m.mode |= OpRejoin
		m.event = "TX not joined"
		m.pending = nil
		m.mode &^= OpTxData | OpTxRxPend
		rejoin = true

	case strings.HasPrefix(line, "+MSGHEX: LoRaWAN modem is busy"):
		m.event = "TX busy"

	case strings.HasPrefix(line, "+MSGHEX: RXWIN"):
		m.event = "RX window"

	case strings.HasPrefix(line, "+MSGHEX: Start"):
		m.event = "TX start"
	}
	m.mu.Unlock()

	if flush != nil {
		if err := m.send(flushTo, flush); err != nil {
			log.Printf("radio modem: queued uplink failed: %v", err)
			m.mu.Lock()
			m.mode &^= OpTxData | OpTxRxPend
			m.mu.Unlock()
		}
	}
	if rejoin {
		select {
		case m.rejoinSignal <- struct{}{}:
		default:
		}
	}
}
