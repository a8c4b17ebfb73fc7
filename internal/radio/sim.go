// internal/radio/sim.go
package radio

import (
	"context"
	"sync"
	"time"

	"github.com/tamzrod/paxcounter/internal/clock"
)

// SimConfig tunes the simulated engine.
type SimConfig struct {
	JoinDelay time.Duration
	Airtime   time.Duration
	Step      time.Duration
}

// Sim is an in-process engine used when no modem is attached.
// It joins after JoinDelay and holds the busy flag for Airtime per uplink.
// A frame submitted while joining is only queued (OpTxData); it goes on
// air, raising OpTxRxPend, once the join completes.
type Sim struct {
	cfg   SimConfig
	clock clock.Clock

	mu       sync.Mutex
	mode     OpMode
	event    string
	joinAt   time.Time
	txDoneAt time.Time
	queued   []byte
	sent     [][]byte
}

func NewSim(cfg SimConfig, c clock.Clock) *Sim {
	if cfg.Step <= 0 {
		cfg.Step = 10 * time.Millisecond
	}
	return &Sim{
		cfg:    cfg,
		clock:  c,
		mode:   OpJoining,
		event:  "JOINING",
		joinAt: c.Now().Add(cfg.JoinDelay),
	}
}

// Run advances the engine once per Step.
func (s *Sim) Run(ctx context.Context) error {
	for {
		s.Poll()
		if err := s.clock.Sleep(ctx, s.cfg.Step); err != nil {
			return err
		}
	}
}

// Poll advances internal timers to the clock's current time.
func (s *Sim) Poll() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode.Joining() && !now.Before(s.joinAt) {
		s.mode &^= OpJoining | OpRejoin
		s.event = "JOINED"
		if s.queued != nil {
			s.transmit(s.joinAt)
		}
	}
	if s.mode.Busy() && !now.Before(s.txDoneAt) {
		s.mode &^= OpTxData | OpTxRxPend
		s.event = "TX done"
	}
}

// Submit queues one uplink. While joining a newer frame replaces the
// queued one; only a frame on air makes the engine busy.
func (s *Sim) Submit(port uint8, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode.Busy() {
		return ErrBusy
	}
	s.queued = append([]byte(nil), payload...)
	s.mode |= OpTxData
	if s.mode.Joining() {
		s.event = "TX queued"
		return nil
	}
	s.transmit(s.clock.Now())
	return nil
}

// transmit puts the queued frame on air at start. Caller holds mu.
func (s *Sim) transmit(start time.Time) {
	s.sent = append(s.sent, s.queued)
	s.queued = nil
	s.mode |= OpTxData | OpTxRxPend
	s.txDoneAt = start.Add(s.cfg.Airtime)
	s.event = "TX start"
}

func (s *Sim) OpMode() OpMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Sim) Event() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.event
}

// Sent returns every frame that went on air.
func (s *Sim) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}
