// internal/scan/scheduler.go
package scan

import (
	"context"
	"time"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/capture"
	"github.com/tamzrod/paxcounter/internal/clock"
	"github.com/tamzrod/paxcounter/internal/monitoring"
	"github.com/tamzrod/paxcounter/internal/status"
)

// Config is the minimal runtime config the scheduler needs.
type Config struct {
	// ScanCycle is the scan duration in units of 2 seconds.
	ScanCycle int
	// ChannelCycle is the hop period in units of 10 milliseconds.
	ChannelCycle int
	MaxChannel   int
	Verbose      bool
}

// HopInterval is the sleep between channel-hop ticks.
func (c Config) HopInterval() time.Duration {
	if c.ChannelCycle <= 0 {
		return 0
	}
	return time.Duration(c.ChannelCycle) * 10 * time.Millisecond
}

// Gate receives control when a cycle completes.
type Gate interface {
	CompleteCycle(ctx context.Context, c aggregate.Counts) error
}

// Counter supplies the aggregate snapshot handed to the gate.
type Counter interface {
	Counts() aggregate.Counts
}

// Threshold is the number of hop ticks in one scan cycle:
// (100 / channelCycle) * (scanCycle * 2) + 1, integer division.
// Degenerate inputs yield 0, which completes a cycle on every tick.
func Threshold(channelCycle, scanCycle int) int {
	if channelCycle <= 0 || scanCycle <= 0 {
		return 0
	}
	return (100/channelCycle)*(scanCycle*2) + 1
}

// NextChannel rotates 1..max. It never returns 0.
func NextChannel(ch uint8, max int) uint8 {
	if max < 1 {
		return 1
	}
	return uint8(int(ch)%max + 1)
}

// Scheduler is the scan-cycle loop. All state is owned by the goroutine
// running Run; only the channel is published, via the board.
type Scheduler struct {
	cfg       Config
	threshold int
	tuner     capture.Tuner
	counter   Counter
	gate      Gate
	board     *status.Board
	clock     clock.Clock

	channel uint8
	ticks   int
}

func New(cfg Config, tuner capture.Tuner, counter Counter, gate Gate, board *status.Board, c clock.Clock) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		threshold: Threshold(cfg.ChannelCycle, cfg.ScanCycle),
		tuner:     tuner,
		counter:   counter,
		gate:      gate,
		board:     board,
		clock:     c,
	}
}

// Threshold returns the tick count that completes a cycle.
func (s *Scheduler) Threshold() int { return s.threshold }

// Channel returns the channel set by the last tick (0 right after a cycle).
func (s *Scheduler) Channel() uint8 { return s.channel }

// Tick performs one channel hop and, at the threshold, one blocking uplink
// handoff. It reports whether a cycle completed.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	s.ticks++

	s.channel = NextChannel(s.channel, s.cfg.MaxChannel)
	if err := s.tuner.SetChannel(s.channel); err != nil {
		monitoring.Logf("scan: set channel failed (ch=%d): %v", s.channel, err)
	}
	s.board.SetChannel(s.channel)
	if s.cfg.Verbose {
		monitoring.Logf("scan: channel %d (tick=%d/%d)", s.channel, s.ticks, s.threshold)
	}

	completed := false
	if s.ticks >= s.threshold {
		s.ticks = 0
		s.channel = 0
		s.board.SetChannel(0)
		completed = true

		if err := s.gate.CompleteCycle(ctx, s.counter.Counts()); err != nil {
			return true, err
		}
	}

	if err := s.clock.Sleep(ctx, s.cfg.HopInterval()); err != nil {
		return completed, err
	}
	return completed, nil
}

// Run ticks until ctx is done or the gate escalates.
func (s *Scheduler) Run(ctx context.Context) error {
	monitoring.Logf("scan: starting (threshold=%d ticks, hop=%s, channels=%d)",
		s.threshold, s.cfg.HopInterval(), s.cfg.MaxChannel)
	for {
		if _, err := s.Tick(ctx); err != nil {
			return err
		}
	}
}
