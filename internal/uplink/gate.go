// internal/uplink/gate.go
package uplink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/clock"
	"github.com/tamzrod/paxcounter/internal/payload"
	"github.com/tamzrod/paxcounter/internal/radio"
	"github.com/tamzrod/paxcounter/internal/restart"
	"github.com/tamzrod/paxcounter/internal/status"
)

// ErrTransmitterStuck is returned after the liveness guard fired.
var ErrTransmitterStuck = errors.New("uplink: transmitter stuck, restart requested")

// Engine is the part of the protocol engine the gate drives.
type Engine interface {
	Submit(port uint8, payload []byte) error
	OpMode() radio.OpMode
}

// Job is one uplink request built from a completed cycle.
type Job struct {
	Cycle    uint32
	At       time.Time
	Counts   aggregate.Counts
	Payload  []byte
	Accepted bool
}

// Recorder receives every job after submission. Delivery-only:
// errors are logged by the gate and never block the cycle.
type Recorder interface {
	Record(ctx context.Context, j Job) error
}

// Config is the minimal runtime config the gate needs.
type Config struct {
	Port         uint8
	MaxRetry     int
	PollInterval time.Duration
	Cumulative   bool
}

// Gate serializes uplinks: one job per completed cycle, and the caller
// stays blocked until the engine frees the channel.
type Gate struct {
	cfg       Config
	engine    Engine
	store     Resetter
	salt      Rotator
	board     *status.Board
	restarter restart.Restarter
	clock     clock.Clock
	recorders []Recorder
}

func NewGate(
	cfg Config,
	engine Engine,
	store Resetter,
	s Rotator,
	board *status.Board,
	r restart.Restarter,
	c clock.Clock,
	recorders ...Recorder,
) *Gate {
	if cfg.MaxRetry < 1 {
		cfg.MaxRetry = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Gate{
		cfg:       cfg,
		engine:    engine,
		store:     store,
		salt:      s,
		board:     board,
		restarter: r,
		clock:     c,
		recorders: recorders,
	}
}

// CompleteCycle submits one job for counts, applies the reset policy if
// the job was accepted, then waits for the channel to free.
//
// The reset happens after submission and before polling, so observations
// arriving during the wait land in the next cycle.
func (g *Gate) CompleteCycle(ctx context.Context, counts aggregate.Counts) error {
	job := Job{
		Cycle:   g.board.CompleteCycle(),
		At:      g.clock.Now(),
		Counts:  counts,
		Payload: payload.Encode(counts),
	}

	if err := g.engine.Submit(g.cfg.Port, job.Payload); err != nil {
		log.Printf("uplink: job not accepted (cycle=%d): %v", job.Cycle, err)
	} else {
		job.Accepted = true
		if ApplyPolicy(g.cfg.Cumulative, g.store, g.salt) {
			log.Printf("uplink: cycle %d sent total=%d wifi=%d ble=%d, counters reset",
				job.Cycle, counts.Total, counts.Wifi, counts.BLE)
		} else {
			log.Printf("uplink: cycle %d sent total=%d wifi=%d ble=%d (cumulative)",
				job.Cycle, counts.Total, counts.Wifi, counts.BLE)
		}
	}

	for _, r := range g.recorders {
		if err := r.Record(ctx, job); err != nil {
			log.Printf("uplink: record failed (cycle=%d): %v", job.Cycle, err)
		}
	}

	return g.waitFree(ctx)
}

// waitFree polls the busy flag. The MaxRetry-th consecutive busy poll
// triggers the restart; nothing runs after that.
func (g *Gate) waitFree(ctx context.Context) error {
	retries := 0
	for g.engine.OpMode().Busy() {
		if retries == 0 {
			g.board.SetWait(status.TextLoRaWait)
		}
		retries++
		if retries >= g.cfg.MaxRetry {
			reason := fmt.Sprintf("payload not sent after %d polls, resetting and rejoining", retries)
			log.Printf("uplink: %s", reason)
			g.restarter.Restart(reason)
			return ErrTransmitterStuck
		}
		if err := g.clock.Sleep(ctx, g.cfg.PollInterval); err != nil {
			return err
		}
	}
	if retries > 0 {
		g.board.SetWait(status.TextNone)
	}
	return nil
}
