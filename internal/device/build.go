// internal/device/build.go
package device

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/capture"
	"github.com/tamzrod/paxcounter/internal/clock"
	cfg "github.com/tamzrod/paxcounter/internal/config"
	"github.com/tamzrod/paxcounter/internal/feedback"
	"github.com/tamzrod/paxcounter/internal/history"
	"github.com/tamzrod/paxcounter/internal/mirror"
	mmodbus "github.com/tamzrod/paxcounter/internal/mirror/modbus"
	"github.com/tamzrod/paxcounter/internal/radio"
	"github.com/tamzrod/paxcounter/internal/restart"
	"github.com/tamzrod/paxcounter/internal/salt"
	"github.com/tamzrod/paxcounter/internal/scan"
	"github.com/tamzrod/paxcounter/internal/serialport"
	"github.com/tamzrod/paxcounter/internal/status"
	"github.com/tamzrod/paxcounter/internal/trigger"
	"github.com/tamzrod/paxcounter/internal/uplink"
)

// simJoinDelay is how long the simulated engine takes to join.
const simJoinDelay = 3 * time.Second

// purgeTimeout bounds the history purge done on an external trigger.
const purgeTimeout = 5 * time.Second

func nopClose() error { return nil }

// closers runs every close func and keeps the last error.
type closers []func() error

func (cs closers) closeAll() error {
	var last error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i](); err != nil {
			last = err
		}
	}
	return last
}

// BuildEngine constructs the protocol engine for the configured backend.
func BuildEngine(c cfg.RadioConfig, clk clock.Clock) (radio.Engine, func() error, error) {
	switch c.Backend {
	case cfg.RadioBackendSim:
		e := radio.NewSim(radio.SimConfig{
			JoinDelay: simJoinDelay,
			Airtime:   time.Duration(c.AirtimeMs) * time.Millisecond,
		}, clk)
		return e, nopClose, nil

	case cfg.RadioBackendModem:
		p, err := serialport.Open(c.Port, serialport.Options{BaudRate: c.BaudRate})
		if err != nil {
			return nil, nil, err
		}
		return radio.NewModem(p, 0), p.Close, nil

	default:
		return nil, nil, fmt.Errorf("device: unknown radio backend %q", c.Backend)
	}
}

// BuildCapture constructs the channel tuner and the observation source.
// A disabled backend yields a no-op tuner and a nil source.
func BuildCapture(c cfg.CaptureConfig) (capture.Tuner, Source, func() error, error) {
	switch c.Backend {
	case cfg.CaptureBackendDisabled:
		return capture.Disabled{}, nil, nopClose, nil

	case cfg.CaptureBackendSerial:
		p, err := serialport.Open(c.Port, serialport.Options{BaudRate: c.BaudRate})
		if err != nil {
			return nil, nil, nil, err
		}
		s := capture.NewSniffer(p)
		return s, s, s.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("device: unknown capture backend %q", c.Backend)
	}
}

// BuildFeedback selects LED and display drivers. Console drivers write to w.
func BuildFeedback(c *cfg.Config, w io.Writer) (*feedback.LED, *feedback.Display) {
	var ledDrv feedback.LEDDriver = feedback.NopLED{}
	if c.LED.Backend == cfg.FeedbackBackendConsole {
		ledDrv = feedback.ConsoleLED{W: w}
	}

	var dispDrv feedback.DisplayDriver = feedback.NopDisplay{}
	if c.Display.Backend == cfg.FeedbackBackendConsole {
		dispDrv = feedback.NewConsoleDisplay(w)
	}

	refresh := time.Duration(c.Display.RefreshMs) * time.Millisecond
	return feedback.NewLED(ledDrv), feedback.NewDisplay(dispDrv, refresh)
}

// BuildRecorders creates the optional uplink sinks. The history DB is
// also returned (nil when disabled) so the trigger can purge it.
func BuildRecorders(c *cfg.Config) ([]uplink.Recorder, *history.DB, func() error, error) {
	var (
		recs []uplink.Recorder
		cs   closers
		db   *history.DB
	)

	if c.Mirror.Enabled {
		cli, err := mmodbus.NewEndpointClient(mmodbus.Config{
			Endpoint: c.Mirror.Endpoint,
			Timeout:  time.Duration(c.Mirror.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		cs = append(cs, cli.Close)
		recs = append(recs, mirror.New(mirror.Plan{
			UnitID:     c.Mirror.UnitID,
			BaseSlot:   c.Mirror.BaseSlot,
			DeviceName: c.Mirror.DeviceName,
		}, cli))
	}

	if c.History.Enabled {
		var err error
		db, err = history.Open(c.History.Path)
		if err != nil {
			_ = cs.closeAll()
			return nil, nil, nil, err
		}
		cs = append(cs, db.Close)
		recs = append(recs, db)
		log.Printf("device: history enabled (path=%s boot=%s)", c.History.Path, db.BootID())
	}

	return recs, db, cs.closeAll, nil
}

// Assemble wires a full runner from a validated, normalized config.
// The returned close func releases ports and the history DB.
func Assemble(c *cfg.Config, r restart.Restarter, trig *trigger.Flag, console io.Writer) (*Runner, func() error, error) {
	var cs closers
	fail := func(err error) (*Runner, func() error, error) {
		_ = cs.closeAll()
		return nil, nil, err
	}

	clk := clock.Wall

	engine, closeEngine, err := BuildEngine(c.Radio, clk)
	if err != nil {
		return fail(fmt.Errorf("radio: %w", err))
	}
	cs = append(cs, closeEngine)

	tuner, source, closeCapture, err := BuildCapture(c.Capture)
	if err != nil {
		return fail(fmt.Errorf("capture: %w", err))
	}
	cs = append(cs, closeCapture)

	recs, db, closeRecs, err := BuildRecorders(c)
	if err != nil {
		return fail(fmt.Errorf("recorders: %w", err))
	}
	cs = append(cs, closeRecs)

	store := aggregate.New()
	sl := salt.New()
	board := status.NewBoard()
	filter := capture.NewFilter(store, sl, c.Scan.RSSILimit, c.BLEEnabled())

	gate := uplink.NewGate(uplink.Config{
		Port:         c.Uplink.Port,
		MaxRetry:     c.Uplink.MaxLoraRetry,
		PollInterval: time.Duration(c.Uplink.PollIntervalMs) * time.Millisecond,
		Cumulative:   c.Scan.Cumulative(),
	}, engine, store, sl, board, r, clk, recs...)

	sched := scan.New(scan.Config{
		ScanCycle:    c.Scan.ScanCycle,
		ChannelCycle: c.Scan.ChannelCycle,
		MaxChannel:   c.Scan.MaxChannel,
		Verbose:      c.Device.Verbose,
	}, tuner, store, gate, board, clk)

	led, display := BuildFeedback(c, console)

	onTrigger := func() {
		if db != nil {
			ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
			if err := db.Purge(ctx); err != nil {
				log.Printf("device: history purge failed: %v", err)
			}
			cancel()
		}
		r.Restart("external trigger")
	}

	runner := New(Settings{
		UplinkPort: c.Uplink.Port,
		RSSILimit:  c.Scan.RSSILimit,
		BLEEnabled: c.BLEEnabled(),
		ScreenOn:   c.ScreenOn(),
	}, Parts{
		Engine:    engine,
		Store:     store,
		Board:     board,
		Scheduler: sched,
		Source:    source,
		Filter:    filter,
		LED:       led,
		Display:   display,
		Trigger:   trig,
		OnTrigger: onTrigger,
		Clock:     clk,
	})

	return runner, cs.closeAll, nil
}
