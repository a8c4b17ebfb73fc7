// internal/device/runner.go
package device

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/capture"
	"github.com/tamzrod/paxcounter/internal/clock"
	"github.com/tamzrod/paxcounter/internal/feedback"
	"github.com/tamzrod/paxcounter/internal/payload"
	"github.com/tamzrod/paxcounter/internal/radio"
	"github.com/tamzrod/paxcounter/internal/status"
	"github.com/tamzrod/paxcounter/internal/trigger"
)

// RadioSampleInterval is how often the radio context samples the engine's
// op mode into the LED pattern slot.
const RadioSampleInterval = 10 * time.Millisecond

// Loop is a long-running context such as the scan scheduler.
type Loop interface {
	Run(ctx context.Context) error
}

// Source feeds raw observations into a filter until ctx is done.
type Source interface {
	Run(ctx context.Context, f *capture.Filter) error
}

// Settings are the read-only values the runner renders or sends.
type Settings struct {
	UplinkPort uint8
	RSSILimit  int
	BLEEnabled bool
	ScreenOn   bool
	// Tick is the main feedback loop period.
	Tick time.Duration
}

// Parts are the collaborators wired by the caller. Source and OnTrigger
// are optional.
type Parts struct {
	Engine    radio.Engine
	Store     *aggregate.Store
	Board     *status.Board
	Scheduler Loop
	Source    Source
	Filter    *capture.Filter
	LED       *feedback.LED
	Display   *feedback.Display
	Trigger   *trigger.Flag
	OnTrigger func()
	Clock     clock.Clock
}

// Runner owns the execution contexts:
//
//	radio    engine.Run plus the op-mode sampler
//	scan     the scan scheduler (blocks inside the uplink gate)
//	capture  the observation source, if any
//	main     trigger handling and the feedback machines
type Runner struct {
	set Settings
	p   Parts

	epoch   time.Time
	pattern feedback.PatternSlot
}

func New(set Settings, p Parts) *Runner {
	if set.Tick <= 0 {
		set.Tick = 10 * time.Millisecond
	}
	if p.Clock == nil {
		p.Clock = clock.Wall
	}
	return &Runner{
		set:   set,
		p:     p,
		epoch: p.Clock.Now(),
	}
}

// Run starts every context and blocks until ctx is done or one of them
// fails. A cancelled ctx is not an error.
func (r *Runner) Run(ctx context.Context) error {
	r.p.Board.SetWait(status.TextJoinWait)
	r.kickoff()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.p.Engine.Run(gctx) })
	g.Go(func() error { return r.sampleRadio(gctx) })
	g.Go(func() error { return r.p.Scheduler.Run(gctx) })
	if r.p.Source != nil {
		g.Go(func() error { return r.p.Source.Run(gctx, r.p.Filter) })
	}
	g.Go(func() error { return r.mainLoop(gctx) })

	err := g.Wait()
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return nil
	}
	return err
}

// kickoff queues an all-zero payload so the engine starts joining
// straight away. The engine holds it until the join completes.
func (r *Runner) kickoff() {
	p := payload.Encode(aggregate.Counts{})
	if err := r.p.Engine.Submit(r.set.UplinkPort, p); err != nil {
		log.Printf("device: kickoff uplink rejected: %v", err)
	}
}

func (r *Runner) sampleRadio(ctx context.Context) error {
	for {
		r.SampleRadio()
		if err := r.p.Clock.Sleep(ctx, RadioSampleInterval); err != nil {
			return err
		}
	}
}

// SampleRadio publishes the LED pattern for the engine's current op mode
// and drops the join wait text once the engine has joined.
func (r *Runner) SampleRadio() {
	mode := r.p.Engine.OpMode()
	r.pattern.Store(feedback.PatternFor(mode))
	if !mode.Joining() {
		r.p.Board.ClearWait(status.TextJoinWait)
	}
}

func (r *Runner) mainLoop(ctx context.Context) error {
	for {
		r.Step(r.p.Clock.Now())
		if err := r.p.Clock.Sleep(ctx, r.set.Tick); err != nil {
			return err
		}
	}
}

// Step is one pass of the main context. It never blocks beyond the
// feedback drivers' writes.
func (r *Runner) Step(now time.Time) {
	if r.p.Trigger != nil && r.p.Trigger.Take() {
		log.Printf("device: external trigger")
		if r.p.OnTrigger != nil {
			r.p.OnTrigger()
		}
		return
	}

	if r.p.Display != nil {
		r.p.Display.Update(now, r.View())
	}
	if r.p.LED != nil {
		r.p.LED.Update(clock.Millis(r.epoch, now), r.pattern.Load())
	}
}

// View collects what the display shows.
func (r *Runner) View() feedback.View {
	c := r.p.Store.Counts()
	return feedback.View{
		Total:      c.Total,
		Wifi:       c.Wifi,
		BLE:        c.BLE,
		BLEEnabled: r.set.BLEEnabled,
		Channel:    r.p.Board.Channel(),
		RSSILimit:  r.set.RSSILimit,
		Wait:       r.p.Board.Wait(),
		Event:      r.p.Engine.Event(),
		ScreenOn:   r.set.ScreenOn,
	}
}
