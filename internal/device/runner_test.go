package device

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/capture"
	"github.com/tamzrod/paxcounter/internal/clock"
	"github.com/tamzrod/paxcounter/internal/feedback"
	"github.com/tamzrod/paxcounter/internal/radio"
	"github.com/tamzrod/paxcounter/internal/salt"
	"github.com/tamzrod/paxcounter/internal/status"
	"github.com/tamzrod/paxcounter/internal/trigger"
	"github.com/tamzrod/paxcounter/internal/uplink"
)

// ---- fakes ----

type submit struct {
	port    uint8
	payload []byte
}

type fakeEngine struct {
	mode atomic.Uint32

	mu      sync.Mutex
	submits []submit
	runErr  error
}

func (e *fakeEngine) setMode(m radio.OpMode) { e.mode.Store(uint32(m)) }

func (e *fakeEngine) Run(ctx context.Context) error {
	if e.runErr != nil {
		return e.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (e *fakeEngine) Submit(port uint8, p []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submits = append(e.submits, submit{port: port, payload: append([]byte(nil), p...)})
	return nil
}

func (e *fakeEngine) OpMode() radio.OpMode { return radio.OpMode(e.mode.Load()) }
func (e *fakeEngine) Event() string        { return "JOINED" }

func (e *fakeEngine) submitted() []submit {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]submit(nil), e.submits...)
}

type fakeLoop struct{ err error }

func (l fakeLoop) Run(ctx context.Context) error {
	if l.err != nil {
		return l.err
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeSource struct{ obs []capture.Observation }

func (s fakeSource) Run(ctx context.Context, f *capture.Filter) error {
	for _, o := range s.obs {
		f.Observe(o)
	}
	<-ctx.Done()
	return ctx.Err()
}

type recDisplay struct {
	frames []feedback.Frame
	saves  []bool
}

func (d *recDisplay) Render(f feedback.Frame) error { d.frames = append(d.frames, f); return nil }
func (d *recDisplay) SetPowerSave(on bool) error    { d.saves = append(d.saves, on); return nil }

type recLED struct{ colors []feedback.Color }

func (l *recLED) SetLED(on bool, c feedback.Color) error {
	l.colors = append(l.colors, c)
	return nil
}

type fixture struct {
	engine  *fakeEngine
	store   *aggregate.Store
	board   *status.Board
	display *recDisplay
	led     *recLED
	trig    *trigger.Flag
	fired   int
	clock   *clock.Fake
}

func newFixture(sched Loop, src Source) (*fixture, *Runner) {
	f := &fixture{
		engine:  &fakeEngine{},
		store:   aggregate.New(),
		board:   status.NewBoard(),
		display: &recDisplay{},
		led:     &recLED{},
		trig:    trigger.New(),
		clock:   clock.NewFake(time.Unix(1_700_000_000, 0)),
	}
	f.engine.setMode(radio.OpJoining)

	filter := capture.NewFilter(f.store, salt.NewWithSource(func() uint16 { return 7 }), 0, true)
	r := New(Settings{
		UplinkPort: 1,
		RSSILimit:  -80,
		BLEEnabled: true,
		ScreenOn:   true,
		Tick:       time.Millisecond,
	}, Parts{
		Engine:    f.engine,
		Store:     f.store,
		Board:     f.board,
		Scheduler: sched,
		Source:    src,
		Filter:    filter,
		LED:       feedback.NewLED(f.led),
		Display:   feedback.NewDisplay(f.display, time.Second),
		Trigger:   f.trig,
		OnTrigger: func() { f.fired++ },
		Clock:     f.clock,
	})
	return f, r
}

// ---- Run ----

func TestRun_KickoffAndJoinWait(t *testing.T) {
	f, r := newFixture(fakeLoop{}, nil)
	r.p.Clock = clock.Wall

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Run(ctx))

	subs := f.engine.submitted()
	require.Len(t, subs, 1)
	assert.Equal(t, uint8(1), subs[0].port)
	assert.Equal(t, []byte{0, 0, 0, 0}, subs[0].payload)

	// still joining, so the join text stays
	assert.Equal(t, status.TextJoinWait, f.board.Wait())
}

func TestRun_ReturnsSchedulerEscalation(t *testing.T) {
	_, r := newFixture(fakeLoop{err: uplink.ErrTransmitterStuck}, nil)
	r.p.Clock = clock.Wall

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, uplink.ErrTransmitterStuck)
}

func TestRun_ReturnsEngineFailure(t *testing.T) {
	f, r := newFixture(fakeLoop{}, nil)
	r.p.Clock = clock.Wall
	f.engine.runErr = errors.New("serial port gone")

	err := r.Run(context.Background())
	assert.EqualError(t, err, "serial port gone")
}

func TestRun_SourceFeedsStore(t *testing.T) {
	src := fakeSource{obs: []capture.Observation{
		{Category: aggregate.CategoryWifi, ID: []byte{1, 2, 3}, RSSI: -50},
		{Category: aggregate.CategoryWifi, ID: []byte{1, 2, 3}, RSSI: -50},
		{Category: aggregate.CategoryBLE, ID: []byte{9}, RSSI: -90}, // beyond range
	}}
	f, r := newFixture(fakeLoop{}, src)
	r.p.Clock = clock.Wall

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, aggregate.Counts{Total: 1, Wifi: 1}, f.store.Counts())
}

// ---- radio sampling ----

func TestSampleRadio_ClearsJoinWaitOnceJoined(t *testing.T) {
	f, r := newFixture(fakeLoop{}, nil)
	f.board.SetWait(status.TextJoinWait)

	r.SampleRadio()
	assert.Equal(t, status.TextJoinWait, f.board.Wait())
	assert.Equal(t, feedback.PatternJoin, r.pattern.Load())

	f.engine.setMode(radio.OpTxRxPend)
	r.SampleRadio()
	assert.Equal(t, status.TextNone, f.board.Wait())
	assert.Equal(t, feedback.PatternTx, r.pattern.Load())
}

func TestSampleRadio_LeavesGateTextAlone(t *testing.T) {
	f, r := newFixture(fakeLoop{}, nil)
	f.engine.setMode(radio.OpTxRxPend)
	f.board.SetWait(status.TextLoRaWait)

	r.SampleRadio()
	assert.Equal(t, status.TextLoRaWait, f.board.Wait())
}

// ---- main step ----

func TestStep_RendersAndBlinks(t *testing.T) {
	f, r := newFixture(fakeLoop{}, nil)
	f.board.SetWait(status.TextJoinWait)
	f.board.SetChannel(6)
	f.store.Add(aggregate.CategoryBLE, 42)
	r.SampleRadio()

	r.Step(f.clock.Now())

	require.Len(t, f.display.frames, 1)
	frame := f.display.frames[0]
	assert.Equal(t, "PAX:1", strings.TrimSpace(frame[0]))
	assert.Equal(t, "BLTH: 1", strings.TrimSpace(frame[3]))
	assert.Equal(t, "WIFI: 0    ch:06", frame[4])
	assert.Equal(t, "RLIM: -80", strings.TrimSpace(frame[5]))
	assert.Equal(t, status.TextJoinWait, strings.TrimSpace(frame[6]))
	assert.Equal(t, "JOINED", strings.TrimSpace(frame[7]))
	assert.Equal(t, []bool{false}, f.display.saves)

	require.Equal(t, []feedback.Color{feedback.ColorYellow}, f.led.colors)

	// 30ms later: led edge, no re-render
	r.Step(f.clock.Now().Add(30 * time.Millisecond))
	assert.Len(t, f.display.frames, 1)
	assert.Equal(t, []feedback.Color{feedback.ColorYellow, feedback.ColorNone}, f.led.colors)
}

func TestStep_TriggerPreemptsFeedback(t *testing.T) {
	f, r := newFixture(fakeLoop{}, nil)

	f.trig.Fire()
	r.Step(f.clock.Now())
	assert.Equal(t, 1, f.fired)
	assert.Empty(t, f.display.frames)

	r.Step(f.clock.Now())
	assert.Equal(t, 1, f.fired)
	assert.Len(t, f.display.frames, 1)
}
