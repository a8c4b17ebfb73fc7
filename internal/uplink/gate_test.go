package uplink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/paxcounter/internal/aggregate"
	"github.com/tamzrod/paxcounter/internal/clock"
	"github.com/tamzrod/paxcounter/internal/radio"
	"github.com/tamzrod/paxcounter/internal/restart"
	"github.com/tamzrod/paxcounter/internal/salt"
	"github.com/tamzrod/paxcounter/internal/status"
)

// ---- fake engine ----

type fakeEngine struct {
	rejectErr error
	// busyPolls is how many OpMode calls report busy after a submit.
	// Negative means busy forever.
	busyPolls int

	submitted [][]byte
	polls     int
	onPoll    func(n int)
}

func (f *fakeEngine) Submit(port uint8, p []byte) error {
	if f.rejectErr != nil {
		return f.rejectErr
	}
	f.submitted = append(f.submitted, p)
	return nil
}

func (f *fakeEngine) OpMode() radio.OpMode {
	f.polls++
	if f.onPoll != nil {
		f.onPoll(f.polls)
	}
	if f.busyPolls < 0 || f.polls <= f.busyPolls {
		return radio.OpTxData | radio.OpTxRxPend
	}
	return 0
}

// ---- fake recorder ----

type fakeRecorder struct {
	jobs []Job
	err  error
}

func (r *fakeRecorder) Record(_ context.Context, j Job) error {
	r.jobs = append(r.jobs, j)
	return r.err
}

// ---- harness ----

type harness struct {
	engine   *fakeEngine
	store    *aggregate.Store
	salt     *salt.Salt
	board    *status.Board
	restarts *restart.Recorder
	clock    *clock.Fake
	rec      *fakeRecorder
	gate     *Gate
}

func newHarness(cfg Config, e *fakeEngine) *harness {
	v := uint16(100)
	h := &harness{
		engine:   e,
		store:    aggregate.New(),
		salt:     salt.NewWithSource(func() uint16 { v++; return v }),
		board:    status.NewBoard(),
		restarts: &restart.Recorder{},
		clock:    clock.NewFake(time.Unix(0, 0)),
		rec:      &fakeRecorder{},
	}
	h.gate = NewGate(cfg, e, h.store, h.salt, h.board, h.restarts, h.clock, h.rec)
	return h
}

func baseConfig() Config {
	return Config{Port: 1, MaxRetry: 5, PollInterval: time.Second}
}

// ---- tests ----

func TestApplyPolicy(t *testing.T) {
	v := uint16(1)
	s := salt.NewWithSource(func() uint16 { v++; return v })
	store := aggregate.New()
	store.Add(aggregate.CategoryWifi, 1)

	before := s.Value()
	assert.False(t, ApplyPolicy(true, store, s))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, before, s.Value())

	assert.True(t, ApplyPolicy(false, store, s))
	assert.Equal(t, 0, store.Len())
	assert.NotEqual(t, before, s.Value())
}

func TestCompleteCycle_PerCycleResetsAndRotates(t *testing.T) {
	h := newHarness(baseConfig(), &fakeEngine{})
	h.store.Add(aggregate.CategoryWifi, 1)
	h.store.Add(aggregate.CategoryBLE, 2)
	saltBefore := h.salt.Value()

	err := h.gate.CompleteCycle(context.Background(), h.store.Counts())
	require.NoError(t, err)

	require.Len(t, h.engine.submitted, 1)
	assert.Equal(t, []byte{0, 1, 0, 1}, h.engine.submitted[0])
	assert.Equal(t, 0, h.store.Len())
	assert.NotEqual(t, saltBefore, h.salt.Value())
	assert.Equal(t, status.TextNone, h.board.Wait())
	assert.Empty(t, h.restarts.Reasons())

	require.Len(t, h.rec.jobs, 1)
	assert.True(t, h.rec.jobs[0].Accepted)
	assert.Equal(t, uint32(1), h.rec.jobs[0].Cycle)
}

func TestCompleteCycle_CumulativeKeepsState(t *testing.T) {
	cfg := baseConfig()
	cfg.Cumulative = true
	h := newHarness(cfg, &fakeEngine{})
	h.store.Add(aggregate.CategoryWifi, 1)
	saltBefore := h.salt.Value()

	require.NoError(t, h.gate.CompleteCycle(context.Background(), h.store.Counts()))

	assert.Equal(t, 1, h.store.Len())
	assert.Equal(t, saltBefore, h.salt.Value())
}

func TestCompleteCycle_RejectedJobDoesNotReset(t *testing.T) {
	h := newHarness(baseConfig(), &fakeEngine{rejectErr: radio.ErrBusy, busyPolls: 2})
	h.store.Add(aggregate.CategoryWifi, 1)

	require.NoError(t, h.gate.CompleteCycle(context.Background(), h.store.Counts()))

	assert.Equal(t, 1, h.store.Len())
	require.Len(t, h.rec.jobs, 1)
	assert.False(t, h.rec.jobs[0].Accepted)
	// still serialized behind the pending transmission
	assert.Equal(t, 3, h.engine.polls)
}

func TestCompleteCycle_BusyClearsBeforeBound(t *testing.T) {
	for k := 0; k < 5; k++ {
		h := newHarness(baseConfig(), &fakeEngine{busyPolls: k})

		require.NoError(t, h.gate.CompleteCycle(context.Background(), aggregate.Counts{}))

		assert.Empty(t, h.restarts.Reasons(), "k=%d", k)
		assert.Len(t, h.clock.Sleeps(), k, "one poll interval per busy poll")
		for _, d := range h.clock.Sleeps() {
			assert.Equal(t, time.Second, d)
		}
		assert.Equal(t, status.TextNone, h.board.Wait())
	}
}

func TestCompleteCycle_StuckRestartsAtExactBound(t *testing.T) {
	h := newHarness(baseConfig(), &fakeEngine{busyPolls: -1})

	err := h.gate.CompleteCycle(context.Background(), aggregate.Counts{})

	require.ErrorIs(t, err, ErrTransmitterStuck)
	assert.Equal(t, 5, h.engine.polls, "restart on poll MaxRetry, no further polling")
	assert.Len(t, h.clock.Sleeps(), 4)
	assert.Len(t, h.restarts.Reasons(), 1)
}

func TestCompleteCycle_ResetPrecedesPollingAndWaitIsVisible(t *testing.T) {
	e := &fakeEngine{busyPolls: 2}
	h := newHarness(baseConfig(), e)
	h.store.Add(aggregate.CategoryWifi, 1)

	var lenAtFirstPoll int
	var waitAtSecondPoll string
	e.onPoll = func(n int) {
		switch n {
		case 1:
			lenAtFirstPoll = h.store.Len()
		case 2:
			waitAtSecondPoll = h.board.Wait()
		}
	}
	// an observation arriving mid-wait belongs to the next cycle
	h.clock.OnSleep = func(time.Duration) {
		h.store.Add(aggregate.CategoryBLE, 99)
	}

	require.NoError(t, h.gate.CompleteCycle(context.Background(), h.store.Counts()))

	assert.Equal(t, 0, lenAtFirstPoll)
	assert.Equal(t, status.TextLoRaWait, waitAtSecondPoll)
	assert.Equal(t, aggregate.Counts{Total: 1, BLE: 1}, h.store.Counts())
}

func TestCompleteCycle_RecorderErrorAbsorbed(t *testing.T) {
	h := newHarness(baseConfig(), &fakeEngine{})
	h.rec.err = errors.New("disk full")

	assert.NoError(t, h.gate.CompleteCycle(context.Background(), aggregate.Counts{}))
}

func TestCompleteCycle_ContextCancelledDuringWait(t *testing.T) {
	h := newHarness(baseConfig(), &fakeEngine{busyPolls: -1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.gate.CompleteCycle(ctx, aggregate.Counts{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.restarts.Reasons())
}

func TestNewGate_ClampsBounds(t *testing.T) {
	h := newHarness(Config{}, &fakeEngine{busyPolls: -1})
	err := h.gate.CompleteCycle(context.Background(), aggregate.Counts{})

	require.ErrorIs(t, err, ErrTransmitterStuck)
	assert.Equal(t, 1, h.engine.polls)
}

func TestCompleteCycle_JoinInProgressIsNotBusy(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	sim := radio.NewSim(radio.SimConfig{JoinDelay: time.Hour, Airtime: time.Second}, c)
	restarts := &restart.Recorder{}
	board := status.NewBoard()
	g := NewGate(Config{Port: 1, MaxRetry: 2, PollInterval: time.Second},
		sim, aggregate.New(), salt.New(), board, restarts, c)

	// several cycles end before the join completes
	for i := 0; i < 3; i++ {
		c.Advance(10 * time.Minute)
		sim.Poll()
		require.NoError(t, g.CompleteCycle(context.Background(), aggregate.Counts{}))
	}

	assert.Empty(t, restarts.Reasons())
	assert.Empty(t, c.Sleeps(), "no busy polls while joining")
	assert.Equal(t, status.TextNone, board.Wait())

	// once joined the queued frame goes on air and the gate waits on it
	c.Advance(30 * time.Minute)
	sim.Poll()
	assert.True(t, sim.OpMode().Busy())
	assert.Len(t, sim.Sent(), 1)
}
