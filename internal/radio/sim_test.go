package radio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/paxcounter/internal/clock"
)

func TestSimJoinThenTransmit(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	s := NewSim(SimConfig{JoinDelay: 2 * time.Second, Airtime: time.Second}, c)

	assert.True(t, s.OpMode().Joining())

	// queued while joining: data pending, channel not busy
	require.NoError(t, s.Submit(1, []byte{0, 0, 0, 0}))
	assert.Equal(t, OpJoining|OpTxData, s.OpMode())
	assert.False(t, s.OpMode().Busy())

	// a newer frame replaces the queued one
	require.NoError(t, s.Submit(1, []byte{0, 1, 0, 0}))
	assert.Empty(t, s.Sent())

	c.Advance(2 * time.Second)
	s.Poll()
	assert.False(t, s.OpMode().Joining())
	assert.Equal(t, "JOINED", s.Event())
	assert.True(t, s.OpMode().Busy(), "airtime starts after join")

	c.Advance(time.Second)
	s.Poll()
	assert.Equal(t, OpMode(0), s.OpMode())
	assert.Equal(t, "TX done", s.Event())
	assert.Equal(t, [][]byte{{0, 1, 0, 0}}, s.Sent())
}

func TestSimLongJoinNeverBusy(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	s := NewSim(SimConfig{JoinDelay: time.Hour, Airtime: time.Second}, c)

	require.NoError(t, s.Submit(1, []byte{0, 0, 0, 0}))
	c.Advance(30 * time.Minute)
	s.Poll()

	assert.True(t, s.OpMode().Joining())
	assert.True(t, s.OpMode().Transmitting())
	assert.False(t, s.OpMode().Busy())
}

func TestSimSubmitWhileJoinedIsBusy(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	s := NewSim(SimConfig{Airtime: time.Second}, c)
	s.Poll()

	require.NoError(t, s.Submit(1, []byte{1}))
	assert.True(t, s.OpMode().Busy())
	assert.ErrorIs(t, s.Submit(1, []byte{2}), ErrBusy)
}

func TestSimRunStopsOnCancel(t *testing.T) {
	c := clock.NewFake(time.Unix(0, 0))
	s := NewSim(SimConfig{}, c)
	ctx, cancel := context.WithCancel(context.Background())
	c.OnSleep = func(time.Duration) { cancel() }

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.OpMode().Joining(), "zero join delay joins on first poll")
}
