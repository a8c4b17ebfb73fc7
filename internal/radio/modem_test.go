package radio

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake serial port ----

type fakePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, w: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error { return p.w.Close() }

func (p *fakePort) commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := strings.TrimSpace(p.written.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\r\n")
}

// ---- tests ----

func TestModemQueuesWhileJoining(t *testing.T) {
	p := newFakePort()
	m := NewModem(p, time.Millisecond)

	require.NoError(t, m.Submit(1, []byte{0x00, 0x02, 0x00, 0x01}))
	assert.Equal(t, OpJoining|OpTxData, m.OpMode())
	assert.False(t, m.OpMode().Busy(), "queued frame does not hold the channel")
	assert.Empty(t, p.commands(), "nothing goes out before join")

	m.handleLine("+JOIN: Join failed")
	assert.False(t, m.OpMode().Busy(), "a failed join is not a stuck transmitter")

	m.handleLine("+JOIN: Network joined")
	assert.False(t, m.OpMode().Joining())
	assert.True(t, m.OpMode().Busy())
	assert.Equal(t, []string{"AT+PORT=1", `AT+MSGHEX="00020001"`}, p.commands())

	m.handleLine("+MSGHEX: Done")
	assert.Equal(t, OpMode(0), m.OpMode())
	assert.Equal(t, "TX done", m.Event())
}

func TestModemPortSentOnce(t *testing.T) {
	p := newFakePort()
	m := NewModem(p, time.Millisecond)
	m.handleLine("+JOIN: Network joined")

	require.NoError(t, m.Submit(1, []byte{0xab}))
	assert.ErrorIs(t, m.Submit(1, []byte{0xcd}), ErrBusy)
	m.handleLine("+MSGHEX: Done")
	require.NoError(t, m.Submit(1, []byte{0xcd}))

	assert.Equal(t, []string{"AT+PORT=1", `AT+MSGHEX="AB"`, `AT+MSGHEX="CD"`}, p.commands())
}

func TestModemJoinFailedRejoins(t *testing.T) {
	p := newFakePort()
	m := NewModem(p, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	_, err := p.w.Write([]byte("+JOIN: Start\r\n+JOIN: Join failed\r\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(p.commands()) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"AT+JOIN", "AT+JOIN"}, p.commands())
	assert.True(t, m.OpMode()&OpRejoin != 0)
	assert.Equal(t, "JOIN failed", m.Event())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestModemNotJoinedClearsBusy(t *testing.T) {
	p := newFakePort()
	m := NewModem(p, time.Millisecond)
	m.handleLine("+JOIN: Network joined")
	require.NoError(t, m.Submit(1, []byte{1}))

	m.handleLine("+MSGHEX: Please join network first")
	assert.False(t, m.OpMode().Busy())
	assert.True(t, m.OpMode().Joining())
}
