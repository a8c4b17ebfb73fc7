// internal/status/board.go
package status

import "sync/atomic"

// Status texts shown on the wait line.
const (
	TextJoinWait = "Join wait"
	TextLoRaWait = "LoRa wait"
	TextNone     = ""
)

// Board is the shared-state handle passed to every execution context.
// Each field has exactly one writer:
//
//	Channel     scan scheduler
//	Wait        uplink gate; bootstrap sets the initial text and the
//	            radio context clears it once via ClearWait
//	Cycles      uplink gate
//
// Readers (feedback loop) only load.
type Board struct {
	channel atomic.Uint32
	wait    atomic.Pointer[string]
	cycles  atomic.Uint32
}

func NewBoard() *Board {
	b := &Board{}
	b.SetWait(TextNone)
	return b
}

func (b *Board) SetChannel(ch uint8) { b.channel.Store(uint32(ch)) }
func (b *Board) Channel() uint8      { return uint8(b.channel.Load()) }

func (b *Board) SetWait(s string) { b.wait.Store(&s) }

func (b *Board) Wait() string {
	if p := b.wait.Load(); p != nil {
		return *p
	}
	return TextNone
}

// ClearWait resets the wait text only if it still reads want.
// Returns false when another writer got there first.
func (b *Board) ClearWait(want string) bool {
	for {
		p := b.wait.Load()
		if p == nil || *p != want {
			return false
		}
		none := TextNone
		if b.wait.CompareAndSwap(p, &none) {
			return true
		}
	}
}

// CompleteCycle bumps the completed cycle counter and returns the new value.
func (b *Board) CompleteCycle() uint32 { return b.cycles.Add(1) }
func (b *Board) Cycles() uint32        { return b.cycles.Load() }
