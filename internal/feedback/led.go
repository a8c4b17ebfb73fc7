// internal/feedback/led.go
package feedback

import (
	"sync/atomic"

	"github.com/tamzrod/paxcounter/internal/monitoring"
	"github.com/tamzrod/paxcounter/internal/radio"
)

// Color of the status light.
type Color uint8

const (
	ColorNone Color = iota
	ColorYellow
	ColorBlue
	ColorRed
)

func (c Color) String() string {
	switch c {
	case ColorYellow:
		return "yellow"
	case ColorBlue:
		return "blue"
	case ColorRed:
		return "red"
	default:
		return "none"
	}
}

// Pattern is one blink program.
type Pattern struct {
	Color      Color
	OnMs       uint32
	IntervalMs uint32
	Blinks     uint8
}

var (
	PatternJoin  = Pattern{Color: ColorYellow, OnMs: 20, IntervalMs: 200, Blinks: 5}
	PatternTx    = Pattern{Color: ColorBlue, OnMs: 10, IntervalMs: 500, Blinks: 3}
	PatternAlert = Pattern{Color: ColorRed, OnMs: 200, IntervalMs: 2000, Blinks: 5}
	PatternOff   = Pattern{}
)

// PatternFor maps the engine's op mode to a blink program.
// An engine with no flags at all should not happen while scanning and
// gets the alert pattern; any other activity leaves the light off.
func PatternFor(m radio.OpMode) Pattern {
	switch {
	case m.Joining():
		return PatternJoin
	case m.Transmitting():
		return PatternTx
	case m == 0:
		return PatternAlert
	default:
		return PatternOff
	}
}

// PatternSlot carries the latest sampled pattern from the radio context
// to the feedback loop. Single writer, single reader.
type PatternSlot struct {
	p atomic.Pointer[Pattern]
}

func (s *PatternSlot) Store(p Pattern) { s.p.Store(&p) }

func (s *PatternSlot) Load() Pattern {
	if p := s.p.Load(); p != nil {
		return *p
	}
	return PatternOff
}

// LEDDriver writes the physical light.
type LEDDriver interface {
	SetLED(on bool, c Color) error
}

// LED is the polled blink state machine. Update never blocks beyond the
// driver write, and the driver is only called on an on/off edge.
type LED struct {
	driver LEDDriver

	armed     bool
	pattern   Pattern
	remaining int  // edges left before forced off
	state     bool // target computed this tick
	written   bool // last value written to the driver
}

func NewLED(d LEDDriver) *LED {
	return &LED{driver: d}
}

// Update samples pattern p at time nowMs. Blink parameters are re-armed
// only when p differs from the pattern currently running.
func (l *LED) Update(nowMs uint32, p Pattern) {
	if !l.armed || p != l.pattern {
		l.arm(p)
	}

	if l.remaining == 0 {
		l.state = false
	} else if l.pattern.IntervalMs > 0 {
		l.state = nowMs%l.pattern.IntervalMs < l.pattern.OnMs
	}

	if l.state == l.written {
		return
	}
	c := ColorNone
	if l.state {
		c = l.pattern.Color
	}
	if err := l.driver.SetLED(l.state, c); err != nil {
		monitoring.Logf("feedback: led write failed: %v", err)
	}
	l.written = l.state
	if l.remaining > 0 {
		l.remaining--
	}
}

func (l *LED) arm(p Pattern) {
	l.armed = true
	l.pattern = p
	l.remaining = int(p.Blinks) * 2
	l.state = p.Blinks > 0
}

// On reports the last value written to the driver.
func (l *LED) On() bool { return l.written }

// Remaining reports edges left in the current pattern.
func (l *LED) Remaining() int { return l.remaining }
