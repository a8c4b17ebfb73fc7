// internal/feedback/drivers.go
package feedback

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// NopLED is used when the board has no status light.
type NopLED struct{}

func (NopLED) SetLED(bool, Color) error { return nil }

// NopDisplay is used when the board has no panel.
type NopDisplay struct{}

func (NopDisplay) Render(Frame) error      { return nil }
func (NopDisplay) SetPowerSave(bool) error { return nil }

// ConsoleLED prints light edges as text lines.
type ConsoleLED struct {
	W io.Writer
}

func (c ConsoleLED) SetLED(on bool, col Color) error {
	state := "off"
	if on {
		state = "on"
	}
	_, err := fmt.Fprintf(c.W, "led: %s (%s)\n", state, col)
	return err
}

// ConsoleDisplay draws frames as a boxed text block. While power save is
// on nothing is drawn.
type ConsoleDisplay struct {
	mu        sync.Mutex
	w         io.Writer
	powerSave bool
}

func NewConsoleDisplay(w io.Writer) *ConsoleDisplay {
	return &ConsoleDisplay{w: w}
}

func (c *ConsoleDisplay) Render(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.powerSave {
		return nil
	}
	var b strings.Builder
	border := "+" + strings.Repeat("-", FrameCols) + "+\n"
	b.WriteString(border)
	for _, line := range f {
		b.WriteString("|" + line + "|\n")
	}
	b.WriteString(border)
	_, err := io.WriteString(c.w, b.String())
	return err
}

func (c *ConsoleDisplay) SetPowerSave(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.powerSave = on
	return nil
}
