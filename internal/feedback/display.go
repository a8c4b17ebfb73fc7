// internal/feedback/display.go
package feedback

import (
	"fmt"
	"time"

	"github.com/tamzrod/paxcounter/internal/monitoring"
)

const (
	// FrameLines and FrameCols match an 8x16 character panel.
	FrameLines = 8
	FrameCols  = 16
)

// Frame is one full panel of text.
type Frame [FrameLines]string

// View is everything a render pulls from the shared state.
type View struct {
	Total      uint16
	Wifi       uint16
	BLE        uint16
	BLEEnabled bool
	Channel    uint8
	RSSILimit  int
	Wait       string
	Event      string
	ScreenOn   bool
}

// DisplayDriver writes the physical panel.
type DisplayDriver interface {
	Render(f Frame) error
	SetPowerSave(on bool) error
}

// Render lays out a view. Pure.
func Render(v View) Frame {
	var f Frame

	f[0] = fmt.Sprintf("PAX:%-4d", v.Total)

	if v.BLEEnabled {
		f[3] = fmt.Sprintf("BLTH: %-4d", v.BLE)
	} else {
		f[3] = "BLTH: off"
	}

	f[4] = fmt.Sprintf("%-11sch:%02d", fmt.Sprintf("WIFI: %-4d", v.Wifi), v.Channel)

	if v.RSSILimit == 0 {
		f[5] = "RLIM: off"
	} else {
		f[5] = fmt.Sprintf("RLIM: %-4d", v.RSSILimit)
	}

	f[6] = v.Wait
	f[7] = v.Event

	for i := range f {
		f[i] = fit(f[i])
	}
	return f
}

func fit(s string) string {
	if len(s) > FrameCols {
		return s[:FrameCols]
	}
	return fmt.Sprintf("%-*s", FrameCols, s)
}

// Display is the polled refresh state machine. Cheap to call every tick.
type Display struct {
	driver  DisplayDriver
	refresh time.Duration

	rendered     bool
	lastRendered time.Time

	powerApplied bool
	screenOn     bool
}

func NewDisplay(d DisplayDriver, refresh time.Duration) *Display {
	return &Display{driver: d, refresh: refresh}
}

// Update renders v when the refresh interval has elapsed since the last
// render and applies a power-save change once when ScreenOn flips.
// It reports whether a render happened.
func (d *Display) Update(now time.Time, v View) bool {
	did := false
	if !d.rendered || now.Sub(d.lastRendered) >= d.refresh {
		if err := d.driver.Render(Render(v)); err != nil {
			monitoring.Logf("feedback: display render failed: %v", err)
		}
		d.rendered = true
		d.lastRendered = now
		did = true
	}

	if !d.powerApplied || d.screenOn != v.ScreenOn {
		if err := d.driver.SetPowerSave(!v.ScreenOn); err != nil {
			monitoring.Logf("feedback: display power save failed: %v", err)
		}
		d.powerApplied = true
		d.screenOn = v.ScreenOn
	}
	return did
}
