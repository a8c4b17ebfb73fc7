// internal/mirror/mirror.go
package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/paxcounter/internal/uplink"
)

// RegisterWriter is the transport the mirror needs.
type RegisterWriter interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// Plan says where the block lives on the endpoint.
type Plan struct {
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// Snapshot is the live part of the block.
type Snapshot struct {
	Total    uint16
	Wifi     uint16
	BLE      uint16
	Cycle    uint16
	Accepted uint16
}

// SnapshotOf flattens a job into register values. The cycle number is
// truncated to its low 16 bits.
func SnapshotOf(j uplink.Job) Snapshot {
	s := Snapshot{
		Total: j.Counts.Total,
		Wifi:  j.Counts.Wifi,
		BLE:   j.Counts.BLE,
		Cycle: uint16(j.Cycle),
	}
	if j.Accepted {
		s.Accepted = 1
	}
	return s
}

func (s Snapshot) regs() [liveSlots]uint16 {
	return [liveSlots]uint16{
		SlotTotal:    s.Total,
		SlotWifi:     s.Wifi,
		SlotBLE:      s.BLE,
		SlotCycle:    s.Cycle,
		SlotAccepted: s.Accepted,
	}
}

var slotNames = [liveSlots]string{"total", "wifi", "ble", "cycle", "accepted"}

// Writer mirrors every uplink job into a holding register block.
// The first write, and the first write after any failure, asserts the
// whole block including the device name; otherwise only changed slots
// are written.
type Writer struct {
	plan Plan
	cli  RegisterWriter

	needFull bool
	last     Snapshot
	nameRegs []uint16
}

func New(plan Plan, cli RegisterWriter) *Writer {
	return &Writer{
		plan:     plan,
		cli:      cli,
		needFull: true,
		nameRegs: encodeDeviceNameRegs(plan.DeviceName),
	}
}

// Record implements uplink.Recorder.
func (w *Writer) Record(_ context.Context, j uplink.Job) error {
	return w.Write(SnapshotOf(j))
}

func (w *Writer) Write(s Snapshot) error {
	if w.cli == nil {
		return errors.New("mirror: no client")
	}

	base := w.baseAddr()

	if w.needFull {
		if err := w.cli.WriteRegisters(w.plan.UnitID, base, w.fullBlockRegs(s)); err != nil {
			return fmt.Errorf("mirror: full block write failed: %w", err)
		}
		w.needFull = false
		w.last = s
		return nil
	}

	want := s.regs()
	have := w.last.regs()

	var errs []string
	for i := range want {
		if want[i] == have[i] {
			continue
		}
		if err := w.cli.WriteRegisters(w.plan.UnitID, base+uint16(i), []uint16{want[i]}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", i, slotNames[i], err))
			continue
		}
		have[i] = want[i]
	}
	w.last = Snapshot{
		Total:    have[SlotTotal],
		Wifi:     have[SlotWifi],
		BLE:      have[SlotBLE],
		Cycle:    have[SlotCycle],
		Accepted: have[SlotAccepted],
	}

	if len(errs) > 0 {
		w.needFull = true
		return errors.New("mirror: " + strings.Join(errs, " | "))
	}
	return nil
}

func (w *Writer) baseAddr() uint16 {
	return w.plan.BaseSlot * SlotsPerDevice
}

func (w *Writer) fullBlockRegs(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)
	live := s.regs()
	copy(regs, live[:])
	copy(regs[SlotDeviceNameStart:], w.nameRegs)
	return regs
}

// encodeDeviceNameRegs packs up to 16 ASCII characters into 8 registers,
// two bytes per register, big endian. Non-printable bytes become '?'.
func encodeDeviceNameRegs(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}
	for i := range b {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}
	return out
}
