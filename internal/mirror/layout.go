// internal/mirror/layout.go
package mirror

// Register block layout, relative to BaseSlot*SlotsPerDevice.
const (
	SlotTotal    uint16 = 0
	SlotWifi     uint16 = 1
	SlotBLE      uint16 = 2
	SlotCycle    uint16 = 3
	SlotAccepted uint16 = 4

	liveSlots = 5

	// Slots 5..7 reserved, left zero.

	SlotDeviceNameStart = 8
	SlotDeviceNameSlots = 8
	DeviceNameMaxChars  = 16

	SlotsPerDevice uint16 = 16
)
