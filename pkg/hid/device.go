package hid

// DeviceInfo describes a device's identity and transfer geometry. The bus
// copies these values onto the device's handle slot at attach time.
type DeviceInfo struct {
	VendorID          uint16
	ProductID         uint16
	InterfaceIndex    uint8
	InterfaceSubClass uint8
	Protocol          uint8
	MaxPacketSizeRX   uint16
	MaxPacketSizeTX   uint16
}

// Device is a single virtual HID endpoint, implemented by backends and
// consumed by the bus. A Device is owned by exactly one backend and is
// attached to at most one bus at a time.
//
// The bus does not serialize operations on the same device; implementations
// that need mutual exclusion between concurrent transfers must provide it
// themselves.
type Device interface {
	// Info returns the device's identity and transfer geometry.
	Info() DeviceInfo

	// Open prepares the device for transfers. Returns false on failure.
	Open() bool

	// Close releases the device. Close may call back into the bus; it is
	// never invoked with the bus lock held.
	Close()

	// IsOpened reports whether the device is currently open.
	IsOpened() bool

	// GetDescriptor copies the requested descriptor into output and
	// returns true on success. Descriptors are opaque bytes to the bus.
	GetDescriptor(descType uint8, descIndex uint8, lang uint16, output []byte) bool

	// SetIdle sets the idle duration for a report.
	SetIdle(ifIndex uint8, reportID uint8, duration uint8) bool

	// SetProtocol selects the report protocol for an interface.
	SetProtocol(ifIndex uint8, protocol uint8) bool

	// SetReport delivers an output or feature report.
	SetReport(message *ReportMessage) bool

	// Read performs an interrupt-in transfer into message.Data.
	Read(message *ReadMessage) TransferStatus

	// Write performs an interrupt-out transfer of message.Data.
	Write(message *WriteMessage) TransferStatus
}
