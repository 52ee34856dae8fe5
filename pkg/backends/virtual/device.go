// Package virtual provides a synthetic backend and loopback devices for
// exercising the bus without real hardware. Written reports are queued and
// handed back as input reports, so a console session or a test can drive
// full transfer round trips.
package virtual

import (
	"sync"

	"github.com/hidbus/hidbus-go/pkg/hid"
)

// DeviceConfig describes one virtual device.
type DeviceConfig struct {
	VendorID        uint16
	ProductID       uint16
	InterfaceIndex  uint8
	Protocol        uint8
	MaxPacketSize   uint16
	ReportQueueSize int
	Descriptor      []byte
}

// Device is a loopback HID device: Write enqueues an input report, Read
// dequeues the oldest one. An empty queue reads as a transfer timeout,
// matching how real interrupt-in endpoints behave with no pending data.
type Device struct {
	mu sync.Mutex

	info       hid.DeviceInfo
	descriptor []byte
	queueSize  int

	opened   bool
	reports  [][]byte
	idle     uint8
	protocol uint8
}

// NewDevice creates a virtual device from cfg. Zero-value sizing fields
// get sensible defaults.
func NewDevice(cfg DeviceConfig) *Device {
	packet := cfg.MaxPacketSize
	if packet == 0 {
		packet = 0x40
	}
	queueSize := cfg.ReportQueueSize
	if queueSize <= 0 {
		queueSize = 32
	}
	return &Device{
		info: hid.DeviceInfo{
			VendorID:        cfg.VendorID,
			ProductID:       cfg.ProductID,
			InterfaceIndex:  cfg.InterfaceIndex,
			Protocol:        cfg.Protocol,
			MaxPacketSizeRX: packet,
			MaxPacketSizeTX: packet,
		},
		descriptor: append([]byte(nil), cfg.Descriptor...),
		queueSize:  queueSize,
	}
}

func (d *Device) Info() hid.DeviceInfo { return d.info }

func (d *Device) Open() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return true
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	d.reports = nil
}

func (d *Device) IsOpened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *Device) GetDescriptor(descType uint8, descIndex uint8, lang uint16, output []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.descriptor) == 0 {
		return false
	}
	copy(output, d.descriptor)
	return true
}

func (d *Device) SetIdle(ifIndex uint8, reportID uint8, duration uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idle = duration
	return true
}

func (d *Device) SetProtocol(ifIndex uint8, protocol uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protocol = protocol
	return true
}

// SetReport is accepted and dropped; the loopback path runs through
// Write/Read only.
func (d *Device) SetReport(message *hid.ReportMessage) bool {
	return true
}

func (d *Device) Read(message *hid.ReadMessage) hid.TransferStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.reports) == 0 {
		return hid.TransferTimeout
	}
	report := d.reports[0]
	d.reports = d.reports[1:]
	message.BytesRead = copy(message.Data, report)
	return hid.TransferSuccess
}

func (d *Device) Write(message *hid.WriteMessage) hid.TransferStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.reports) >= d.queueSize {
		return hid.TransferError
	}
	d.reports = append(d.reports, append([]byte(nil), message.Data...))
	message.BytesWritten = len(message.Data)
	return hid.TransferSuccess
}

// QueueReport injects an input report directly, bypassing Write. Useful
// for simulating device-initiated input.
func (d *Device) QueueReport(data []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.reports) >= d.queueSize {
		return false
	}
	d.reports = append(d.reports, append([]byte(nil), data...))
	return true
}
