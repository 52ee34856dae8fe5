package hid_test

import (
	"sync"
	"testing"
	"time"

	"github.com/hidbus/hidbus-go/pkg/hid"
)

// testDevice is a scriptable loopback device. Write queues the payload as
// an input report; Read pops the oldest one. Forced statuses let tests
// exercise error and timeout paths.
type testDevice struct {
	mu   sync.Mutex
	info hid.DeviceInfo

	opened      bool
	failOpen    bool
	stuckClosed bool // Open succeeds but the device never reports opened
	closeCount  int
	closeHook   func()

	descriptor []byte
	reports    [][]byte
	lastReport *hid.ReportMessage

	forceRead  hid.TransferStatus
	forceWrite hid.TransferStatus

	idleDuration uint8
	protocol     uint8
	failControl  bool
}

func newTestDevice(vendorID, productID uint16) *testDevice {
	return &testDevice{
		info: hid.DeviceInfo{
			VendorID:        vendorID,
			ProductID:       productID,
			MaxPacketSizeRX: 0x20,
			MaxPacketSizeTX: 0x20,
		},
	}
}

func (d *testDevice) Info() hid.DeviceInfo { return d.info }

func (d *testDevice) Open() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOpen {
		return false
	}
	if !d.stuckClosed {
		d.opened = true
	}
	return true
}

func (d *testDevice) Close() {
	d.mu.Lock()
	d.opened = false
	d.closeCount++
	hook := d.closeHook
	d.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (d *testDevice) IsOpened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *testDevice) GetDescriptor(descType uint8, descIndex uint8, lang uint16, output []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failControl {
		return false
	}
	copy(output, d.descriptor)
	return true
}

func (d *testDevice) SetIdle(ifIndex uint8, reportID uint8, duration uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failControl {
		return false
	}
	d.idleDuration = duration
	return true
}

func (d *testDevice) SetProtocol(ifIndex uint8, protocol uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failControl {
		return false
	}
	d.protocol = protocol
	return true
}

func (d *testDevice) SetReport(message *hid.ReportMessage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failControl {
		return false
	}
	saved := *message
	saved.Data = append([]byte(nil), message.Data...)
	d.lastReport = &saved
	return true
}

func (d *testDevice) Read(message *hid.ReadMessage) hid.TransferStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.forceRead != hid.TransferSuccess {
		return d.forceRead
	}
	if len(d.reports) == 0 {
		return hid.TransferTimeout
	}
	report := d.reports[0]
	d.reports = d.reports[1:]
	message.BytesRead = copy(message.Data, report)
	return hid.TransferSuccess
}

func (d *testDevice) Write(message *hid.WriteMessage) hid.TransferStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.forceWrite != hid.TransferSuccess {
		return d.forceWrite
	}
	d.reports = append(d.reports, append([]byte(nil), message.Data...))
	message.BytesWritten = len(message.Data)
	return hid.TransferSuccess
}

// clientEvent records one notification a testClient received.
type clientEvent struct {
	attach bool
	slot   hid.HandleSlot
}

// testClient records notifications and exposes them on a channel so tests
// can wait for asynchronous delivery.
type testClient struct {
	mu     sync.Mutex
	events []clientEvent
	ch     chan clientEvent
}

func newTestClient() *testClient {
	return &testClient{ch: make(chan clientEvent, 256)}
}

func (c *testClient) DeviceAttached(slot hid.HandleSlot) { c.record(clientEvent{attach: true, slot: slot}) }
func (c *testClient) DeviceDetached(slot hid.HandleSlot) { c.record(clientEvent{attach: false, slot: slot}) }

func (c *testClient) record(ev clientEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.ch <- ev
}

// next waits for the next notification or fails the test.
func (c *testClient) next(t *testing.T) clientEvent {
	t.Helper()
	select {
	case ev := <-c.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client notification")
		return clientEvent{}
	}
}

func (c *testClient) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *testClient) recorded() []clientEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]clientEvent(nil), c.events...)
}

// testBackend exposes a fixed device set at discovery time.
type testBackend struct {
	name    string
	devices []hid.Device

	mu           sync.Mutex
	handle       *hid.BackendHandle
	detachCount  int
	onDetachHook func()
	allow        func(vendorID, productID uint16) bool
}

func newTestBackend(name string, devices ...hid.Device) *testBackend {
	return &testBackend{name: name, devices: devices}
}

func (b *testBackend) Name() string { return b.name }

func (b *testBackend) OnAttach(handle *hid.BackendHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handle = handle
}

func (b *testBackend) AttachVisibleDevices() {
	b.mu.Lock()
	handle := b.handle
	devices := b.devices
	b.mu.Unlock()
	for _, dev := range devices {
		info := dev.Info()
		if !b.IsDeviceWhitelisted(info.VendorID, info.ProductID) {
			continue
		}
		_ = handle.AttachDevice(dev)
	}
}

func (b *testBackend) OnDetach() {
	b.mu.Lock()
	b.detachCount++
	hook := b.onDetachHook
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (b *testBackend) IsDeviceWhitelisted(vendorID, productID uint16) bool {
	b.mu.Lock()
	allow := b.allow
	b.mu.Unlock()
	if allow == nil {
		return true
	}
	return allow(vendorID, productID)
}

func (b *testBackend) detaches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detachCount
}
