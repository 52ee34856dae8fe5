package virtual

import (
	"sync"

	"github.com/hidbus/hidbus-go/pkg/hid"
	"github.com/hidbus/hidbus-go/pkg/whitelist"
)

// Backend exposes a mutable set of virtual devices to a bus. Plug and
// Unplug simulate hotplug: while the backend is attached they propagate
// to the bus immediately, still subject to the whitelist.
type Backend struct {
	name      string
	whitelist whitelist.Store

	mu      sync.Mutex
	handle  *hid.BackendHandle
	pending []*Device
}

// NewBackend creates a virtual backend. store may be nil, in which case
// every device is exposed.
func NewBackend(name string, store whitelist.Store) *Backend {
	return &Backend{name: name, whitelist: store}
}

func (b *Backend) Name() string { return b.name }

// OnAttach records the bus-issued handle for later hotplug calls.
func (b *Backend) OnAttach(handle *hid.BackendHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handle = handle
}

// AttachVisibleDevices exposes every pending whitelisted device.
func (b *Backend) AttachVisibleDevices() {
	b.mu.Lock()
	handle := b.handle
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	if handle == nil {
		return
	}
	for _, dev := range pending {
		b.expose(handle, dev)
	}
}

// OnDetach drops the bus handle. Devices the bus still tracked have
// already been detached by the bus at this point.
func (b *Backend) OnDetach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handle = nil
}

// IsDeviceWhitelisted reports whether a device may be exposed.
func (b *Backend) IsDeviceWhitelisted(vendorID uint16, productID uint16) bool {
	if b.whitelist == nil {
		return true
	}
	return b.whitelist.IsDeviceWhitelisted(vendorID, productID)
}

// Plug adds a device. Attached backends expose it right away; detached
// ones keep it pending for the next attach. Returns false when the device
// is not whitelisted or the bus rejects it.
func (b *Backend) Plug(dev *Device) bool {
	b.mu.Lock()
	handle := b.handle
	if handle == nil {
		b.pending = append(b.pending, dev)
		b.mu.Unlock()
		return true
	}
	b.mu.Unlock()
	return b.expose(handle, dev)
}

// Unplug removes a device from the bus, or from the pending set when the
// backend is detached.
func (b *Backend) Unplug(dev *Device) {
	b.mu.Lock()
	handle := b.handle
	for i, pending := range b.pending {
		if pending == dev {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			b.mu.Unlock()
			return
		}
	}
	b.mu.Unlock()
	if handle != nil {
		handle.DetachDevice(dev)
	}
}

func (b *Backend) expose(handle *hid.BackendHandle, dev *Device) bool {
	info := dev.Info()
	if !b.IsDeviceWhitelisted(info.VendorID, info.ProductID) {
		return false
	}
	return handle.AttachDevice(dev) == nil
}
