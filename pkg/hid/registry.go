package hid

import (
	"fmt"

	"github.com/hidbus/hidbus-go/pkg/log"
)

// DeviceRecord pairs an attached device with a copy of its handle slot.
type DeviceRecord struct {
	Device Device
	Slot   HandleSlot
}

// AttachDevice attaches a device directly to the bus, without a backend
// owner. Returns ErrAlreadyAttached if the device is already present and
// ErrExhausted when the handle pool is full. On success every registered
// client receives an attach notification via the asynchronous path.
func (b *Bus) AttachDevice(dev Device) error {
	return b.attachDevice(dev, nil)
}

func (b *Bus) attachDevice(dev Device, owner *backendState) error {
	if dev == nil {
		panic("hid: AttachDevice called with nil device")
	}
	info := dev.Info()

	b.mu.Lock()
	if owner != nil && !owner.attached {
		b.mu.Unlock()
		return ErrBackendDetached
	}
	for _, ad := range b.devices {
		if ad.dev == dev {
			b.mu.Unlock()
			b.emitError(0, fmt.Sprintf("attach %04x:%04x: already attached", info.VendorID, info.ProductID))
			return ErrAlreadyAttached
		}
	}

	slot, ok := b.pool.acquire()
	if !ok {
		b.mu.Unlock()
		b.emitError(0, fmt.Sprintf("attach %04x:%04x: no free device slots left", info.VendorID, info.ProductID))
		return ErrExhausted
	}

	slot.Handle = b.generateHandle()
	slot.VendorID = info.VendorID
	slot.ProductID = info.ProductID
	slot.InterfaceIndex = info.InterfaceIndex
	slot.InterfaceSubClass = info.InterfaceSubClass
	slot.Protocol = info.Protocol
	slot.MaxPacketSizeRX = info.MaxPacketSizeRX
	slot.MaxPacketSizeTX = info.MaxPacketSizeTX

	b.devices = append(b.devices, &attachedDevice{dev: dev, slot: slot, owner: owner})
	if owner != nil {
		owner.devices = append(owner.devices, dev)
	}

	slotCopy := *slot
	clients := b.snapshotClients()
	b.mu.Unlock()

	b.enqueueNotification(busNotification{attach: true, slot: slotCopy, clients: clients})
	b.emit(log.Event{
		Category:  log.CategoryDeviceAttach,
		Handle:    slotCopy.Handle,
		VendorID:  slotCopy.VendorID,
		ProductID: slotCopy.ProductID,
	})
	return nil
}

// DetachDevice removes a device from the bus. It is a no-op if the device
// is not attached. Every registered client receives a detach notification
// via the asynchronous path; the device's Close runs after the bus lock is
// released, so close logic may itself touch the bus.
func (b *Bus) DetachDevice(dev Device) {
	b.mu.Lock()
	index := -1
	for i, ad := range b.devices {
		if ad.dev == dev {
			index = i
			break
		}
	}
	if index < 0 {
		b.mu.Unlock()
		return
	}
	ad := b.devices[index]
	b.devices = append(b.devices[:index], b.devices[index+1:]...)
	if ad.owner != nil {
		ad.owner.removeDevice(dev)
	}

	slotCopy := *ad.slot
	clients := b.snapshotClients()
	b.pool.release(ad.slot)
	b.mu.Unlock()

	b.enqueueNotification(busNotification{attach: false, slot: slotCopy, clients: clients})

	dev.Close()

	b.emit(log.Event{
		Category:  log.CategoryDeviceDetach,
		Handle:    slotCopy.Handle,
		VendorID:  slotCopy.VendorID,
		ProductID: slotCopy.ProductID,
	})
}

// DeviceByHandle resolves a handle to its attached device. When
// openIfClosed is set and the device is not open, it is opened; an open
// failure makes the lookup report nil even though the device stays
// attached. The open attempt runs without the bus lock.
func (b *Bus) DeviceByHandle(handle uint32, openIfClosed bool) Device {
	b.mu.Lock()
	var dev Device
	for _, ad := range b.devices {
		if ad.slot.Handle == handle {
			dev = ad.dev
			break
		}
	}
	b.mu.Unlock()

	if dev == nil {
		return nil
	}
	if openIfClosed && !dev.IsOpened() {
		if !dev.Open() {
			b.emitError(handle, "device open failed during handle resolution")
			return nil
		}
	}
	return dev
}

// FindDeviceByID returns the first attached device with the given vendor
// and product IDs, in attachment order, or nil. Vendor/product pairs are
// not unique; callers needing a specific instance must discriminate
// further themselves.
func (b *Bus) FindDeviceByID(vendorID, productID uint16) Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ad := range b.devices {
		if ad.slot.VendorID == vendorID && ad.slot.ProductID == productID {
			return ad.dev
		}
	}
	return nil
}

// Devices returns a snapshot of all attached devices in attachment order.
func (b *Bus) Devices() []DeviceRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := make([]DeviceRecord, 0, len(b.devices))
	for _, ad := range b.devices {
		records = append(records, DeviceRecord{Device: ad.dev, Slot: *ad.slot})
	}
	return records
}

// FreeSlots returns the number of free handle slots.
func (b *Bus) FreeSlots() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool.freeCount()
}
