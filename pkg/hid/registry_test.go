package hid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidbus/hidbus-go/pkg/hid"
)

func newTestBus(t *testing.T) *hid.Bus {
	t.Helper()
	bus := hid.New(hid.Config{})
	t.Cleanup(bus.Close)
	return bus
}

func TestAttachAssignsHandle(t *testing.T) {
	bus := newTestBus(t)
	dev := newTestDevice(0x057e, 0x0337)

	require.NoError(t, bus.AttachDevice(dev))

	records := bus.Devices()
	require.Len(t, records, 1)
	slot := records[0].Slot
	assert.NotZero(t, slot.Handle, "handle 0 is reserved")
	assert.Equal(t, uint16(0x057e), slot.VendorID)
	assert.Equal(t, uint16(0x0337), slot.ProductID)
	assert.Equal(t, uint16(0x20), slot.MaxPacketSizeRX)

	assert.Same(t, dev, bus.DeviceByHandle(slot.Handle, false).(*testDevice))
}

func TestHandlesAreUniqueAcrossReattach(t *testing.T) {
	bus := newTestBus(t)
	dev := newTestDevice(1, 1)

	require.NoError(t, bus.AttachDevice(dev))
	first := bus.Devices()[0].Slot.Handle

	bus.DetachDevice(dev)
	require.NoError(t, bus.AttachDevice(dev))
	second := bus.Devices()[0].Slot.Handle

	assert.NotEqual(t, first, second, "handles are process-lifetime unique")
	assert.Nil(t, bus.DeviceByHandle(first, false), "stale handle must not resolve")
}

func TestAttachTwiceReturnsAlreadyAttached(t *testing.T) {
	bus := newTestBus(t)
	dev := newTestDevice(1, 2)

	require.NoError(t, bus.AttachDevice(dev))
	err := bus.AttachDevice(dev)
	require.ErrorIs(t, err, hid.ErrAlreadyAttached)
	assert.Len(t, bus.Devices(), 1, "registry state must be unchanged")
}

func TestAttachExhaustsPool(t *testing.T) {
	bus := newTestBus(t)

	for i := 0; i < hid.PoolCapacity; i++ {
		require.NoError(t, bus.AttachDevice(newTestDevice(1, uint16(i))))
	}
	assert.Equal(t, 0, bus.FreeSlots())

	overflow := newTestDevice(0xffff, 0xffff)
	err := bus.AttachDevice(overflow)
	require.ErrorIs(t, err, hid.ErrExhausted)
	assert.Len(t, bus.Devices(), hid.PoolCapacity)
	assert.Nil(t, bus.FindDeviceByID(0xffff, 0xffff), "overflow device must not be registered")

	// Detach frees a slot; attach works again.
	bus.DetachDevice(bus.Devices()[0].Device)
	require.NoError(t, bus.AttachDevice(overflow))
}

func TestDetachIsIdempotent(t *testing.T) {
	bus := newTestBus(t)
	client := newTestClient()
	bus.RegisterClient(client)

	dev := newTestDevice(1, 3)
	require.NoError(t, bus.AttachDevice(dev))
	client.next(t) // attach notification

	bus.DetachDevice(dev)
	ev := client.next(t)
	assert.False(t, ev.attach)
	assert.Equal(t, 1, dev.closeCount)

	// Second detach: no-op, no notifications, no second close.
	bus.DetachDevice(dev)
	assert.Equal(t, 2, client.eventCount())
	assert.Equal(t, 1, dev.closeCount)
}

func TestResolvableHandlesMatchAttachedDevices(t *testing.T) {
	bus := newTestBus(t)

	devs := make([]*testDevice, 6)
	handles := make([]uint32, 6)
	for i := range devs {
		devs[i] = newTestDevice(0x1000, uint16(i))
		require.NoError(t, bus.AttachDevice(devs[i]))
		handles[i] = bus.Devices()[i].Slot.Handle
	}
	bus.DetachDevice(devs[1])
	bus.DetachDevice(devs[4])

	records := bus.Devices()
	require.Len(t, records, 4)
	for _, rec := range records {
		assert.Same(t, rec.Device, bus.DeviceByHandle(rec.Slot.Handle, false))
	}
	// Released handles resolve to nothing.
	assert.Nil(t, bus.DeviceByHandle(handles[1], false))
	assert.Nil(t, bus.DeviceByHandle(handles[4], false))
}

func TestFindDeviceByIDFirstMatch(t *testing.T) {
	bus := newTestBus(t)

	first := newTestDevice(0xabcd, 0x0001)
	second := newTestDevice(0xabcd, 0x0001)
	require.NoError(t, bus.AttachDevice(first))
	require.NoError(t, bus.AttachDevice(second))

	assert.Same(t, first, bus.FindDeviceByID(0xabcd, 0x0001).(*testDevice))
	assert.Nil(t, bus.FindDeviceByID(0xabcd, 0x0002))
}

func TestDeviceByHandleOpensLazily(t *testing.T) {
	bus := newTestBus(t)
	dev := newTestDevice(2, 2)
	require.NoError(t, bus.AttachDevice(dev))
	handle := bus.Devices()[0].Slot.Handle

	assert.False(t, dev.IsOpened())
	got := bus.DeviceByHandle(handle, true)
	require.NotNil(t, got)
	assert.True(t, dev.IsOpened())
}

func TestDeviceByHandleOpenFailureReportsAbsent(t *testing.T) {
	bus := newTestBus(t)
	dev := newTestDevice(2, 3)
	dev.failOpen = true
	require.NoError(t, bus.AttachDevice(dev))
	handle := bus.Devices()[0].Slot.Handle

	assert.Nil(t, bus.DeviceByHandle(handle, true))
	// The device stays registered and resolvable without the open request.
	assert.Same(t, dev, bus.DeviceByHandle(handle, false).(*testDevice))
}

func TestCloseRunsOutsideLock(t *testing.T) {
	bus := newTestBus(t)
	dev := newTestDevice(3, 3)
	other := newTestDevice(3, 4)
	require.NoError(t, bus.AttachDevice(dev))
	require.NoError(t, bus.AttachDevice(other))
	otherHandle := bus.Devices()[1].Slot.Handle

	// Close re-enters bus lookup; must not deadlock.
	dev.closeHook = func() {
		assert.NotNil(t, bus.DeviceByHandle(otherHandle, false))
	}
	bus.DetachDevice(dev)
	assert.Equal(t, 1, dev.closeCount)
}
