package hidbus_test

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidbus/hidbus-go/pkg/backends/virtual"
	"github.com/hidbus/hidbus-go/pkg/hid"
	"github.com/hidbus/hidbus-go/pkg/log"
	"github.com/hidbus/hidbus-go/pkg/whitelist"
)

// recordingClient collects notifications and signals each delivery.
type recordingClient struct {
	mu       sync.Mutex
	attached []hid.HandleSlot
	detached []hid.HandleSlot
	ch       chan struct{}
}

func newRecordingClient() *recordingClient {
	return &recordingClient{ch: make(chan struct{}, 64)}
}

func (c *recordingClient) DeviceAttached(slot hid.HandleSlot) {
	c.mu.Lock()
	c.attached = append(c.attached, slot)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *recordingClient) DeviceDetached(slot hid.HandleSlot) {
	c.mu.Lock()
	c.detached = append(c.detached, slot)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *recordingClient) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d of %d", i+1, n)
		}
	}
}

func (c *recordingClient) attachedSlots() []hid.HandleSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hid.HandleSlot(nil), c.attached...)
}

func (c *recordingClient) detachedSlots() []hid.HandleSlot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]hid.HandleSlot(nil), c.detached...)
}

// TestE2E_SessionFlow drives a full session: a whitelisted virtual backend,
// hotplug, sync and async transfers, client notifications and the event
// log written along the way.
func TestE2E_SessionFlow(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events.cbor")
	fileLogger, err := log.NewFileLogger(logPath)
	require.NoError(t, err)

	bus := hid.New(hid.Config{Logger: fileLogger})

	store := whitelist.NewMemoryStore(
		whitelist.Entry{VendorID: 0x057e, Name: "all first-party pads"},
	)
	backend := virtual.NewBackend("virtual", store)

	pad := virtual.NewDevice(virtual.DeviceConfig{
		VendorID:   0x057e,
		ProductID:  0x0337,
		Descriptor: []byte{0x05, 0x01, 0x09, 0x05},
	})
	require.True(t, backend.Plug(pad))
	bus.AttachBackend(backend)

	client := newRecordingClient()
	bus.RegisterClient(client)
	attached := client.attachedSlots()
	require.Len(t, attached, 1, "existing devices delivered during registration")
	client.wait(t, 1)
	handle := attached[0].Handle
	require.NotZero(t, handle)

	// A non-whitelisted device stays invisible.
	require.False(t, backend.Plug(virtual.NewDevice(virtual.DeviceConfig{
		VendorID: 0x1209, ProductID: 0x0001,
	})))
	require.Len(t, bus.Devices(), 1)

	// Sync transfer round trip.
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	require.Equal(t, int32(len(payload)), bus.Write(handle, payload, nil))
	buf := make([]byte, 16)
	n := bus.Read(handle, buf, nil)
	require.Equal(t, int32(len(payload)), n)
	assert.Equal(t, payload, buf[:n])

	// Async transfer with completion callback.
	done := make(chan hid.Completion, 1)
	require.Equal(t, hid.StatusOK, bus.Write(handle, payload, func(c hid.Completion) {
		done <- c
	}))
	select {
	case completion := <-done:
		assert.Equal(t, handle, completion.Handle)
		assert.Equal(t, hid.StatusOK, completion.Status)
		assert.Equal(t, int32(len(payload)), completion.Length)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async completion")
	}

	// Descriptor fetch.
	desc := make([]byte, 8)
	require.Equal(t, int32(len(desc)), bus.GetDescriptor(handle, 0x22, 0, 0, desc, nil))
	assert.Equal(t, []byte{0x05, 0x01, 0x09, 0x05}, desc[:4])

	// Hotplug removal notifies the client.
	backend.Unplug(pad)
	client.wait(t, 1)
	detached := client.detachedSlots()
	require.Len(t, detached, 1)
	assert.Equal(t, handle, detached[0].Handle)
	assert.Nil(t, bus.DeviceByHandle(handle, false), "handle is dead after unplug")

	bus.Close()
	require.NoError(t, fileLogger.Close())

	// The event log tells the session's story.
	reader, err := log.NewReader(logPath)
	require.NoError(t, err)
	defer reader.Close()

	counts := make(map[log.Category]int)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		counts[event.Category]++
	}
	assert.Equal(t, 1, counts[log.CategoryBackendAttach])
	assert.Equal(t, 1, counts[log.CategoryBackendDetach])
	assert.Equal(t, 1, counts[log.CategoryDeviceAttach])
	assert.Equal(t, 1, counts[log.CategoryDeviceDetach])
	assert.Equal(t, 1, counts[log.CategoryClientRegister])
	assert.Equal(t, 4, counts[log.CategoryTransfer])
}

// TestE2E_MultiClientFanout checks that attach and detach events reach
// every registered client and that handles stay unique across the set.
func TestE2E_MultiClientFanout(t *testing.T) {
	bus := hid.New(hid.Config{})
	defer bus.Close()

	backend := virtual.NewBackend("virtual", nil)
	bus.AttachBackend(backend)

	older := newRecordingClient()
	newer := newRecordingClient()
	bus.RegisterClient(older)
	bus.RegisterClient(newer)

	var devices []*virtual.Device
	for i := 0; i < 4; i++ {
		dev := virtual.NewDevice(virtual.DeviceConfig{VendorID: 0x057e, ProductID: uint16(i + 1)})
		require.True(t, backend.Plug(dev))
		devices = append(devices, dev)
	}
	older.wait(t, 4)
	newer.wait(t, 4)

	// Both clients observed every attach in plug order.
	for i, slot := range older.attachedSlots() {
		assert.Equal(t, uint16(i+1), slot.ProductID)
	}
	for i, slot := range newer.attachedSlots() {
		assert.Equal(t, uint16(i+1), slot.ProductID)
	}

	// Handles are unique across the set.
	seen := make(map[uint32]bool)
	for _, slot := range older.attachedSlots() {
		assert.False(t, seen[slot.Handle])
		seen[slot.Handle] = true
	}

	bus.DetachBackend(backend)
	older.wait(t, 4)
	newer.wait(t, 4)
	assert.Empty(t, bus.Devices())
	for _, dev := range devices {
		assert.False(t, dev.IsOpened())
	}
}
