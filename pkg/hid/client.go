package hid

import (
	"github.com/google/uuid"

	"github.com/hidbus/hidbus-go/pkg/log"
)

// Client is a registered listener for device attach/detach events. Slot
// values are copies; they stay valid after the device is gone.
//
// Ongoing events are delivered asynchronously, off the attaching or
// detaching call stack. The bulk notifications a client receives during
// its own Register/Unregister call are synchronous: they represent the
// client's registration transition, not a device transition.
type Client interface {
	// DeviceAttached is called when a device joins the bus.
	DeviceAttached(slot HandleSlot)

	// DeviceDetached is called when a device leaves the bus.
	DeviceDetached(slot HandleSlot)
}

// registeredClient pairs a client with its registration ID, used for log
// correlation only.
type registeredClient struct {
	client Client
	id     string
}

// busNotification is one attach/detach event together with the client
// snapshot it must reach, in delivery order.
type busNotification struct {
	attach  bool
	slot    HandleSlot
	clients []Client
}

// RegisterClient adds a client to the front of the client list, so the
// newest registered client sees future events first. Before returning it
// synchronously delivers an attach notification to the new client for
// every currently attached device, in attachment order.
//
// The bus does not deduplicate clients; registering the same client twice
// is the caller's mistake.
func (b *Bus) RegisterClient(c Client) {
	if c == nil {
		panic("hid: RegisterClient called with nil client")
	}

	rc := &registeredClient{client: c, id: uuid.NewString()}

	b.mu.Lock()
	b.clients = append([]*registeredClient{rc}, b.clients...)
	slots := b.snapshotSlots()
	b.mu.Unlock()

	for _, slot := range slots {
		c.DeviceAttached(slot)
	}

	b.emit(log.Event{Category: log.CategoryClientRegister, ClientID: rc.id})
}

// UnregisterClient removes a client by identity, then synchronously
// delivers a detach notification to it for every currently attached
// device, in attachment order, so the client can drop per-device state.
// No-op if the client is not registered.
func (b *Bus) UnregisterClient(c Client) {
	if c == nil {
		panic("hid: UnregisterClient called with nil client")
	}

	b.mu.Lock()
	var removed *registeredClient
	for i, rc := range b.clients {
		if rc.client == c {
			removed = rc
			b.clients = append(b.clients[:i], b.clients[i+1:]...)
			break
		}
	}
	slots := b.snapshotSlots()
	b.mu.Unlock()

	if removed == nil {
		return
	}

	for _, slot := range slots {
		c.DeviceDetached(slot)
	}

	b.emit(log.Event{Category: log.CategoryClientUnregister, ClientID: removed.id})
}

// snapshotClients returns the client list in delivery order (front first).
// Caller must hold b.mu.
func (b *Bus) snapshotClients() []Client {
	clients := make([]Client, len(b.clients))
	for i, rc := range b.clients {
		clients[i] = rc.client
	}
	return clients
}

// snapshotSlots returns copies of all attached slots in attachment order.
// Caller must hold b.mu.
func (b *Bus) snapshotSlots() []HandleSlot {
	slots := make([]HandleSlot, 0, len(b.devices))
	for _, ad := range b.devices {
		slots = append(slots, *ad.slot)
	}
	return slots
}
