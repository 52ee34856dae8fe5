package hid

import (
	"github.com/hidbus/hidbus-go/pkg/log"
)

// Backend is a provider of zero or more devices, attached and detached as
// a unit. Implementations are selected at registration time; the bus never
// inspects their concrete type.
//
// The bus is the sole owner of each backend's attached-device set: devices
// registered through the BackendHandle are tracked bus-side, so a detach
// initiated from either side leaves backend and registry consistent.
type Backend interface {
	// Name identifies the backend in logs and listings.
	Name() string

	// OnAttach is called once the backend has been added to the bus.
	// Implementations keep the handle for later device registration.
	OnAttach(handle *BackendHandle)

	// AttachVisibleDevices is the discovery hook: it registers the
	// backend's currently visible devices through the handle given to
	// OnAttach. The bus invokes it right after OnAttach.
	AttachVisibleDevices()

	// OnDetach is called after the backend has been removed from the bus
	// and all its devices detached.
	OnDetach()

	// IsDeviceWhitelisted reports whether the device may be exposed to
	// the guest. Implementations delegate to an allow-list store.
	IsDeviceWhitelisted(vendorID, productID uint16) bool
}

// backendState is the bus-side record of an attached backend: the attached
// flag and the owned-device set, in attachment order.
type backendState struct {
	backend  Backend
	attached bool
	devices  []Device
}

func (s *backendState) removeDevice(dev Device) {
	for i, d := range s.devices {
		if d == dev {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
			return
		}
	}
}

// BackendHandle is a backend's attachment to the bus. It is handed to
// OnAttach and stays valid until OnDetach returns; operations through a
// handle whose backend has been detached are no-ops.
type BackendHandle struct {
	bus   *Bus
	state *backendState
}

// Bus returns the bus this backend is attached to.
func (h *BackendHandle) Bus() *Bus {
	return h.bus
}

// AttachDevice registers a device owned by this backend. Returns
// ErrBackendDetached once the backend has been detached; otherwise it
// behaves like Bus.AttachDevice.
func (h *BackendHandle) AttachDevice(dev Device) error {
	return h.bus.attachDevice(dev, h.state)
}

// DetachDevice removes a device owned by this backend. No-op once the
// backend has been detached.
func (h *BackendHandle) DetachDevice(dev Device) {
	h.bus.mu.Lock()
	attached := h.state.attached
	h.bus.mu.Unlock()
	if !attached {
		return
	}
	h.bus.DetachDevice(dev)
}

// Devices returns a snapshot of the backend's owned devices in attachment
// order.
func (h *BackendHandle) Devices() []Device {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	return append([]Device(nil), h.state.devices...)
}

// FindDevice returns the first owned device matching the predicate, in
// attachment order, or nil.
func (h *BackendHandle) FindDevice(isWanted func(Device) bool) Device {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	for _, d := range h.state.devices {
		if isWanted(d) {
			return d
		}
	}
	return nil
}

// AttachBackend adds a backend to the bus, then runs its OnAttach and
// discovery hooks outside the bus lock. Attaching a backend that is
// already attached is a no-op.
func (b *Bus) AttachBackend(backend Backend) {
	if backend == nil {
		panic("hid: AttachBackend called with nil backend")
	}

	b.mu.Lock()
	for _, s := range b.backends {
		if s.backend == backend {
			b.mu.Unlock()
			return
		}
	}
	state := &backendState{backend: backend, attached: true}
	b.backends = append(b.backends, state)
	b.mu.Unlock()

	b.emit(log.Event{Category: log.CategoryBackendAttach, Backend: backend.Name()})

	backend.OnAttach(&BackendHandle{bus: b, state: state})
	backend.AttachVisibleDevices()
}

// DetachBackend removes a backend from the bus, detaches every device it
// owns in attachment order, then runs its OnDetach hook. No-op if the
// backend is not attached.
func (b *Bus) DetachBackend(backend Backend) {
	b.mu.Lock()
	state := b.removeBackendLocked(backend)
	b.mu.Unlock()

	if state == nil {
		return
	}
	b.finishBackendDetach(state)
}

// DetachAllBackends snapshots the backend list, clears it, then detaches
// each backend's devices and runs OnDetach outside the lock. A backend's
// teardown may re-enter backend registration.
func (b *Bus) DetachAllBackends() {
	b.mu.Lock()
	snapshot := b.backends
	b.backends = nil
	for _, s := range snapshot {
		s.attached = false
	}
	b.mu.Unlock()

	for _, s := range snapshot {
		b.finishBackendDetach(s)
	}
}

// Backends returns a snapshot of attached backends in attachment order.
func (b *Bus) Backends() []Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]Backend, 0, len(b.backends))
	for _, s := range b.backends {
		list = append(list, s.backend)
	}
	return list
}

// removeBackendLocked unlinks the backend's state and marks it detached.
// Caller must hold b.mu.
func (b *Bus) removeBackendLocked(backend Backend) *backendState {
	for i, s := range b.backends {
		if s.backend == backend {
			b.backends = append(b.backends[:i], b.backends[i+1:]...)
			s.attached = false
			return s
		}
	}
	return nil
}

// finishBackendDetach detaches the backend's owned devices in attachment
// order and runs OnDetach. Called without the bus lock.
func (b *Bus) finishBackendDetach(state *backendState) {
	b.mu.Lock()
	owned := append([]Device(nil), state.devices...)
	b.mu.Unlock()

	for _, dev := range owned {
		b.DetachDevice(dev)
	}
	state.backend.OnDetach()

	b.emit(log.Event{Category: log.CategoryBackendDetach, Backend: state.backend.Name()})
}
