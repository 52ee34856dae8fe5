// Package hid implements the device-management core of a guest-facing HID
// subsystem: a virtualized USB/HID bus backed by pluggable host-side device
// providers.
//
// The central type is Bus: the authoritative registry of attached devices,
// the fixed-capacity handle pool, the backend lifecycle manager, the client
// notification list and the transfer dispatch engine, all behind one lock.
// A Bus is constructed once per emulation session and torn down with Close.
//
// Backends provide devices. Attaching a backend runs its discovery hook,
// which registers the backend's visible devices on the bus; detaching a
// backend detaches every device it owns. Clients register to receive
// attach/detach notifications; guest software addresses devices by integer
// handle through the transfer operations (GetDescriptor, SetIdle,
// SetProtocol, SetReport, Read, Write), each usable in a blocking
// synchronous mode or a callback-completed asynchronous mode.
//
// The bus never invokes backend, device or client code while holding its
// lock, so that code may call back into the bus freely.
package hid
