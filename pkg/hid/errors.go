package hid

import "errors"

// Sentinel errors for bus operations.
var (
	// ErrNotFound means no attached device matches the given handle.
	ErrNotFound = errors.New("device handle not found")
	// ErrExhausted means the handle pool has no free slots.
	ErrExhausted = errors.New("no free handle slots")
	// ErrAlreadyAttached means the device is already attached to the bus.
	ErrAlreadyAttached = errors.New("device already attached")
	// ErrDeviceClosed means a read/write was issued against a device that
	// is not open.
	ErrDeviceClosed = errors.New("device not opened")
	// ErrOpenFailed means a lazy open during handle resolution failed.
	ErrOpenFailed = errors.New("device open failed")
	// ErrBackendDetached means a backend-scoped operation was issued while
	// the backend is not attached.
	ErrBackendDetached = errors.New("backend not attached")
	// ErrBusClosed means the bus has been shut down.
	ErrBusClosed = errors.New("bus closed")
)

// Guest-visible status codes. Transfer operations return StatusOK or a
// positive byte count on success and a negative code on failure.
const (
	// StatusOK is success, or "request pending" for asynchronous calls.
	StatusOK int32 = 0
	// StatusError is a generic failure.
	StatusError int32 = -1
	// StatusInvalidHandle means the handle resolved to no attached device.
	StatusInvalidHandle int32 = -100
	// StatusNoFreeSlots means the handle pool is exhausted.
	StatusNoFreeSlots int32 = -105
	// StatusTimeout is a device-level transfer timeout.
	StatusTimeout int32 = -108
)

// StatusForError maps a bus error to its guest-visible status code.
func StatusForError(err error) int32 {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNotFound):
		return StatusInvalidHandle
	case errors.Is(err, ErrExhausted):
		return StatusNoFreeSlots
	default:
		return StatusError
	}
}

// DecodeError decomposes a guest-visible status code into the error class
// and native error number the guest OS error facility expects.
func DecodeError(status int32) (class uint32, native int32) {
	return 0x3FF, -0x7FFF
}
