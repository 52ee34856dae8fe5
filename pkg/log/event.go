package log

import (
	"time"
)

// Event represents a bus log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"2,keyasint"`

	// Handle is the guest-visible device handle, when one is involved.
	Handle uint32 `cbor:"3,keyasint,omitempty"`

	// VendorID of the device involved.
	VendorID uint16 `cbor:"4,keyasint,omitempty"`

	// ProductID of the device involved.
	ProductID uint16 `cbor:"5,keyasint,omitempty"`

	// Backend is the name of the backend involved.
	Backend string `cbor:"6,keyasint,omitempty"`

	// ClientID identifies a registered client (UUID).
	ClientID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (at most one of these is set).
	Transfer *TransferEvent  `cbor:"8,keyasint,omitempty"` // Transfer dispatch
	Error    *ErrorEventData `cbor:"9,keyasint,omitempty"` // Errors at any layer
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryDeviceAttach is a device joining the registry.
	CategoryDeviceAttach Category = 0
	// CategoryDeviceDetach is a device leaving the registry.
	CategoryDeviceDetach Category = 1
	// CategoryClientRegister is a client registering for notifications.
	CategoryClientRegister Category = 2
	// CategoryClientUnregister is a client unregistering.
	CategoryClientUnregister Category = 3
	// CategoryBackendAttach is a backend being attached.
	CategoryBackendAttach Category = 4
	// CategoryBackendDetach is a backend being detached.
	CategoryBackendDetach Category = 5
	// CategoryTransfer is transfer dispatch activity.
	CategoryTransfer Category = 6
	// CategoryError is an error at any layer.
	CategoryError Category = 7
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryDeviceAttach:
		return "device_attach"
	case CategoryDeviceDetach:
		return "device_detach"
	case CategoryClientRegister:
		return "client_register"
	case CategoryClientUnregister:
		return "client_unregister"
	case CategoryBackendAttach:
		return "backend_attach"
	case CategoryBackendDetach:
		return "backend_detach"
	case CategoryTransfer:
		return "transfer"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// Op identifies a transfer operation.
type Op uint8

const (
	// OpGetDescriptor is a descriptor request.
	OpGetDescriptor Op = 0
	// OpSetIdle is a set-idle request.
	OpSetIdle Op = 1
	// OpSetProtocol is a set-protocol request.
	OpSetProtocol Op = 2
	// OpSetReport is an output/feature report.
	OpSetReport Op = 3
	// OpRead is an interrupt-in read.
	OpRead Op = 4
	// OpWrite is an interrupt-out write.
	OpWrite Op = 5
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpGetDescriptor:
		return "get_descriptor"
	case OpSetIdle:
		return "set_idle"
	case OpSetProtocol:
		return "set_protocol"
	case OpSetReport:
		return "set_report"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return "unknown"
	}
}

// TransferEvent captures the outcome of one transfer dispatch.
type TransferEvent struct {
	// Op is the transfer operation.
	Op Op `cbor:"1,keyasint"`

	// JobID correlates asynchronous dispatch with its completion (UUID).
	JobID string `cbor:"2,keyasint,omitempty"`

	// Async is true for callback-completed transfers.
	Async bool `cbor:"3,keyasint,omitempty"`

	// Status is the guest-visible result code.
	Status int32 `cbor:"4,keyasint"`

	// Length is the byte count moved, for operations that move data.
	Length int32 `cbor:"5,keyasint,omitempty"`

	// Data is a bounded preview of the payload, when payload tracing
	// is enabled. Never more than DataPreviewLimit bytes.
	Data []byte `cbor:"6,keyasint,omitempty"`
}

// DataPreviewLimit bounds TransferEvent.Data.
const DataPreviewLimit = 32

// Preview returns at most DataPreviewLimit bytes of data, copied.
func Preview(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	n := len(data)
	if n > DataPreviewLimit {
		n = DataPreviewLimit
	}
	out := make([]byte, n)
	copy(out, data[:n])
	return out
}

// ErrorEventData captures error details.
type ErrorEventData struct {
	// Message is a human-readable error description.
	Message string `cbor:"1,keyasint"`
}
