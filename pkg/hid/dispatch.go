package hid

import (
	"github.com/google/uuid"

	"github.com/hidbus/hidbus-go/pkg/log"
)

// Completion is the payload of an asynchronous transfer completion:
// the handle the transfer ran against, the guest-visible status code
// (0 on success, never a byte count), the transfer buffer and the number
// of bytes moved.
type Completion struct {
	Handle uint32
	Status int32
	Data   []byte
	Length int32
}

// TransferCallback receives asynchronous transfer completions. Callbacks
// run on a transfer worker, never on the caller's goroutine.
type TransferCallback func(Completion)

// Every transfer operation follows one shape: resolve the handle (opening
// the device if needed), then either run the operation on a worker while
// the caller blocks for the result (no callback), or queue it and return
// StatusOK immediately with the result delivered through the callback.

// GetDescriptor requests a descriptor from the device behind handle.
// Synchronous success returns len(output).
func (b *Bus) GetDescriptor(handle uint32, descType uint8, descIndex uint8, lang uint16, output []byte, cb TransferCallback) int32 {
	dev := b.DeviceByHandle(handle, true)
	if dev == nil {
		b.emitError(handle, "get_descriptor: unable to find device")
		return StatusInvalidHandle
	}
	return b.dispatchControl(log.OpGetDescriptor, handle, cb, int32(len(output)), nil, func() bool {
		return dev.GetDescriptor(descType, descIndex, lang, output)
	})
}

// SetIdle sets the idle duration on the device behind handle.
func (b *Bus) SetIdle(handle uint32, ifIndex uint8, reportID uint8, duration uint8, cb TransferCallback) int32 {
	dev := b.DeviceByHandle(handle, true)
	if dev == nil {
		b.emitError(handle, "set_idle: unable to find device")
		return StatusInvalidHandle
	}
	return b.dispatchControl(log.OpSetIdle, handle, cb, StatusOK, nil, func() bool {
		return dev.SetIdle(ifIndex, reportID, duration)
	})
}

// SetProtocol selects the report protocol on the device behind handle.
func (b *Bus) SetProtocol(handle uint32, ifIndex uint8, protocol uint8, cb TransferCallback) int32 {
	dev := b.DeviceByHandle(handle, true)
	if dev == nil {
		b.emitError(handle, "set_protocol: unable to find device")
		return StatusInvalidHandle
	}
	return b.dispatchControl(log.OpSetProtocol, handle, cb, StatusOK, nil, func() bool {
		return dev.SetProtocol(ifIndex, protocol)
	})
}

// SetReport delivers an output or feature report to the device behind
// handle. Synchronous success returns len(data).
func (b *Bus) SetReport(handle uint32, reportType uint8, reportID uint8, data []byte, cb TransferCallback) int32 {
	dev := b.DeviceByHandle(handle, true)
	if dev == nil {
		b.emitError(handle, "set_report: unable to find device")
		return StatusInvalidHandle
	}
	return b.dispatchControl(log.OpSetReport, handle, cb, int32(len(data)), data, func() bool {
		message := ReportMessage{Type: reportType, ID: reportID, Data: data}
		return dev.SetReport(&message)
	})
}

// Read performs an interrupt-in transfer into data from the device behind
// handle. The destination is zero-filled before the transfer. Synchronous
// success returns the byte count; a device timeout returns StatusTimeout.
func (b *Bus) Read(handle uint32, data []byte, cb TransferCallback) int32 {
	dev := b.DeviceByHandle(handle, true)
	if dev == nil {
		b.emitError(handle, "read: unable to find device")
		return StatusInvalidHandle
	}
	if cb == nil {
		status := b.runSync(func() int32 {
			return b.readInternal(handle, dev, data)
		})
		b.emitTransfer(log.OpRead, handle, "", false, status, data)
		return status
	}
	jobID := uuid.NewString()
	if !b.submit(func() {
		code := b.readInternal(handle, dev, data)
		var status, length int32
		if code < 0 {
			status = code
		} else {
			length = code
		}
		b.emitTransfer(log.OpRead, handle, jobID, true, code, data)
		cb(Completion{Handle: handle, Status: status, Data: data, Length: length})
	}) {
		return StatusError
	}
	return StatusOK
}

// Write performs an interrupt-out transfer of data to the device behind
// handle. Synchronous success returns the byte count; a device timeout
// returns StatusTimeout.
func (b *Bus) Write(handle uint32, data []byte, cb TransferCallback) int32 {
	dev := b.DeviceByHandle(handle, true)
	if dev == nil {
		b.emitError(handle, "write: unable to find device")
		return StatusInvalidHandle
	}
	if cb == nil {
		status := b.runSync(func() int32 {
			return b.writeInternal(handle, dev, data)
		})
		b.emitTransfer(log.OpWrite, handle, "", false, status, data)
		return status
	}
	jobID := uuid.NewString()
	if !b.submit(func() {
		code := b.writeInternal(handle, dev, data)
		var status, length int32
		if code < 0 {
			status = code
		} else {
			length = code
		}
		b.emitTransfer(log.OpWrite, handle, jobID, true, code, data)
		cb(Completion{Handle: handle, Status: status, Data: data, Length: length})
	}) {
		return StatusError
	}
	return StatusOK
}

// dispatchControl runs a control-style operation (descriptor, idle,
// protocol, report) in the mode selected by cb. successCode is the
// synchronous success return; asynchronous completions always carry
// StatusOK/StatusError, with cbData echoed through the completion.
func (b *Bus) dispatchControl(op log.Op, handle uint32, cb TransferCallback, successCode int32, cbData []byte, run func() bool) int32 {
	if cb == nil {
		status := b.runSync(func() int32 {
			if run() {
				return successCode
			}
			return StatusError
		})
		b.emitTransfer(op, handle, "", false, status, cbData)
		return status
	}
	jobID := uuid.NewString()
	if !b.submit(func() {
		status := StatusError
		if run() {
			status = StatusOK
		}
		b.emitTransfer(op, handle, jobID, true, status, cbData)
		cb(Completion{Handle: handle, Status: status, Data: cbData, Length: int32(len(cbData))})
	}) {
		return StatusError
	}
	return StatusOK
}

// runSync executes op on a transfer worker while the caller blocks for the
// result. This is the only intentional blocking surface of the bus.
func (b *Bus) runSync(op func() int32) int32 {
	result := make(chan int32, 1)
	if !b.submit(func() { result <- op() }) {
		return StatusError
	}
	return <-result
}

// readInternal is the shared body of synchronous and asynchronous reads.
// The device must be open; the destination is zero-filled before the
// transfer so a failed read never leaks stale bytes.
func (b *Bus) readInternal(handle uint32, dev Device, data []byte) int32 {
	if !dev.IsOpened() {
		b.emitError(handle, "read: cannot read from a non-opened device")
		return StatusError
	}
	clear(data)
	message := ReadMessage{Data: data}
	switch dev.Read(&message) {
	case TransferSuccess:
		return int32(message.BytesRead)
	case TransferTimeout:
		return StatusTimeout
	default:
		return StatusError
	}
}

// writeInternal is the shared body of synchronous and asynchronous writes.
func (b *Bus) writeInternal(handle uint32, dev Device, data []byte) int32 {
	if !dev.IsOpened() {
		b.emitError(handle, "write: cannot write to a non-opened device")
		return StatusError
	}
	message := WriteMessage{Data: data}
	switch dev.Write(&message) {
	case TransferSuccess:
		return int32(message.BytesWritten)
	case TransferTimeout:
		return StatusTimeout
	default:
		return StatusError
	}
}

// emitTransfer logs one transfer outcome.
func (b *Bus) emitTransfer(op log.Op, handle uint32, jobID string, async bool, status int32, data []byte) {
	var length int32
	if status > 0 {
		length = status
	}
	b.emit(log.Event{
		Category: log.CategoryTransfer,
		Handle:   handle,
		Transfer: &log.TransferEvent{
			Op:     op,
			JobID:  jobID,
			Async:  async,
			Status: status,
			Length: length,
			Data:   log.Preview(data),
		},
	})
}
