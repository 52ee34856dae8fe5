package hid

// TransferStatus is the tri-state outcome a device reports for a transfer.
type TransferStatus int

const (
	// TransferSuccess means the transfer completed; the message's byte
	// count is meaningful.
	TransferSuccess TransferStatus = 0
	// TransferError is a generic device-level failure.
	TransferError TransferStatus = 1
	// TransferTimeout is a device-level timeout, surfaced to the guest as
	// a distinct status code.
	TransferTimeout TransferStatus = 2
)

// String returns the status name.
func (s TransferStatus) String() string {
	switch s {
	case TransferSuccess:
		return "success"
	case TransferError:
		return "error"
	case TransferTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ReadMessage carries an interrupt-in transfer. Data is the destination
// buffer; its length is the maximum transfer size. The device sets
// BytesRead on success.
type ReadMessage struct {
	Data      []byte
	BytesRead int
}

// WriteMessage carries an interrupt-out transfer. Data is the payload to
// send. The device sets BytesWritten on success.
type WriteMessage struct {
	Data         []byte
	BytesWritten int
}

// ReportMessage carries a set-report control transfer.
type ReportMessage struct {
	// Type is the report type (input/output/feature).
	Type uint8
	// ID is the report ID.
	ID uint8
	// Data is the report payload.
	Data []byte
}
