package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes bus events to an slog.Logger.
// Useful for development when you want to see bus events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Handle != 0 {
		attrs = append(attrs, slog.Uint64("handle", uint64(event.Handle)))
	}
	if event.VendorID != 0 || event.ProductID != 0 {
		attrs = append(attrs, slog.String("device", fmt.Sprintf("%04x:%04x", event.VendorID, event.ProductID)))
	}
	if event.Backend != "" {
		attrs = append(attrs, slog.String("backend", event.Backend))
	}
	if event.ClientID != "" {
		attrs = append(attrs, slog.String("client_id", event.ClientID))
	}

	// Add type-specific attributes
	switch {
	case event.Transfer != nil:
		attrs = append(attrs,
			slog.String("op", event.Transfer.Op.String()),
			slog.Int64("status", int64(event.Transfer.Status)),
		)
		if event.Transfer.JobID != "" {
			attrs = append(attrs, slog.String("job_id", event.Transfer.JobID))
		}
		if event.Transfer.Async {
			attrs = append(attrs, slog.Bool("async", true))
		}
		if event.Transfer.Length != 0 {
			attrs = append(attrs, slog.Int64("length", int64(event.Transfer.Length)))
		}
		if len(event.Transfer.Data) > 0 {
			attrs = append(attrs, slog.String("data", fmt.Sprintf("%x", event.Transfer.Data)))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error", event.Error.Message))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "hidbus", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
