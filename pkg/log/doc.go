// Package log provides structured event logging for the HID bus.
//
// This package defines the Logger interface and Event types for capturing
// bus-level events: device attach/detach, client registration, backend
// lifecycle and transfer activity. It is separate from operational logging
// (slog) - bus capture provides a complete machine-readable event trace for
// debugging guest software against virtual devices.
//
// # Basic Usage
//
// Components accept a Logger; pass nil (or NoopLogger) to disable capture:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	logger, _ := log.NewFileLogger("/var/log/hidbus/bus.hlog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer map keys,
// conventionally using the .hlog extension. Reader streams them back,
// optionally filtered.
package log
