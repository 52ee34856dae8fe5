// Command hidbus-console is an interactive operator console for the
// virtual HID bus.
//
// It hosts a bus with one virtual backend and lets the operator plug and
// unplug loopback devices, run transfers against them and edit the device
// whitelist, while printing attach/detach notifications as they arrive.
//
// Usage:
//
//	hidbus-console [flags]
//
// Flags:
//
//	-whitelist string  Whitelist YAML file (empty: permit everything)
//	-log-file string   Append bus events to a CBOR log file
//	-verbose           Mirror bus events to the terminal
//	-workers int       Transfer worker count (default 4)
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hidbus/hidbus-go/pkg/backends/virtual"
	"github.com/hidbus/hidbus-go/pkg/hid"
	"github.com/hidbus/hidbus-go/pkg/log"
	"github.com/hidbus/hidbus-go/pkg/whitelist"
)

func main() {
	var (
		whitelistPath = flag.String("whitelist", "", "Whitelist YAML file (empty: permit everything)")
		logPath       = flag.String("log-file", "", "Append bus events to a CBOR log file")
		verbose       = flag.Bool("verbose", false, "Mirror bus events to the terminal")
		workers       = flag.Int("workers", hid.DefaultTransferWorkers, "Transfer worker count")
	)
	flag.Parse()

	if err := run(*whitelistPath, *logPath, *verbose, *workers); err != nil {
		fmt.Fprintf(os.Stderr, "hidbus-console: %v\n", err)
		os.Exit(1)
	}
}

func run(whitelistPath, logPath string, verbose bool, workers int) error {
	var loggers []log.Logger

	var fileLogger *log.FileLogger
	if logPath != "" {
		var err error
		fileLogger, err = log.NewFileLogger(logPath)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer fileLogger.Close()
		loggers = append(loggers, fileLogger)
	}
	if verbose {
		loggers = append(loggers, log.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}

	var logger log.Logger = log.NoopLogger{}
	if len(loggers) > 0 {
		logger = log.NewMultiLogger(loggers...)
	}

	var store whitelist.Store
	if whitelistPath != "" {
		fs := whitelist.NewFileStore(whitelistPath)
		if err := fs.Load(); err != nil {
			return err
		}
		store = fs
	}

	bus := hid.New(hid.Config{Logger: logger, TransferWorkers: workers})
	defer bus.Close()

	backend := virtual.NewBackend("virtual", store)
	bus.AttachBackend(backend)

	console, err := newConsole(bus, backend, store)
	if err != nil {
		return err
	}
	return console.run()
}
