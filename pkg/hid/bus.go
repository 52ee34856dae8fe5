package hid

import (
	"sync"
	"time"

	"github.com/hidbus/hidbus-go/pkg/log"
)

// Default sizing for the dispatch and notification queues.
const (
	DefaultTransferWorkers   = 4
	DefaultTransferQueueSize = 64
	DefaultNotifyQueueSize   = 256
)

// Config configures a Bus.
type Config struct {
	// Logger receives bus events. nil disables logging.
	Logger log.Logger

	// TransferWorkers is the number of transfer dispatch workers.
	// Zero means DefaultTransferWorkers.
	TransferWorkers int

	// TransferQueueSize bounds queued transfer jobs. Zero means
	// DefaultTransferQueueSize. Submitters block while the queue is full.
	TransferQueueSize int

	// NotifyQueueSize bounds queued client notification events.
	// Zero means DefaultNotifyQueueSize.
	NotifyQueueSize int
}

// Bus is the device registry and dispatch core of the virtual HID bus:
// the attached-device list, the handle pool, the backend list, the client
// list, the notification queue and the transfer worker pool.
//
// All registry state is serialized by one lock. Backend, device and client
// code is always invoked after that lock is released (snapshot, release,
// notify), so such code may re-enter any Bus method.
type Bus struct {
	logger log.Logger

	mu         sync.Mutex
	pool       *handlePool
	lastHandle uint32
	devices    []*attachedDevice
	backends   []*backendState
	clients    []*registeredClient

	// closeMu serializes queue submission against shutdown: submitters
	// hold it for reading, Close holds it for writing while marking the
	// bus closed and closing the queues.
	closeMu sync.RWMutex
	closed  bool

	notifyCh chan busNotification
	jobCh    chan func()
	wg       sync.WaitGroup
}

// attachedDevice is a registry entry: the device, its handle slot, and the
// backend that owns it (nil for devices attached directly).
type attachedDevice struct {
	dev   Device
	slot  *HandleSlot
	owner *backendState
}

// New creates a Bus ready for backend attachment. The caller must Close it
// at the end of the emulation session.
func New(cfg Config) *Bus {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	workers := cfg.TransferWorkers
	if workers <= 0 {
		workers = DefaultTransferWorkers
	}
	queueSize := cfg.TransferQueueSize
	if queueSize <= 0 {
		queueSize = DefaultTransferQueueSize
	}
	notifySize := cfg.NotifyQueueSize
	if notifySize <= 0 {
		notifySize = DefaultNotifyQueueSize
	}

	b := &Bus{
		logger:     logger,
		pool:       newHandlePool(),
		lastHandle: 1, // handle 0 is reserved/invalid; generation starts above it
		notifyCh:   make(chan busNotification, notifySize),
		jobCh:      make(chan func(), queueSize),
	}

	b.wg.Add(1)
	go b.notifyLoop()
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go b.transferWorker()
	}
	return b
}

// Close detaches all backends, then stops the notification and transfer
// workers after draining their queues. Bus methods called after Close
// report failure; it is safe to call Close multiple times.
func (b *Bus) Close() {
	b.DetachAllBackends()

	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.notifyCh)
	close(b.jobCh)
	b.closeMu.Unlock()

	b.wg.Wait()
}

// generateHandle returns the next handle value. Handles are process-lifetime
// unique and never 0. Caller must hold b.mu.
func (b *Bus) generateHandle() uint32 {
	b.lastHandle++
	return b.lastHandle
}

// submit queues a transfer job for the worker pool. Returns false when the
// bus is closed. Blocks while the queue is full.
func (b *Bus) submit(job func()) bool {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return false
	}
	b.jobCh <- job
	return true
}

// enqueueNotification queues an attach/detach event for asynchronous
// delivery. Events are dropped once the bus is closed. Must not be called
// with b.mu held: delivery callbacks may re-enter the bus, so a full queue
// must be drainable while the caller waits.
func (b *Bus) enqueueNotification(n busNotification) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}
	b.notifyCh <- n
}

// transferWorker executes transfer jobs until the queue is closed and
// drained.
func (b *Bus) transferWorker() {
	defer b.wg.Done()
	for job := range b.jobCh {
		job()
	}
}

// notifyLoop delivers queued attach/detach events, each to its snapshot of
// clients in list order. A single goroutine preserves event order.
func (b *Bus) notifyLoop() {
	defer b.wg.Done()
	for n := range b.notifyCh {
		for _, c := range n.clients {
			if n.attach {
				c.DeviceAttached(n.slot)
			} else {
				c.DeviceDetached(n.slot)
			}
		}
	}
}

// emit stamps and forwards a log event.
func (b *Bus) emit(event log.Event) {
	event.Timestamp = time.Now()
	b.logger.Log(event)
}

// emitError logs an error event for the given handle.
func (b *Bus) emitError(handle uint32, message string) {
	b.emit(log.Event{
		Category: log.CategoryError,
		Handle:   handle,
		Error:    &log.ErrorEventData{Message: message},
	})
}
