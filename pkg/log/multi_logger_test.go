package log

import (
	"testing"
	"time"
)

// mockLogger records events for testing
type mockLogger struct {
	events []Event
}

func (m *mockLogger) Log(event Event) {
	m.events = append(m.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	mock1 := &mockLogger{}
	mock2 := &mockLogger{}
	mock3 := &mockLogger{}

	multi := NewMultiLogger(mock1, mock2, mock3)

	event := Event{
		Timestamp: time.Now(),
		Category:  CategoryDeviceAttach,
		Handle:    2,
		VendorID:  0x057e,
		ProductID: 0x0337,
	}

	multi.Log(event)

	// All loggers should have received the event
	for i, mock := range []*mockLogger{mock1, mock2, mock3} {
		if len(mock.events) != 1 {
			t.Errorf("logger %d: got %d events, want 1", i, len(mock.events))
			continue
		}
		if mock.events[0].Handle != 2 {
			t.Errorf("logger %d: Handle = %d, want 2", i, mock.events[0].Handle)
		}
	}
}

func TestMultiLoggerEmptyList(t *testing.T) {
	multi := NewMultiLogger()

	// Should not panic with empty logger list
	event := Event{
		Timestamp: time.Now(),
		Category:  CategoryTransfer,
	}
	multi.Log(event)
}

func TestMultiLoggerOrder(t *testing.T) {
	var order []int
	first := loggerFunc(func(Event) { order = append(order, 1) })
	second := loggerFunc(func(Event) { order = append(order, 2) })

	multi := NewMultiLogger(first, second)
	multi.Log(Event{Category: CategoryError})

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("delivery order = %v, want [1 2]", order)
	}
}

type loggerFunc func(Event)

func (f loggerFunc) Log(event Event) { f(event) }
