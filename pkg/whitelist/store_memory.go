package whitelist

import "sync"

// MemoryStore is an in-memory implementation of the Store interface.
// This is primarily useful for testing and for sessions that don't need
// persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates a new in-memory whitelist store, optionally
// pre-seeded with entries.
func NewMemoryStore(entries ...Entry) *MemoryStore {
	return &MemoryStore{entries: append([]Entry(nil), entries...)}
}

// IsDeviceWhitelisted reports whether a device may be exposed.
func (s *MemoryStore) IsDeviceWhitelisted(vendorID uint16, productID uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matches(s.entries, vendorID, productID)
}

// Add inserts an entry.
func (s *MemoryStore) Add(entry Entry) error {
	if entry.VendorID == 0 {
		return ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.entries, entry.VendorID, entry.ProductID) >= 0 {
		return ErrEntryExists
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Remove deletes the entry for a vendor/product pair.
func (s *MemoryStore) Remove(vendorID uint16, productID uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.entries, vendorID, productID)
	if i < 0 {
		return ErrEntryNotFound
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

// List returns all entries in insertion order.
func (s *MemoryStore) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Save is a no-op for the in-memory store.
func (s *MemoryStore) Save() error { return nil }

// Load is a no-op for the in-memory store.
func (s *MemoryStore) Load() error { return nil }

// matches implements the shared lookup rule: an empty list permits
// everything, a ProductID of 0 is a vendor-wide wildcard.
func matches(entries []Entry, vendorID uint16, productID uint16) bool {
	if len(entries) == 0 {
		return true
	}
	for _, e := range entries {
		if e.VendorID != vendorID {
			continue
		}
		if e.ProductID == 0 || e.ProductID == productID {
			return true
		}
	}
	return false
}

func indexOf(entries []Entry, vendorID uint16, productID uint16) int {
	for i, e := range entries {
		if e.VendorID == vendorID && e.ProductID == productID {
			return i
		}
	}
	return -1
}
