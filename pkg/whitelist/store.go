// Package whitelist decides which physical devices a backend may expose
// to the bus. Backends consult a Store during discovery and on hotplug;
// devices not on the list stay invisible to the guest.
package whitelist

import "errors"

// Store errors.
var (
	ErrEntryNotFound = errors.New("whitelist entry not found")
	ErrEntryExists   = errors.New("whitelist entry already exists")
	ErrInvalidEntry  = errors.New("invalid whitelist entry")
)

// Entry identifies one permitted device. A ProductID of 0 permits every
// product of the vendor.
type Entry struct {
	VendorID  uint16 `yaml:"vendorId"`
	ProductID uint16 `yaml:"productId"`
	Name      string `yaml:"name,omitempty"`
}

// Store defines the interface for device whitelist storage.
// Implementations must be safe for concurrent access.
//
// An empty store permits every device; filtering starts with the first
// entry.
type Store interface {
	// IsDeviceWhitelisted reports whether a device may be exposed.
	IsDeviceWhitelisted(vendorID uint16, productID uint16) bool

	// Add inserts an entry. Returns ErrEntryExists if an equal
	// vendor/product pair is already present.
	Add(entry Entry) error

	// Remove deletes the entry for a vendor/product pair.
	// Returns ErrEntryNotFound if no such entry exists.
	Remove(vendorID uint16, productID uint16) error

	// List returns all entries in insertion order.
	List() []Entry

	// Save persists the store to its backing storage.
	// For in-memory stores, this may be a no-op.
	Save() error

	// Load reads the store from its backing storage.
	// For in-memory stores, this may be a no-op.
	Load() error
}
