package whitelist

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk shape of the whitelist file.
type fileFormat struct {
	Devices []Entry `yaml:"devices"`
}

// FileStore is a file-based implementation of the Store interface.
// Entries are stored as a YAML document.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
}

// NewFileStore creates a new file-based whitelist store. The file is not
// read until Load is called.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// IsDeviceWhitelisted reports whether a device may be exposed.
func (s *FileStore) IsDeviceWhitelisted(vendorID uint16, productID uint16) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matches(s.entries, vendorID, productID)
}

// Add inserts an entry.
func (s *FileStore) Add(entry Entry) error {
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
func (s *FileStore) Remove(vendorID uint16, productID uint16) error {
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
func (s *FileStore) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Save writes the whitelist to its backing file, creating parent
// directories as needed.
func (s *FileStore) Save() error {
	s.mu.RLock()
	doc := fileFormat{Devices: append([]Entry(nil), s.entries...)}
	s.mu.RUnlock()

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal whitelist: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create whitelist directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write whitelist: %w", err)
	}
	return nil
}

// Load reads the whitelist from its backing file. A missing file leaves
// the store empty and is not an error.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read whitelist: %w", err)
	}

	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse whitelist: %w", err)
	}

	s.mu.Lock()
	s.entries = doc.Devices
	s.mu.Unlock()
	return nil
}
