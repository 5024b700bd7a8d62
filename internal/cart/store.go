package cart

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// StorageKey is the fixed key the serialized cart is stored under.
const StorageKey = "cart_v1"

// Store is a visitor-scoped string key/value store. Set may refuse a value,
// for example one too large for the backing medium; the old value then stays.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// MemoryStore is a Store backed by a map. The zero value is not usable; call NewMemoryStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set implements Store.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Encode serializes the cart as a JSON array of {"id","qty"} objects.
func Encode(c Cart) (string, error) {
	lines := c.lines
	if lines == nil {
		lines = []Line{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("cart: encode: %w", err)
	}
	return string(b), nil
}

// Decode parses a serialized cart. The result is normalised through New.
func Decode(raw string) (Cart, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Cart{}, nil
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return Cart{}, fmt.Errorf("cart: decode: %w", err)
	}
	return New(lines...), nil
}

// Persist writes the full cart to store under StorageKey.
func Persist(store Store, c Cart) error {
	raw, err := Encode(c)
	if err != nil {
		return err
	}
	if err := store.Set(StorageKey, raw); err != nil {
		return fmt.Errorf("cart: persist: %w", err)
	}
	return nil
}

// Restore reads the cart from store. Absent or malformed data yields an empty cart.
func Restore(store Store) Cart {
	if store == nil {
		return Cart{}
	}
	raw, ok := store.Get(StorageKey)
	if !ok {
		return Cart{}
	}
	c, err := Decode(raw)
	if err != nil {
		return Cart{}
	}
	return c
}
