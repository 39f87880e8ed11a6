// Package auth validates the stream keys presented by the ingest server when
// a publisher connects.
package auth

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrEmptyKey is returned when adding an empty key.
var ErrEmptyKey = errors.New("stream key must not be empty")

// KeyStore is a concurrency-safe set of accepted stream keys.
type KeyStore struct {
	enabled bool

	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewKeyStore returns a KeyStore seeded with keys. When enabled is false every
// key validates.
func NewKeyStore(keys []string, enabled bool) *KeyStore {
	ks := &KeyStore{
		enabled: enabled,
		keys:    make(map[string]struct{}, len(keys)),
	}
	for _, k := range keys {
		if k != "" {
			ks.keys[k] = struct{}{}
		}
	}
	return ks
}

// Enabled reports whether keys are checked at all.
func (ks *KeyStore) Enabled() bool {
	return ks.enabled
}

// Validate reports whether key may publish.
func (ks *KeyStore) Validate(key string) bool {
	if !ks.enabled {
		return true
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	_, ok := ks.keys[key]
	return ok
}

// Generate creates, stores and returns a random 32 character hex key.
func (ks *KeyStore) Generate() string {
	key := strings.ReplaceAll(uuid.NewString(), "-", "")
	// Add cannot fail for a non-empty key.
	_ = ks.Add(key)
	return key
}

// Add accepts key for publishing.
func (ks *KeyStore) Add(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	ks.mu.Lock()
	ks.keys[key] = struct{}{}
	ks.mu.Unlock()
	return nil
}

// Remove revokes key and reports whether it was present.
func (ks *KeyStore) Remove(key string) bool {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if _, ok := ks.keys[key]; !ok {
		return false
	}
	delete(ks.keys, key)
	return true
}

// List returns the accepted keys in sorted order.
func (ks *KeyStore) List() []string {
	ks.mu.RLock()
	keys := make([]string, 0, len(ks.keys))
	for k := range ks.keys {
		keys = append(keys, k)
	}
	ks.mu.RUnlock()

	sort.Strings(keys)
	return keys
}
