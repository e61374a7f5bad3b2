package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// ErrPoisoned is returned once a critical section has panicked.
// It wraps kv.ErrInternal.
var ErrPoisoned = fmt.Errorf("%w: store poisoned by an earlier panic", kv.ErrInternal)

// MemStore is an in-memory implementation of the kv.Store interface.
// It uses a map protected by a RWMutex for thread-safe operations.
type MemStore struct {
	mu       sync.RWMutex
	data     map[string]string
	poisoned bool
}

// Compile-time check to ensure MemStore implements kv.Store.
var _ kv.Store = (*MemStore)(nil)

// NewMemStore creates and returns a new, empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]string),
	}
}

// Get retrieves a value by key from the store.
// Returns kv.ErrNotFound if the key is absent.
func (s *MemStore) Get(key string) (string, error) {
	var (
		val string
		ok  bool
	)
	err := s.read(func(data map[string]string) {
		val, ok = data[key]
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", kv.ErrNotFound
	}
	return val, nil
}

// Set stores a key-value pair, replacing any previous value.
func (s *MemStore) Set(key, value string) error {
	return s.write(func(data map[string]string) {
		data[key] = value
	})
}

// Len returns the number of entries.
func (s *MemStore) Len() (int, error) {
	var n int
	err := s.read(func(data map[string]string) {
		n = len(data)
	})
	return n, err
}

func (s *MemStore) read(fn func(map[string]string)) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.poisoned {
		return ErrPoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			// A read cannot corrupt the map, so the store stays usable.
			err = fmt.Errorf("%w: panic during read: %v", kv.ErrInternal, r)
		}
	}()
	fn(s.data)
	return nil
}

// write runs fn with exclusive access. A panic inside fn poisons the store
// because the map may be half-updated.
func (s *MemStore) write(fn func(map[string]string)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return ErrPoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			err = errors.Join(ErrPoisoned, fmt.Errorf("panic during write: %v", r))
		}
	}()
	fn(s.data)
	return nil
}
