package credential

import "sync"

// MemoryVault is a process-local Vault used in tests and when the
// keyring cannot be opened.
type MemoryVault struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryVault returns an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{values: make(map[string]string)}
}

func (v *MemoryVault) Get(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (v *MemoryVault) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[key] = value
	return nil
}

func (v *MemoryVault) Remove(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.values, key)
	return nil
}

// Len returns the number of stored keys.
func (v *MemoryVault) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.values)
}
