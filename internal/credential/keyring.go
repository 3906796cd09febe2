package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "pgportal"

// ErrNotFound is returned by Vault.Get when no value is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Vault is an encrypted-at-rest key/value store for session state.
type Vault interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// KeyringVault stores values in the operating system keyring, falling back
// to an encrypted file when no keyring daemon is available.
type KeyringVault struct {
	ring keyring.Keyring
}

// OpenKeyring returns a vault backed by the system keyring. The file backend
// keeps its encrypted entries under dir.
func OpenKeyring(dir string) (*KeyringVault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("pgportal-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &KeyringVault{ring: ring}, nil
}

// Get retrieves a value by key. A missing key yields ErrNotFound.
func (v *KeyringVault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a value by key.
func (v *KeyringVault) Set(key string, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Remove deletes a value by key. Removing a missing key is not an error.
func (v *KeyringVault) Remove(key string) error {
	err := v.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
