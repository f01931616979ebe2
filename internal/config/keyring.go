package config

import (
	"github.com/99designs/keyring"
	"github.com/pkg/errors"
)

const (
	serviceName   = "ezadmin"
	masterKeyItem = "__master_key__"
)

// KeyringStore keeps secrets in the OS keyring
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore opens the keyring of the ezadmin service
func NewKeyringStore() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open keyring")
	}
	return &KeyringStore{ring: ring}, nil
}

// Set stores a secret under key
func (k *KeyringStore) Set(key, secret string) error {
	return k.ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(secret),
		Label:       "ezadmin " + key,
		Description: "ezadmin console secret",
	})
}

// Get retrieves the secret stored under key
func (k *KeyringStore) Get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if err != nil {
		return "", errors.Wrapf(err, "secret not found: %s", key)
	}
	return string(item.Data), nil
}
