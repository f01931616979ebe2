package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

// GetMasterKey retrieves or generates the key that encrypts stored passwords
func GetMasterKey() ([]byte, error) {
	ks, err := NewKeyringStore()
	if err != nil {
		return nil, err
	}

	if keyHex, err := ks.Get(masterKeyItem); err == nil {
		return hex.DecodeString(keyHex)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.Wrap(err, "failed to generate master key")
	}

	if err := ks.Set(masterKeyItem, hex.EncodeToString(key)); err != nil {
		return nil, errors.Wrap(err, "failed to store master key")
	}

	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plainText with AES-GCM and returns nonce+ciphertext as hex
func Encrypt(plainText string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(plainText), nil)), nil
}

// Decrypt opens a hex string produced by Encrypt
func Decrypt(cipherTextHex string, key []byte) (string, error) {
	data, err := hex.DecodeString(cipherTextHex)
	if err != nil {
		return "", errors.Wrap(err, "invalid ciphertext encoding")
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plainText, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to decrypt")
	}

	return string(plainText), nil
}
