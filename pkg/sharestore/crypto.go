package sharestore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/Davincible/rabinida/pkg/secure"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize = 32
	keySize  = chacha20poly1305.KeySize
)

// KDFParams sets the Argon2id cost used to derive the file key.
type KDFParams struct {
	Time    uint32 `json:"time"`
	Memory  uint32 `json:"memory"`
	Threads uint8  `json:"threads"`
}

// DefaultKDFParams is 3 passes over 64 MiB with 4 lanes.
var DefaultKDFParams = KDFParams{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
}

var errEmptyPassphrase = errors.New("passphrase cannot be empty")

// encryption seals store files as salt || nonce || ciphertext.
type encryption struct {
	passphrase *secure.Passphrase
	salt       []byte
	params     KDFParams
}

func (e *encryption) init() error {
	if e.passphrase == nil || e.passphrase.Len() == 0 {
		return errEmptyPassphrase
	}
	e.salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, e.salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	return nil
}

func (e *encryption) key(salt []byte) []byte {
	pass := e.passphrase.Bytes()
	defer secure.Zero(pass)
	return argon2.IDKey(pass, salt, e.params.Time, e.params.Memory, e.params.Threads, keySize)
}

func (e *encryption) seal(data []byte) ([]byte, error) {
	key := e.key(e.salt)
	defer secure.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(e.salt)+len(nonce)+len(data)+aead.Overhead())
	out = append(out, e.salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, nil), nil
}

func (e *encryption) open(data []byte) ([]byte, error) {
	if len(data) < saltSize+chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("encrypted data too short")
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+chacha20poly1305.NonceSize]
	sealed := data[saltSize+chacha20poly1305.NonceSize:]

	key := e.key(salt)
	defer secure.Zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plain, nil
}
