// Package secure holds helpers for handling passphrases and key material.
package secure

import (
	"crypto/subtle"
	"runtime"
	"sync"
)

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ConstantTimeCompare reports whether x and y are equal without leaking
// where they differ.
func ConstantTimeCompare(x, y []byte) bool {
	if len(x) != len(y) {
		return false
	}
	return subtle.ConstantTimeCompare(x, y) == 1
}

// Passphrase keeps a copy of a passphrase that can be wiped once the store
// no longer needs it.
type Passphrase struct {
	mu   sync.RWMutex
	data []byte
}

func NewPassphrase(p []byte) *Passphrase {
	data := make([]byte, len(p))
	copy(data, p)
	return &Passphrase{data: data}
}

// Bytes returns a copy the caller should Zero after use.
func (p *Passphrase) Bytes() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]byte, len(p.data))
	copy(out, p.data)
	return out
}

func (p *Passphrase) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data)
}

// Destroy wipes the passphrase. Later calls to Bytes return an empty slice.
func (p *Passphrase) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	Zero(p.data)
	p.data = nil
}
