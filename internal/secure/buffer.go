package secure

import (
	"github.com/awnumar/memguard"
)

// KeyBuffer stores one symmetric key encrypted at rest in memory. The
// enclave encrypts the key and attempts to mlock its pages; the plaintext
// only exists inside a LockedBuffer between Open and Destroy.
type KeyBuffer struct {
	enclave *memguard.Enclave
}

// Protect copies key into a protected enclave and wipes the input slice.
// The caller's copy is unusable afterwards.
func Protect(key []byte) *KeyBuffer {
	// NewEnclave wipes the source buffer itself.
	return &KeyBuffer{enclave: memguard.NewEnclave(key)}
}

// With runs fn with the decrypted key bytes and destroys the locked buffer
// before returning, bounding the plaintext's lifetime to the call.
func (b *KeyBuffer) With(fn func(key []byte) error) error {
	buf, err := b.enclave.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// Wipe zeroes a byte slice holding sensitive material.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
