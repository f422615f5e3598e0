package cryptox

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrWeakMaster is returned when the master secret is too short to derive from.
var ErrWeakMaster = errors.New("cryptox: master secret must be at least 32 bytes")

// DeriveKey expands master into a size-byte key bound to info. Distinct info
// labels yield independent keys, which is how the access and refresh signing
// secrets are split from one master secret.
func DeriveKey(master []byte, info string, size int) ([]byte, error) {
	if len(master) < SecretSize {
		return nil, ErrWeakMaster
	}

	r := hkdf.New(sha256.New, master, nil, []byte(info))
	key := make([]byte, size)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptox: derive %q: %w", info, err)
	}
	return key, nil
}
