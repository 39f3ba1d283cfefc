package crypto

import (
	"crypto/rand"

	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/internal/secmem"
)

// Random fills buf with cryptographically strong random bytes. On failure
// buf is zeroed before returning, so a caller that forgets to check the
// error still gets a defined (all-zero, never reused-looking) buffer
// rather than partially-filled or leftover memory.
func Random(buf []byte) error {
	if _, err := rand.Read(buf); err != nil {
		secmem.Zero(buf)
		return errs.Wrap(errs.CryptoUnknown, err, "random generation failed")
	}
	return nil
}

// NewMessageID generates a fresh random message id.
func NewMessageID() ([MessageIDLen]byte, error) {
	var id [MessageIDLen]byte
	if err := Random(id[:]); err != nil {
		return id, err
	}
	return id, nil
}
