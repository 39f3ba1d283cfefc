// Package crypto implements the key-derivation and AEAD primitives this
// module's header and frame codecs build on: deriving the per-message
// content key from a raw data key, sealing/opening the header
// authentication tag, and sealing/opening body frames under the exact
// AAD construction the wire format requires for interoperability.
package crypto

import (
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/internal/secmem"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

// MessageIDLen is the length, in bytes, of a message id.
const MessageIDLen = 16

// DeriveContentKey derives the per-message content key from a raw data
// key. For suites with KDF = none, the content key is the data key
// itself (a defensive copy is returned so callers can zeroize it
// independently of the data key). For HKDF suites, it computes the full
// RFC 5869 HKDF, extract (empty salt) then expand, with hash = s.KDF's
// hash, input key material = dataKey, info = be16(suiteID) || messageID
// and L = s.DataKeyLen.
//
// On any failure the returned key is zeroed before returning.
func DeriveContentKey(s suite.Suite, dataKey []byte, messageID [MessageIDLen]byte) ([]byte, error) {
	if len(dataKey) != s.DataKeyLen {
		return nil, errs.New(errs.CryptoUnknown, "data key length %d does not match suite (%d)", len(dataKey), s.DataKeyLen)
	}

	contentKey := make([]byte, s.DataKeyLen)

	if !s.HasKDF() {
		copy(contentKey, dataKey)
		return contentKey, nil
	}

	h := hashFuncFor(s.KDF)
	if h == nil {
		secmem.Zero(contentKey)
		return nil, errs.New(errs.CryptoUnknown, "suite %#04x declares an unrecognized KDF", uint16(s.ID))
	}

	info := make([]byte, 2+MessageIDLen)
	binary.BigEndian.PutUint16(info[0:2], uint16(s.ID))
	copy(info[2:], messageID[:])

	reader := hkdf.New(h, dataKey, nil, info)
	if _, err := io.ReadFull(reader, contentKey); err != nil {
		secmem.Zero(contentKey)
		return nil, errs.Wrap(errs.CryptoUnknown, err, "HKDF failed")
	}

	return contentKey, nil
}
