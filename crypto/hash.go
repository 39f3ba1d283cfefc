package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/aws/aws-encryption-sdk-go/suite"
)

// hashFuncFor returns the hash constructor HKDF should use for the given
// KDF selector, or nil if kdf is KDFNone or unrecognized.
func hashFuncFor(kdf suite.KDF) func() hash.Hash {
	switch kdf {
	case suite.KDFHKDFSHA256:
		return sha256.New
	case suite.KDFHKDFSHA384:
		return sha512.New384
	default:
		return nil
	}
}
