// Package keyring defines the abstract contract through which a session
// obtains a plaintext data key and its wrapped form(s), plus concrete
// implementations: a bit-exact raw-AES keyring, a trivial static keyring for
// tests, and a multi-keyring that composes several.
package keyring

import (
	"context"

	"github.com/aws/aws-encryption-sdk-go/header"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

// Keyring is the capability interface a session uses to produce or unwrap
// data keys. Implementations may be backed by local key material (as
// RawAES is) or by a remote service; the session never assumes which.
type Keyring interface {
	// GenerateDataKey produces a fresh plaintext data key of the suite's
	// data-key length plus the EDK that wraps it, called once per encrypt
	// when no data key has yet been generated.
	GenerateDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte) (dataKey []byte, edk header.EDK, err error)

	// EncryptDataKey wraps an already-generated data key, producing an
	// additional EDK; used by every non-generator member of a multi-keyring.
	EncryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, dataKey []byte) (header.EDK, error)

	// DecryptDataKey tries to unwrap one of edks, returning the first data
	// key of the correct length it can produce. It returns
	// errs.KeyringNotFound if none of the EDKs name a provider this keyring
	// recognizes, or errs.BadCiphertext if a recognized EDK fails to unwrap.
	DecryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, edks []header.EDK) (dataKey []byte, err error)
}
