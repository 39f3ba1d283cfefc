package keyring

import (
	"context"

	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/header"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

// Static is a trivial test keyring with no real cryptography: it generates
// its one fixed data key, and "wraps" any data key by carrying it verbatim
// in the EDK ciphertext field. It exists for session and example-CLI tests
// that need a keyring without exercising RawAES's wire format.
type Static struct {
	ProviderID string
	DataKey    []byte
}

func (k *Static) edk(dataKey []byte) header.EDK {
	return header.EDK{
		ProviderID:   []byte(k.ProviderID),
		ProviderInfo: []byte("static"),
		Ciphertext:   append([]byte(nil), dataKey...),
	}
}

func (k *Static) GenerateDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte) ([]byte, header.EDK, error) {
	if len(k.DataKey) != s.DataKeyLen {
		return nil, header.EDK{}, errs.New(errs.CryptoUnknown, "static keyring data key length %d does not match suite (%d)", len(k.DataKey), s.DataKeyLen)
	}
	return append([]byte(nil), k.DataKey...), k.edk(k.DataKey), nil
}

func (k *Static) EncryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, dataKey []byte) (header.EDK, error) {
	return k.edk(dataKey), nil
}

func (k *Static) DecryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, edks []header.EDK) ([]byte, error) {
	for _, edk := range edks {
		if string(edk.ProviderID) != k.ProviderID {
			continue
		}
		if len(edk.Ciphertext) != s.DataKeyLen {
			continue
		}
		return append([]byte(nil), edk.Ciphertext...), nil
	}
	return nil, errs.New(errs.KeyringNotFound, "no encrypted data key matches provider %q", k.ProviderID)
}
