package keyring

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/aws/aws-encryption-sdk-go/crypto"
	"github.com/aws/aws-encryption-sdk-go/enccontext"
	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/header"
	"github.com/aws/aws-encryption-sdk-go/internal/secmem"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

const (
	rawAESWrappingKeyLen = 32
	rawAESTagBits        = 128
	rawAESIVLen          = 12
	rawAESTagLen         = 16
)

// RawAES is the reference local-key-material keyring, specified bit-exact
// because interoperability test vectors target it. The wrapping key is
// always 32 bytes and wraps under AES-256-GCM regardless of the data key's
// own suite; provider_info is master_key_id || be32(tag_bits=128) ||
// be32(iv_len=12) || iv, storing the tag length in bits even though the
// tag itself is always 16 bytes (the asymmetry is part of the wire format,
// not an oversight).
type RawAES struct {
	ProviderID   string
	MasterKeyID  string
	WrappingKey  []byte
	randomSource func([]byte) error
}

// NewRawAES constructs a RawAES keyring. wrappingKey must be exactly 32
// bytes. randomSource may be nil, selecting the module's default CSPRNG;
// tests pass a fixed source to get deterministic EDKs.
func NewRawAES(providerID, masterKeyID string, wrappingKey []byte, randomSource func([]byte) error) (*RawAES, error) {
	if len(wrappingKey) != rawAESWrappingKeyLen {
		return nil, errs.New(errs.CryptoUnknown, "raw AES wrapping key must be %d bytes, got %d", rawAESWrappingKeyLen, len(wrappingKey))
	}
	if randomSource == nil {
		randomSource = crypto.Random
	}
	return &RawAES{
		ProviderID:   providerID,
		MasterKeyID:  masterKeyID,
		WrappingKey:  append([]byte(nil), wrappingKey...),
		randomSource: randomSource,
	}, nil
}

func serializeProviderInfo(masterKeyID string, iv []byte) []byte {
	out := make([]byte, 0, len(masterKeyID)+4+4+len(iv))
	out = append(out, masterKeyID...)
	var tagBitsBuf, ivLenBuf [4]byte
	binary.BigEndian.PutUint32(tagBitsBuf[:], rawAESTagBits)
	binary.BigEndian.PutUint32(ivLenBuf[:], uint32(len(iv)))
	out = append(out, tagBitsBuf[:]...)
	out = append(out, ivLenBuf[:]...)
	out = append(out, iv...)
	return out
}

// parseProviderInfo validates providerInfo against masterKeyID and extracts
// the IV. It fails closed (returns ok=false) on any mismatch, including a
// wrong master key id, wrong advertised tag length, or wrong IV length.
func parseProviderInfo(masterKeyID string, providerInfo []byte) (iv []byte, ok bool) {
	want := len(masterKeyID) + 4 + 4 + rawAESIVLen
	if len(providerInfo) != want {
		return nil, false
	}
	if string(providerInfo[:len(masterKeyID)]) != masterKeyID {
		return nil, false
	}
	cursor := providerInfo[len(masterKeyID):]
	tagBits := binary.BigEndian.Uint32(cursor[0:4])
	if tagBits != rawAESTagBits {
		return nil, false
	}
	ivLen := binary.BigEndian.Uint32(cursor[4:8])
	if ivLen != rawAESIVLen {
		return nil, false
	}
	return cursor[8 : 8+rawAESIVLen], true
}

// wrappingAAD returns the AAD that binds an EDK to encContext: the
// serialized encryption context, or no bytes at all when the context is
// empty.
func wrappingAAD(encContext map[string][]byte) ([]byte, error) {
	if len(encContext) == 0 {
		return nil, nil
	}
	return enccontext.Serialize(encContext)
}

func newWrappingGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.CryptoUnknown, err, "aes.NewCipher")
	}
	gcm, err := cipher.NewGCMWithTagSize(block, rawAESTagLen)
	if err != nil {
		return nil, errs.Wrap(errs.CryptoUnknown, err, "cipher.NewGCM")
	}
	return gcm, nil
}

// GenerateDataKey generates a fresh random data key of the suite's length
// and wraps it, as EncryptDataKey would.
func (k *RawAES) GenerateDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte) ([]byte, header.EDK, error) {
	dataKey := make([]byte, s.DataKeyLen)
	if err := k.randomSource(dataKey); err != nil {
		return nil, header.EDK{}, err
	}
	edk, err := k.EncryptDataKey(ctx, s, encContext, dataKey)
	if err != nil {
		secmem.Zero(dataKey)
		return nil, header.EDK{}, err
	}
	return dataKey, edk, nil
}

// EncryptDataKey wraps dataKey under the 32-byte wrapping key with a fresh
// random IV, binding the serialized encryption context as AAD (an empty
// context binds an empty AAD).
func (k *RawAES) EncryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, dataKey []byte) (header.EDK, error) {
	iv := make([]byte, rawAESIVLen)
	if err := k.randomSource(iv); err != nil {
		return header.EDK{}, err
	}

	aad, err := wrappingAAD(encContext)
	if err != nil {
		return header.EDK{}, err
	}

	gcm, err := newWrappingGCM(k.WrappingKey)
	if err != nil {
		return header.EDK{}, err
	}
	sealed := gcm.Seal(nil, iv, dataKey, aad)

	return header.EDK{
		ProviderID:   []byte(k.ProviderID),
		ProviderInfo: serializeProviderInfo(k.MasterKeyID, iv),
		Ciphertext:   sealed,
	}, nil
}

// DecryptDataKey tries each edk in order, unwrapping the first one whose
// provider id and provider info match this keyring's configuration and
// whose ciphertext authenticates, returning a data key of the suite's
// length. If no edk names this provider, it fails errs.KeyringNotFound; if
// one does but fails to authenticate, errs.BadCiphertext.
func (k *RawAES) DecryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, edks []header.EDK) ([]byte, error) {
	aad, err := wrappingAAD(encContext)
	if err != nil {
		return nil, err
	}

	matched := false
	for _, edk := range edks {
		if string(edk.ProviderID) != k.ProviderID {
			continue
		}
		iv, ok := parseProviderInfo(k.MasterKeyID, edk.ProviderInfo)
		if !ok {
			continue
		}
		matched = true

		gcm, err := newWrappingGCM(k.WrappingKey)
		if err != nil {
			return nil, err
		}
		plaintext, err := gcm.Open(nil, iv, edk.Ciphertext, aad)
		if err != nil {
			continue
		}
		if len(plaintext) != s.DataKeyLen {
			secmem.Zero(plaintext)
			continue
		}
		return plaintext, nil
	}

	if !matched {
		return nil, errs.New(errs.KeyringNotFound, "no encrypted data key matches provider %q", k.ProviderID)
	}
	return nil, errs.New(errs.BadCiphertext, "no encrypted data key could be unwrapped by provider %q", k.ProviderID)
}
