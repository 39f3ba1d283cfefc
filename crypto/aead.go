package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

// FrameKind distinguishes the three body-record shapes that feed into the
// frame AAD string, per the wire format's frame AAD construction.
type FrameKind uint8

const (
	FrameSingle FrameKind = iota
	FrameNonFinal
	FrameFinal
)

// aadString returns the literal AAD string for kind. These strings are
// bit-exact and MUST NOT change — they are part of the wire contract that
// makes this implementation interoperable with independent encryptors and
// decryptors of the same message format.
func (k FrameKind) aadString() (string, error) {
	switch k {
	case FrameSingle:
		return "AWSKMSEncryptionClient Single Block", nil
	case FrameNonFinal:
		return "AWSKMSEncryptionClient Frame", nil
	case FrameFinal:
		return "AWSKMSEncryptionClient Final Frame", nil
	default:
		return "", errs.New(errs.CryptoUnknown, "unrecognized frame kind %d", k)
	}
}

// newGCM constructs an AES-GCM AEAD for the given key, validating the
// suite's declared IV length along the way. Go's standard library is the
// idiomatic source for AES-GCM; unlike AES-CCM (which the standard
// library does not implement), GCM needs no hand-rolled primitive here.
func newGCM(s suite.Suite, key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errs.Wrap(errs.CryptoUnknown, err, "aes.NewCipher")
	}
	gcm, err := cipher.NewGCMWithTagSize(block, s.TagLen)
	if err != nil {
		return nil, errs.Wrap(errs.CryptoUnknown, err, "cipher.NewGCM")
	}
	if gcm.NonceSize() != s.IVLen {
		return nil, errs.New(errs.CryptoUnknown, "suite IV length %d does not match GCM nonce size %d", s.IVLen, gcm.NonceSize())
	}
	return gcm, nil
}

// SealHeaderAuth computes the header authentication tag over headerBytes
// with an empty plaintext, using an all-zero IV as the reference
// implementation does on encrypt (the header IV field carries no
// information; only the tag authenticates the header). Returns the
// (iv, tag) pair that is appended to the header on the wire.
func SealHeaderAuth(s suite.Suite, contentKey []byte, headerBytes []byte) (iv, tag []byte, err error) {
	gcm, err := newGCM(s, contentKey)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, s.IVLen)
	sealed := gcm.Seal(nil, iv, nil, headerBytes)
	return iv, sealed, nil
}

// VerifyHeaderAuth verifies the header authentication tag. authBlob is the
// exact on-wire iv||tag pair (length s.IVLen+s.TagLen). Any length or
// authentication mismatch fails with errs.BadCiphertext, matching
// aws_cryptosdk_verify_header's single failure mode for this operation.
func VerifyHeaderAuth(s suite.Suite, contentKey []byte, headerBytes []byte, authBlob []byte) error {
	if len(authBlob) != s.IVLen+s.TagLen {
		return errs.New(errs.BadCiphertext, "header auth blob length %d, want %d", len(authBlob), s.IVLen+s.TagLen)
	}
	iv := authBlob[:s.IVLen]
	tag := authBlob[s.IVLen:]

	gcm, err := newGCM(s, contentKey)
	if err != nil {
		return err
	}
	if _, err := gcm.Open(nil, iv, tag, headerBytes); err != nil {
		return errs.Wrap(errs.BadCiphertext, err, "header authentication failed")
	}
	return nil
}

// frameAAD builds message_id || aadString(kind) || be32(seqno) || be64(dataLen),
// the exact AAD construction update_frame_aad uses in the reference
// implementation.
func frameAAD(messageID [MessageIDLen]byte, kind FrameKind, seqno uint32, dataLen uint64) ([]byte, error) {
	s, err := kind.aadString()
	if err != nil {
		return nil, err
	}
	aad := make([]byte, 0, MessageIDLen+len(s)+4+8)
	aad = append(aad, messageID[:]...)
	aad = append(aad, s...)
	var seqnoBuf [4]byte
	binary.BigEndian.PutUint32(seqnoBuf[:], seqno)
	aad = append(aad, seqnoBuf[:]...)
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], dataLen)
	aad = append(aad, lenBuf[:]...)
	return aad, nil
}

// SealFrame encrypts plaintext for one body record under contentKey and
// the AAD this frame kind/seqno/length combination requires. Returns
// ciphertext||tag as a single slice, matching the wire layout.
func SealFrame(s suite.Suite, contentKey []byte, messageID [MessageIDLen]byte, seqno uint32, iv []byte, plaintext []byte, kind FrameKind) ([]byte, error) {
	if len(iv) != s.IVLen {
		return nil, errs.New(errs.CryptoUnknown, "IV length %d does not match suite (%d)", len(iv), s.IVLen)
	}
	aad, err := frameAAD(messageID, kind, seqno, uint64(len(plaintext)))
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(s, contentKey)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, iv, plaintext, aad), nil
}

// OpenFrame decrypts ciphertext (without its trailing tag) against tag,
// under the AAD this frame kind/seqno/length combination requires. A wrong
// tag length or a failed authentication returns errs.BadCiphertext; a wrong
// IV length, an unknown frame kind or a cipher construction failure returns
// errs.CryptoUnknown. The caller is responsible for zeroing its own output
// buffer (OpenFrame never retains plaintext on failure).
func OpenFrame(s suite.Suite, contentKey []byte, messageID [MessageIDLen]byte, seqno uint32, iv []byte, ciphertext, tag []byte, kind FrameKind) ([]byte, error) {
	if len(iv) != s.IVLen {
		return nil, errs.New(errs.CryptoUnknown, "IV length %d does not match suite (%d)", len(iv), s.IVLen)
	}
	if len(tag) != s.TagLen {
		return nil, errs.New(errs.BadCiphertext, "tag length %d, want %d", len(tag), s.TagLen)
	}
	aad, err := frameAAD(messageID, kind, seqno, uint64(len(ciphertext)))
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(s, contentKey)
	if err != nil {
		return nil, err
	}
	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, errs.Wrap(errs.BadCiphertext, err, "frame authentication failed")
	}
	return plaintext, nil
}
