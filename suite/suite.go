// Package suite implements the algorithm-suite registry: the fixed-parameter
// descriptors that every other package in this module looks up by a 16-bit
// suite id before deriving keys, sealing frames, or laying out a header.
package suite

import "github.com/aws/aws-encryption-sdk-go/errs"

// KDF identifies the key-derivation function (if any) used to derive the
// per-message content key from the raw data key.
type KDF uint8

const (
	// KDFNone means the content key equals the data key.
	KDFNone KDF = iota
	// KDFHKDFSHA256 derives the content key with HKDF-Expand/SHA-256.
	KDFHKDFSHA256
	// KDFHKDFSHA384 derives the content key with HKDF-Expand/SHA-384.
	KDFHKDFSHA384
)

func (k KDF) String() string {
	switch k {
	case KDFNone:
		return "none"
	case KDFHKDFSHA256:
		return "HKDF-SHA256"
	case KDFHKDFSHA384:
		return "HKDF-SHA384"
	default:
		return "unknown"
	}
}

// Signature identifies the trailing-signature algorithm a suite declares.
// Signing/verification is out of scope for this module (see Open Question
// 2 in the specification this registry is built from); suites that carry a
// signature algorithm are rejected with errs.UnsupportedSuite until both paths
// exist.
type Signature uint8

const (
	SigNone Signature = iota
	SigECDSAP256SHA256
	SigECDSAP384SHA384
)

// PublicKeyContextKey is the encryption-context key under which a suite's
// verification public key is carried, for signature-bearing suites.
const PublicKeyContextKey = "aws-crypto-public-key"

// ID is a 16-bit algorithm suite identifier, as it appears on the wire.
type ID uint16

// Suite ids, matching the reference AWS Encryption SDK algorithm registry.
const (
	AES128GCMIV12AUTH16KDNONESIGNONE    ID = 0x0014
	AES192GCMIV12AUTH16KDNONESIGNONE    ID = 0x0046
	AES256GCMIV12AUTH16KDNONESIGNONE    ID = 0x0078
	AES128GCMIV12AUTH16KDSHA256SIGNONE  ID = 0x0114
	AES192GCMIV12AUTH16KDSHA256SIGNONE  ID = 0x0146
	AES256GCMIV12AUTH16KDSHA256SIGNONE  ID = 0x0178
	AES128GCMIV12AUTH16KDSHA256SIGEC256 ID = 0x0214
	AES192GCMIV12AUTH16KDSHA384SIGEC384 ID = 0x0346
	AES256GCMIV12AUTH16KDSHA384SIGEC384 ID = 0x0378
)

// Suite is an immutable algorithm-suite descriptor. Instances are only ever
// produced by Lookup and are safe to share across goroutines and for the
// lifetime of the process.
type Suite struct {
	ID                 ID
	DataKeyLen         int // bytes
	IVLen              int // bytes, always 12 for the GCM suites in this registry
	TagLen             int // bytes, always 16
	KDF                KDF
	SignatureAlgorithm Signature
}

var table = map[ID]Suite{
	0x0014: {ID: 0x0014, DataKeyLen: 16, IVLen: 12, TagLen: 16, KDF: KDFNone, SignatureAlgorithm: SigNone},
	0x0046: {ID: 0x0046, DataKeyLen: 24, IVLen: 12, TagLen: 16, KDF: KDFNone, SignatureAlgorithm: SigNone},
	0x0078: {ID: 0x0078, DataKeyLen: 32, IVLen: 12, TagLen: 16, KDF: KDFNone, SignatureAlgorithm: SigNone},
	0x0114: {ID: 0x0114, DataKeyLen: 16, IVLen: 12, TagLen: 16, KDF: KDFHKDFSHA256, SignatureAlgorithm: SigNone},
	0x0146: {ID: 0x0146, DataKeyLen: 24, IVLen: 12, TagLen: 16, KDF: KDFHKDFSHA256, SignatureAlgorithm: SigNone},
	0x0178: {ID: 0x0178, DataKeyLen: 32, IVLen: 12, TagLen: 16, KDF: KDFHKDFSHA256, SignatureAlgorithm: SigNone},
	0x0214: {ID: 0x0214, DataKeyLen: 16, IVLen: 12, TagLen: 16, KDF: KDFHKDFSHA256, SignatureAlgorithm: SigECDSAP256SHA256},
	0x0346: {ID: 0x0346, DataKeyLen: 24, IVLen: 12, TagLen: 16, KDF: KDFHKDFSHA384, SignatureAlgorithm: SigECDSAP384SHA384},
	0x0378: {ID: 0x0378, DataKeyLen: 32, IVLen: 12, TagLen: 16, KDF: KDFHKDFSHA384, SignatureAlgorithm: SigECDSAP384SHA384},
}

// Lookup returns the descriptor for id. It fails with errs.UnsupportedSuite
// for unknown ids, and for ids whose suite declares a signature algorithm,
// since this module has no signing/verification path (Open Question 2).
func Lookup(id ID) (Suite, error) {
	s, ok := table[id]
	if !ok || s.SignatureAlgorithm != SigNone {
		return Suite{}, errs.New(errs.UnsupportedSuite, "algorithm suite id %#04x", uint16(id))
	}
	return s, nil
}

// HasKDF reports whether this suite derives a content key via HKDF, as
// opposed to using the data key directly.
func (s Suite) HasKDF() bool {
	return s.KDF != KDFNone
}
