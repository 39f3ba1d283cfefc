// Package header implements the message header codec: the self-describing
// preamble that carries the algorithm suite, message id, encryption context,
// and wrapped data keys for one encrypted message, plus the header
// authentication tag that binds it all to the content key.
package header

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/aws/aws-encryption-sdk-go/crypto"
	"github.com/aws/aws-encryption-sdk-go/enccontext"
	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

// EDK is an encrypted data key as carried in the header: an opaque triple
// produced by a keyring and, on decrypt, handed back to a keyring to unwrap.
type EDK struct {
	ProviderID   []byte
	ProviderInfo []byte
	Ciphertext   []byte
}

// Header is the parsed form of a message header. Bytes, once populated by
// Encode or Parse, is the exact on-wire image of the fields below (excluding
// the trailing auth-blob) and is what the header authentication tag is
// computed over; callers must treat it as immutable.
type Header struct {
	SuiteID           suite.ID
	MessageID         [crypto.MessageIDLen]byte
	EncryptionContext map[string][]byte
	EDKs              []EDK
	ContentType       ContentType
	FrameLength       uint32

	Bytes []byte
}

// Parsed bundles a decoded Header with the suite it names and the trailing
// header-auth fields, since interpreting the auth blob requires knowing the
// suite's IV and tag lengths, which are only known once SuiteID is read.
type Parsed struct {
	Header  *Header
	Suite   suite.Suite
	AuthIV  []byte
	AuthTag []byte
}

// Encode canonicalizes h's encryption context and serializes h into its
// on-wire form, caching the result on h.Bytes. It does not include the
// header-auth trailer; that is computed separately over the returned bytes
// by the crypto package once the content key is known.
func Encode(h *Header) ([]byte, error) {
	if _, err := suite.Lookup(h.SuiteID); err != nil {
		return nil, err
	}
	if !h.ContentType.valid() {
		return nil, errs.New(errs.SerializationError, "invalid content type %d", h.ContentType)
	}
	if h.ContentType == ContentTypeFramed && h.FrameLength == 0 {
		return nil, errs.New(errs.SerializationError, "framed content type requires nonzero frame length")
	}
	if len(h.EDKs) == 0 {
		return nil, errs.New(errs.SerializationError, "header requires at least one encrypted data key")
	}

	ctxBytes, err := enccontext.Serialize(h.EncryptionContext)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(version1)
	buf.WriteByte(typeCustomerAEData)
	writeBE16(&buf, uint16(h.SuiteID))
	buf.Write(h.MessageID[:])
	buf.Write(ctxBytes)

	if len(h.EDKs) > 0xFFFF {
		return nil, errs.New(errs.SerializationError, "too many encrypted data keys: %d", len(h.EDKs))
	}
	writeBE16(&buf, uint16(len(h.EDKs)))
	for _, edk := range h.EDKs {
		if err := writeEDKField(&buf, edk.ProviderID); err != nil {
			return nil, err
		}
		if err := writeEDKField(&buf, edk.ProviderInfo); err != nil {
			return nil, err
		}
		if err := writeEDKField(&buf, edk.Ciphertext); err != nil {
			return nil, err
		}
	}

	buf.WriteByte(byte(h.ContentType))
	buf.Write([]byte{0, 0, 0, 0}) // reserved
	buf.WriteByte(ivLenByte)
	var frameLenBuf [4]byte
	binary.BigEndian.PutUint32(frameLenBuf[:], h.FrameLength)
	buf.Write(frameLenBuf[:])

	h.Bytes = buf.Bytes()
	return h.Bytes, nil
}

func writeEDKField(buf *bytes.Buffer, field []byte) error {
	if len(field) > 0xFFFF {
		return errs.New(errs.SerializationError, "encrypted data key field exceeds %d bytes", 0xFFFF)
	}
	writeBE16(buf, uint16(len(field)))
	buf.Write(field)
	return nil
}

func writeBE16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// Parse attempts to decode one header plus its trailing auth-blob from the
// front of buf. If buf does not yet hold enough bytes, it returns
// ErrIncomplete and the caller should supply more and retry; this is the
// "need more input" signal the session's ReadHeader state relies on, not a
// hard parse failure. Any other error is a hard failure on malformed input.
func Parse(buf []byte) (*Parsed, int, error) {
	cursor := buf

	if len(cursor) < 1 {
		return nil, 0, ErrIncomplete
	}
	if cursor[0] != version1 {
		return nil, 0, errs.New(errs.BadCiphertext, "unsupported header version %d", cursor[0])
	}
	if len(cursor) < 2 {
		return nil, 0, ErrIncomplete
	}
	if cursor[1] != typeCustomerAEData {
		return nil, 0, errs.New(errs.BadCiphertext, "unsupported header type %#x", cursor[1])
	}
	if len(cursor) < 4 {
		return nil, 0, ErrIncomplete
	}
	suiteID := suite.ID(binary.BigEndian.Uint16(cursor[2:4]))
	s, err := suite.Lookup(suiteID)
	if err != nil {
		return nil, 0, err
	}

	const fixedPrefix = 1 + 1 + 2 + 16 // version, type, suite id, message id
	if len(cursor) < fixedPrefix {
		return nil, 0, ErrIncomplete
	}
	h := &Header{SuiteID: suiteID}
	copy(h.MessageID[:], cursor[4:4+16])

	offset := fixedPrefix

	ctxLen, n, err := parseEncryptionContext(cursor[offset:])
	if err != nil {
		if err == enccontextIncomplete {
			return nil, 0, ErrIncomplete
		}
		return nil, 0, err
	}
	h.EncryptionContext, err = enccontext.Parse(cursor[offset : offset+ctxLen])
	if err != nil {
		return nil, 0, err
	}
	offset += n

	if len(cursor) < offset+2 {
		return nil, 0, ErrIncomplete
	}
	edkCount := binary.BigEndian.Uint16(cursor[offset : offset+2])
	offset += 2

	h.EDKs = make([]EDK, 0, edkCount)
	for i := uint16(0); i < edkCount; i++ {
		providerID, adv, err := readEDKField(cursor[offset:])
		if err != nil {
			return nil, 0, err
		}
		offset += adv

		providerInfo, adv, err := readEDKField(cursor[offset:])
		if err != nil {
			return nil, 0, err
		}
		offset += adv

		ciphertext, adv, err := readEDKField(cursor[offset:])
		if err != nil {
			return nil, 0, err
		}
		offset += adv

		h.EDKs = append(h.EDKs, EDK{ProviderID: providerID, ProviderInfo: providerInfo, Ciphertext: ciphertext})
	}

	const tailFixed = 1 + 4 + 1 + 4 // content type, reserved, iv len, frame length
	if len(cursor) < offset+tailFixed {
		return nil, 0, ErrIncomplete
	}
	h.ContentType = ContentType(cursor[offset])
	if !h.ContentType.valid() {
		return nil, 0, errs.New(errs.BadCiphertext, "invalid content type %d", cursor[offset])
	}
	offset++

	reserved := cursor[offset : offset+4]
	for _, b := range reserved {
		if b != 0 {
			return nil, 0, errs.New(errs.BadCiphertext, "reserved header bytes must be zero")
		}
	}
	offset += 4

	if cursor[offset] != ivLenByte {
		return nil, 0, errs.New(errs.BadCiphertext, "unsupported IV length byte %d", cursor[offset])
	}
	offset++

	h.FrameLength = binary.BigEndian.Uint32(cursor[offset : offset+4])
	offset += 4
	if h.ContentType == ContentTypeFramed && h.FrameLength == 0 {
		return nil, 0, errs.New(errs.BadCiphertext, "framed content type requires nonzero frame length")
	}

	h.Bytes = append([]byte(nil), cursor[:offset]...)

	authBlobLen := s.IVLen + s.TagLen
	if len(cursor) < offset+authBlobLen {
		return nil, 0, ErrIncomplete
	}
	authIV := append([]byte(nil), cursor[offset:offset+s.IVLen]...)
	authTag := append([]byte(nil), cursor[offset+s.IVLen:offset+authBlobLen]...)
	offset += authBlobLen

	return &Parsed{Header: h, Suite: s, AuthIV: authIV, AuthTag: authTag}, offset, nil
}

func readEDKField(buf []byte) (field []byte, advanced int, err error) {
	if len(buf) < 2 {
		return nil, 0, ErrIncomplete
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	if len(buf) < 2+n {
		return nil, 0, ErrIncomplete
	}
	return append([]byte(nil), buf[2:2+n]...), 2 + n, nil
}

// enccontextIncomplete signals truncated encryption-context bytes to Parse;
// it is translated to ErrIncomplete and never escapes this package.
var enccontextIncomplete = errors.New("header: encryption context truncated")

// parseEncryptionContext scans buf for the byte length of a well-formed
// encryption context block (count plus all key/value pairs) without fully
// decoding it, so Parse can decide whether more input is needed before
// handing the slice to enccontext.Parse.
func parseEncryptionContext(buf []byte) (length int, advanced int, err error) {
	if len(buf) < 2 {
		return 0, 0, enccontextIncomplete
	}
	count := binary.BigEndian.Uint16(buf[0:2])
	offset := 2
	for i := uint16(0); i < count; i++ {
		for j := 0; j < 2; j++ {
			if len(buf) < offset+2 {
				return 0, 0, enccontextIncomplete
			}
			n := int(binary.BigEndian.Uint16(buf[offset : offset+2]))
			offset += 2
			if len(buf) < offset+n {
				return 0, 0, enccontextIncomplete
			}
			offset += n
		}
	}
	return offset, offset, nil
}
