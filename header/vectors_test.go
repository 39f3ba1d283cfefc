package header

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/aws/aws-encryption-sdk-go/suite"
)

func hexJoin(t *testing.T, pairs ...string) []byte {
	t.Helper()
	out := make([]byte, 0, len(pairs))
	for _, p := range pairs {
		b, err := hex.DecodeString(p)
		if err != nil {
			t.Fatalf("bad hex literal %q: %v", p, err)
		}
		out = append(out, b...)
	}
	return out
}

// TestParseHeaderAuthVector exercises the literal header-auth vector: a
// well-formed header for AES_128_GCM_IV12_AUTH16_KDNONE_SIGNONE, plus its
// trailing auth blob, both transcribed byte-for-byte.
func TestParseHeaderAuthVector(t *testing.T) {
	headerBytes := hexJoin(t,
		"01", "80", "00", "14", "fb", "b2", "ad", "b6", "c9", "67", "e1", "8f", "e2", "24", "9b", "07",
		"da", "f0", "72", "76", "00", "00", "00", "01", "00", "01", "78", "00", "00", "00", "00", "02",
		"00", "00", "00", "00", "0c", "00", "00", "10", "00",
	)
	authBlob := hexJoin(t,
		"00", "00", "00", "00", "00", "00", "00", "00", "00", "00", "00", "00",
		"02", "3f", "45", "60", "69", "f5", "3c", "dc", "73", "32", "2b", "1e", "27", "6c", "39", "25",
	)

	full := append(append([]byte{}, headerBytes...), authBlob...)

	parsed, consumed, err := Parse(full)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if consumed != len(full) {
		t.Fatalf("consumed %d, want %d", consumed, len(full))
	}
	if !bytes.Equal(parsed.Header.Bytes, headerBytes) {
		t.Fatalf("parsed header bytes = %x, want %x", parsed.Header.Bytes, headerBytes)
	}
	if parsed.Suite.ID != suite.AES128GCMIV12AUTH16KDNONESIGNONE {
		t.Fatalf("suite = %#04x, want %#04x", uint16(parsed.Suite.ID), uint16(suite.AES128GCMIV12AUTH16KDNONESIGNONE))
	}
	if !bytes.Equal(parsed.AuthIV, authBlob[:12]) {
		t.Fatalf("auth iv = %x, want %x", parsed.AuthIV, authBlob[:12])
	}
	if !bytes.Equal(parsed.AuthTag, authBlob[12:]) {
		t.Fatalf("auth tag = %x, want %x", parsed.AuthTag, authBlob[12:])
	}
	if parsed.Header.ContentType != ContentTypeFramed {
		t.Fatalf("content type = %v, want framed", parsed.Header.ContentType)
	}
	if parsed.Header.FrameLength != 0x1000 {
		t.Fatalf("frame length = %#x, want 0x1000", parsed.Header.FrameLength)
	}
	if len(parsed.Header.EDKs) != 1 {
		t.Fatalf("got %d EDKs, want 1", len(parsed.Header.EDKs))
	}
	edk := parsed.Header.EDKs[0]
	if !bytes.Equal(edk.ProviderID, []byte{0x78}) {
		t.Fatalf("EDK provider id = %x, want 78", edk.ProviderID)
	}
	if len(edk.ProviderInfo) != 0 {
		t.Fatalf("EDK provider info = %x, want empty", edk.ProviderInfo)
	}
	if len(edk.Ciphertext) != 0 {
		t.Fatalf("EDK ciphertext = %x, want empty", edk.Ciphertext)
	}
	if len(parsed.Header.EncryptionContext) != 0 {
		t.Fatalf("got %d encryption context entries, want 0", len(parsed.Header.EncryptionContext))
	}
}
