package suite

import (
	"testing"

	"github.com/aws/aws-encryption-sdk-go/errs"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name       string
		id         ID
		wantKeyLen int
		wantKDF    KDF
		wantErr    bool
	}{
		{"AES128_NOKDF", AES128GCMIV12AUTH16KDNONESIGNONE, 16, KDFNone, false},
		{"AES192_NOKDF", AES192GCMIV12AUTH16KDNONESIGNONE, 24, KDFNone, false},
		{"AES256_NOKDF", AES256GCMIV12AUTH16KDNONESIGNONE, 32, KDFNone, false},
		{"AES128_HKDF256", AES128GCMIV12AUTH16KDSHA256SIGNONE, 16, KDFHKDFSHA256, false},
		{"AES192_HKDF256", AES192GCMIV12AUTH16KDSHA256SIGNONE, 24, KDFHKDFSHA256, false},
		{"AES256_HKDF256", AES256GCMIV12AUTH16KDSHA256SIGNONE, 32, KDFHKDFSHA256, false},
		{"unknown id", ID(0xDEAD), 0, KDFNone, true},
		{"signature suite gated off", AES128GCMIV12AUTH16KDSHA256SIGEC256, 0, KDFNone, true},
		{"signature suite gated off (384)", AES192GCMIV12AUTH16KDSHA384SIGEC384, 0, KDFNone, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Lookup(tc.id)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Lookup(%#04x) = %+v, want error", uint16(tc.id), s)
				}
				if kind, ok := errs.KindOf(err); !ok || kind != errs.UnsupportedSuite {
					t.Fatalf("Lookup(%#04x) error = %v, want errs.UnsupportedSuite", uint16(tc.id), err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%#04x) unexpected error: %v", uint16(tc.id), err)
			}
			if s.DataKeyLen != tc.wantKeyLen {
				t.Errorf("DataKeyLen = %d, want %d", s.DataKeyLen, tc.wantKeyLen)
			}
			if s.KDF != tc.wantKDF {
				t.Errorf("KDF = %v, want %v", s.KDF, tc.wantKDF)
			}
			if s.IVLen != 12 || s.TagLen != 16 {
				t.Errorf("IVLen/TagLen = %d/%d, want 12/16", s.IVLen, s.TagLen)
			}
		})
	}
}

func TestHasKDF(t *testing.T) {
	none, _ := Lookup(AES128GCMIV12AUTH16KDNONESIGNONE)
	if none.HasKDF() {
		t.Errorf("KDFNone suite reports HasKDF() = true")
	}
	withKDF, _ := Lookup(AES256GCMIV12AUTH16KDSHA256SIGNONE)
	if !withKDF.HasKDF() {
		t.Errorf("HKDF suite reports HasKDF() = false")
	}
}
