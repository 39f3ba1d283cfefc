package keyring

import (
	"bytes"
	"context"
	"testing"

	"github.com/aws/aws-encryption-sdk-go/suite"
)

func TestMultiGenerateAllAndDecrypt(t *testing.T) {
	s, err := suite.Lookup(suite.AES128GCMIV12AUTH16KDNONESIGNONE)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	gen := &Static{ProviderID: "generator", DataKey: sequentialBytes(s.DataKeyLen)}
	child1 := &Static{ProviderID: "child-1"}
	child2 := &Static{ProviderID: "child-2"}
	m := &Multi{Generator: gen, Children: []Keyring{child1, child2}}

	ctx := context.Background()
	dataKey, edks, err := m.GenerateAll(ctx, s, nil)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	if len(edks) != 3 {
		t.Fatalf("got %d EDKs, want 3", len(edks))
	}

	// Any single member is enough to unwrap: the generator, or a child
	// that only holds its own wrapped copy.
	for _, decryptM := range []*Multi{
		{Generator: gen},
		{Children: []Keyring{child2}},
	} {
		got, err := decryptM.DecryptDataKey(ctx, s, nil, edks)
		if err != nil {
			t.Fatalf("DecryptDataKey: %v", err)
		}
		if !bytes.Equal(got, dataKey) {
			t.Fatalf("got %x, want %x", got, dataKey)
		}
	}
}

func TestMultiGenerateAllRequiresGenerator(t *testing.T) {
	s, err := suite.Lookup(suite.AES128GCMIV12AUTH16KDNONESIGNONE)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	m := &Multi{Children: []Keyring{&Static{ProviderID: "child"}}}
	if _, _, err := m.GenerateAll(context.Background(), s, nil); err == nil {
		t.Fatalf("GenerateAll succeeded without a generator")
	}
}
