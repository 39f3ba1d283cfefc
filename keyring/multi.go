package keyring

import (
	"context"

	"github.com/aws/aws-encryption-sdk-go/errs"
	"github.com/aws/aws-encryption-sdk-go/header"
	"github.com/aws/aws-encryption-sdk-go/suite"
)

// Multi composes one optional generator keyring plus zero or more child
// keyrings. On encrypt, Generator produces the data key and every Child
// additionally wraps it, yielding one EDK per member. On decrypt, each
// member is tried in order (generator first, if present) until one
// succeeds; a child's failure is not fatal until all have been tried.
type Multi struct {
	Generator Keyring
	Children  []Keyring
}

func (m *Multi) GenerateDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte) ([]byte, header.EDK, error) {
	if m.Generator == nil {
		return nil, header.EDK{}, errs.New(errs.KeyringNotFound, "multi-keyring has no generator")
	}
	return m.Generator.GenerateDataKey(ctx, s, encContext)
}

// EncryptDataKey wraps dataKey with the first child keyring only and
// returns its EDK; the other children are not called. Callers that need
// one EDK per child should call each child's EncryptDataKey directly, or
// use GenerateAll.
func (m *Multi) EncryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, dataKey []byte) (header.EDK, error) {
	if len(m.Children) == 0 {
		return header.EDK{}, errs.New(errs.KeyringNotFound, "multi-keyring has no child keyrings")
	}
	return m.Children[0].EncryptDataKey(ctx, s, encContext, dataKey)
}

// GenerateAll runs the full multi-keyring encrypt flow: the generator
// produces the data key and one EDK, then every child additionally wraps
// it, producing one EDK per member in order (generator first).
func (m *Multi) GenerateAll(ctx context.Context, s suite.Suite, encContext map[string][]byte) (dataKey []byte, edks []header.EDK, err error) {
	if m.Generator == nil {
		return nil, nil, errs.New(errs.KeyringNotFound, "multi-keyring has no generator")
	}
	dataKey, genEDK, err := m.Generator.GenerateDataKey(ctx, s, encContext)
	if err != nil {
		return nil, nil, err
	}
	edks = append(edks, genEDK)

	for _, child := range m.Children {
		edk, err := child.EncryptDataKey(ctx, s, encContext, dataKey)
		if err != nil {
			return nil, nil, err
		}
		edks = append(edks, edk)
	}
	return dataKey, edks, nil
}

// DecryptDataKey tries the generator (if present) then each child in
// order, returning the first successful unwrap.
func (m *Multi) DecryptDataKey(ctx context.Context, s suite.Suite, encContext map[string][]byte, edks []header.EDK) ([]byte, error) {
	members := make([]Keyring, 0, 1+len(m.Children))
	if m.Generator != nil {
		members = append(members, m.Generator)
	}
	members = append(members, m.Children...)

	var lastErr error
	for _, member := range members {
		dataKey, err := member.DecryptDataKey(ctx, s, encContext, edks)
		if err == nil {
			return dataKey, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errs.New(errs.KeyringNotFound, "multi-keyring has no members")
	}
	return nil, lastErr
}
