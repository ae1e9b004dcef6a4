package provider

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	atcrypto "github.com/bluesky-social/indigo/atproto/crypto"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// KeyResolver builds documents for did:key identifiers on the K-256 and P-256
// curves without any network access.
type KeyResolver struct{}

func NewKeyResolver() *KeyResolver { return &KeyResolver{} }

// Resolve implements Resolver.
func (KeyResolver) Resolve(_ context.Context, did string) (*model.DIDDocument, error) {
	if !strings.HasPrefix(did, "did:key:") {
		return nil, fmt.Errorf("%s is not a did:key: %w", did, errs.ErrNotFound)
	}

	pub, err := atcrypto.ParsePublicDIDKey(did)
	if err != nil {
		return nil, fmt.Errorf("failed to parse did:key: %w", err)
	}

	var vmType string
	switch pub.(type) {
	case *atcrypto.PublicKeyK256:
		vmType = "EcdsaSecp256k1VerificationKey2019"
	case *atcrypto.PublicKeyP256:
		vmType = "EcdsaSecp256r1VerificationKey2019"
	default:
		return nil, fmt.Errorf("did:key curve %T: %w", pub, errs.ErrUnsupportedPublicKeyMethod)
	}

	id := did + "#" + strings.TrimPrefix(did, "did:key:")

	return &model.DIDDocument{
		Context: []string{"https://www.w3.org/ns/did/v1"},
		ID:      did,
		VerificationMethod: []model.VerificationMethod{{
			ID:           id,
			Type:         vmType,
			Controller:   did,
			PublicKeyHex: hex.EncodeToString(pub.Bytes()),
		}},
		Authentication:  []model.AuthenticationRef{{Ref: id}},
		AssertionMethod: []model.AuthenticationRef{{Ref: id}},
	}, nil
}
