package request_test

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
	"github.com/pilacorp/go-siop-sdk/siop/identity"
	"github.com/pilacorp/go-siop-sdk/siop/metadata"
	"github.com/pilacorp/go-siop-sdk/siop/request"
)

const (
	rpDID       = "did:ethr:0xrp"
	redirectURI = "https://rp.example.com/callback"
)

type fixture struct {
	rp       *identity.Identity
	resolver *provider.StaticResolver
	kid      string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	doc := &model.DIDDocument{
		ID: rpDID,
		VerificationMethod: []model.VerificationMethod{{
			ID:              rpDID + "#controller",
			Type:            "EcdsaSecp256k1RecoveryMethod2020",
			Controller:      rpDID,
			EthereumAddress: ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		}},
		Authentication: []model.AuthenticationRef{{Ref: rpDID + "#controller"}},
	}
	resolver := provider.NewStaticResolver(doc)

	rp := identity.New(rpDID, identity.WithResolvers(resolver))
	_, err = rp.Resolve(context.Background())
	require.NoError(t, err)

	kid, err := rp.AddSigningParams(hex.EncodeToString(ethcrypto.FromECDSA(key)))
	require.NoError(t, err)

	return fixture{rp: rp, resolver: resolver, kid: kid}
}

func TestClaimsDefaults(t *testing.T) {
	f := newFixture(t)

	claims, err := request.Claims(f.rp, request.Options{RedirectURI: redirectURI})
	require.NoError(t, err)

	assert.Equal(t, rpDID, claims[request.ClaimIssuer])
	assert.Equal(t, metadata.ResponseTypeIDToken, claims[request.ClaimResponseType])
	assert.Equal(t, metadata.DefaultScope, claims[request.ClaimScope])
	assert.Equal(t, redirectURI, claims[request.ClaimClientID])
	assert.Equal(t, redirectURI, claims[request.ClaimRedirectURI])
	assert.Equal(t, metadata.DefaultResponseMode, claims[request.ClaimResponseMode])
	assert.Equal(t, metadata.DefaultRegistration().ToMap(), claims[request.ClaimRegistration])
	assert.NotEmpty(t, claims[request.ClaimNonce])
	assert.NotEmpty(t, claims[request.ClaimState])
	assert.NotContains(t, claims, request.ClaimClaims)

	other, err := request.Claims(f.rp, request.Options{RedirectURI: redirectURI})
	require.NoError(t, err)
	assert.NotEqual(t, claims[request.ClaimNonce], other[request.ClaimNonce])

	claims, err = request.Claims(f.rp, request.Options{
		RedirectURI:  redirectURI,
		ClientID:     "client-1",
		State:        "state-1",
		Nonce:        "nonce-1",
		ResponseMode: metadata.ResponseModeFragment,
		Scope:        "openid",
		Claims:       map[string]interface{}{"vp_token": map[string]interface{}{}},
		Extra:        map[string]interface{}{"nonce": "extra-wins", "custom": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims[request.ClaimClientID])
	assert.Equal(t, "state-1", claims[request.ClaimState])
	assert.Equal(t, "extra-wins", claims[request.ClaimNonce])
	assert.Equal(t, metadata.ResponseModeFragment, claims[request.ClaimResponseMode])
	assert.Equal(t, "openid", claims[request.ClaimScope])
	assert.Equal(t, "x", claims["custom"])
	assert.Contains(t, claims, request.ClaimClaims)

	_, err = request.Claims(f.rp, request.Options{})
	assert.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestGenerateValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opts := request.Options{
		RedirectURI: redirectURI,
		Nonce:       "n-0S6_WzA2Mj",
		State:       "af0ifjsldkj",
		Extra:       map[string]interface{}{"custom": "x"},
	}
	token, err := request.Generate(ctx, f.rp, opts)
	require.NoError(t, err)

	decoded, err := request.Validate(ctx, token,
		request.WithResolvers(f.resolver),
		request.WithMetadata(metadata.DefaultProvider()),
	)
	require.NoError(t, err)

	assert.Equal(t, model.AlgES256KR, decoded.Alg())
	assert.Equal(t, f.kid, decoded.Kid())
	assert.Equal(t, "JWT", decoded.Header["typ"])

	payload := decoded.Payload
	assert.Equal(t, rpDID, payload[request.ClaimIssuer])
	assert.Equal(t, redirectURI, payload[request.ClaimClientID])
	assert.Equal(t, "n-0S6_WzA2Mj", payload[request.ClaimNonce])
	assert.Equal(t, "af0ifjsldkj", payload[request.ClaimState])
	assert.Equal(t, "x", payload["custom"])
	assert.Equal(t, metadata.DefaultRegistration().ToMap(), mustMap(t, payload[request.ClaimRegistration]))

	want, err := request.Claims(f.rp, opts)
	require.NoError(t, err)
	assert.Equal(t, want, payload)
}

func TestGenerateURIRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := request.GenerateURIRequest(ctx, f.rp, "https://rp.example.com/request/1", request.Options{RedirectURI: redirectURI})
	require.NoError(t, err)

	decoded, err := request.Validate(ctx, token, request.WithResolvers(f.resolver))
	require.NoError(t, err)
	assert.Equal(t, "https://rp.example.com/request/1", decoded.Payload[request.ClaimRequestURI])

	_, err = request.GenerateURIRequest(ctx, f.rp, "", request.Options{RedirectURI: redirectURI})
	assert.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestGenerateWithoutSigningInfo(t *testing.T) {
	f := newFixture(t)
	f.rp.RemoveSigningParams(f.kid)

	_, err := request.Generate(context.Background(), f.rp, request.Options{RedirectURI: redirectURI})
	assert.ErrorIs(t, err, errs.ErrNoSigningInfo)
}

func TestValidateRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sign := func(extra map[string]interface{}, registration map[string]interface{}) string {
		token, err := request.Generate(ctx, f.rp, request.Options{RedirectURI: redirectURI, Extra: extra, Registration: registration})
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name  string
		token string
		opts  []request.Opt
		want  error
	}{
		{
			name:  "not a jwt",
			token: "not-a-jwt",
			want:  errs.ErrMalformedInput,
		},
		{
			name:  "tampered payload",
			token: tamper(t, sign(nil, nil), "nonce", "replayed"),
			want:  errs.ErrInvalidSignature,
		},
		{
			name:  "unknown issuer",
			token: sign(map[string]interface{}{"iss": "did:ethr:0xnobody"}, nil),
			want:  errs.ErrDocumentResolution,
		},
		{
			name:  "missing issuer",
			token: sign(map[string]interface{}{"iss": ""}, nil),
			want:  errs.ErrMalformedInput,
		},
		{
			name:  "wrong response type",
			token: sign(map[string]interface{}{"response_type": "code"}, nil),
			want:  errs.ErrMalformedInput,
		},
		{
			name:  "scope without openid",
			token: sign(map[string]interface{}{"scope": "did_authn"}, nil),
			want:  errs.ErrMalformedInput,
		},
		{
			name:  "empty client id",
			token: sign(map[string]interface{}{"client_id": ""}, nil),
			want:  errs.ErrMalformedInput,
		},
		{
			name:  "registration of the wrong shape",
			token: sign(nil, map[string]interface{}{"redirect_uris": "https://rp.example.com"}),
			want:  errs.ErrMalformedInput,
		},
		{
			name:  "unsupported scope",
			token: sign(map[string]interface{}{"scope": "openid email"}, nil),
			opts:  []request.Opt{request.WithMetadata(metadata.DefaultProvider())},
			want:  errs.ErrUnsupportedMetadata,
		},
		{
			name:  "unsupported response mode",
			token: sign(map[string]interface{}{"response_mode": "web_message"}, nil),
			opts:  []request.Opt{request.WithMetadata(metadata.DefaultProvider())},
			want:  errs.ErrUnsupportedMetadata,
		},
		{
			name:  "unsupported id_token alg",
			token: sign(nil, map[string]interface{}{"id_token_signed_response_alg": "HS256"}),
			opts:  []request.Opt{request.WithMetadata(metadata.DefaultProvider())},
			want:  errs.ErrUnsupportedMetadata,
		},
		{
			name:  "unsupported request alg",
			token: sign(nil, nil),
			opts: []request.Opt{request.WithMetadata(metadata.ProviderMetadata{
				ResponseTypesSupported:        []string{metadata.ResponseTypeIDToken},
				ScopesSupported:               []string{metadata.ScopeOpenID, metadata.ScopeDIDAuthn},
				RequestObjectSigningAlgValues: []string{model.AlgEdDSA},
			})},
			want: errs.ErrUnsupportedMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]request.Opt{request.WithResolvers(f.resolver)}, tt.opts...)
			_, err := request.Validate(ctx, tt.token, opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateUnknownKid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := request.Generate(ctx, f.rp, request.Options{RedirectURI: redirectURI})
	require.NoError(t, err)

	rotated := provider.NewStaticResolver(&model.DIDDocument{
		ID: rpDID,
		VerificationMethod: []model.VerificationMethod{{
			ID:              rpDID + "#rotated",
			Type:            "EcdsaSecp256k1RecoveryMethod2020",
			EthereumAddress: "0x0000000000000000000000000000000000000001",
		}},
		Authentication: []model.AuthenticationRef{{Ref: rpDID + "#rotated"}},
	})

	_, err = request.Validate(ctx, token, request.WithResolvers(rotated))
	assert.ErrorIs(t, err, errs.ErrNoMatchingPublicKey)
}

func TestAddressOnlyKeys(t *testing.T) {
	ctx := context.Background()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	tests := []struct {
		name string
		vm   model.VerificationMethod
	}{
		{
			name: "blockchainAccountId",
			vm:   model.VerificationMethod{Type: "EcdsaSecp256k1VerificationKey2019", BlockchainAccountID: "eip155:1:" + addr},
		},
		{
			name: "address",
			vm:   model.VerificationMethod{Type: "EcdsaSecp256k1VerificationKey2019", Address: addr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			did := "did:pkh:eip155:1:" + addr
			tt.vm.ID = did + "#" + tt.name
			doc := &model.DIDDocument{
				ID:                 did,
				VerificationMethod: []model.VerificationMethod{tt.vm},
				Authentication:     []model.AuthenticationRef{{Ref: tt.vm.ID}},
			}
			resolver := provider.NewStaticResolver(doc)

			rp := identity.New(did, identity.WithResolvers(resolver))
			_, err := rp.Resolve(ctx)
			require.NoError(t, err)

			kid, err := rp.AddSigningParams(hex.EncodeToString(ethcrypto.FromECDSA(key)))
			require.NoError(t, err)
			assert.Equal(t, tt.vm.ID, kid)

			token, err := request.Generate(ctx, rp, request.Options{RedirectURI: redirectURI})
			require.NoError(t, err)

			decoded, err := request.Validate(ctx, token, request.WithResolvers(resolver))
			require.NoError(t, err)
			assert.Equal(t, model.AlgES256K, decoded.Alg())
		})
	}
}

// tamper rewrites one claim of a signed token, keeping the signature.
func tamper(t *testing.T, token, claim string, value interface{}) string {
	t.Helper()

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	payload[claim] = value
	raw, err = json.Marshal(payload)
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString(raw)

	return strings.Join(parts, ".")
}

func mustMap(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()

	m, ok := v.(map[string]interface{})
	require.True(t, ok, "expected an object, got %T", v)

	return m
}
