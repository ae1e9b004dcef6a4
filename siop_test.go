package siop_test

import (
	"context"
	"encoding/hex"
	"net/url"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	siop "github.com/pilacorp/go-siop-sdk"
	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
	"github.com/pilacorp/go-siop-sdk/siop/identity"
	"github.com/pilacorp/go-siop-sdk/siop/metadata"
	"github.com/pilacorp/go-siop-sdk/siop/request"
	"github.com/pilacorp/go-siop-sdk/siop/response"
)

const (
	rpDID       = "did:ethr:0xrelyingparty"
	opDID       = "did:example:wallet"
	redirectURI = "https://rp.example.com/siop/callback"
)

type parties struct {
	rp       *siop.RP
	op       *siop.Provider
	resolver *provider.StaticResolver
}

func newParties(t *testing.T, md metadata.ProviderMetadata) parties {
	t.Helper()
	ctx := context.Background()

	rpKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	opKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	resolver := provider.NewStaticResolver(
		&model.DIDDocument{
			ID: rpDID,
			VerificationMethod: []model.VerificationMethod{{
				ID:              rpDID + "#controller",
				Type:            "EcdsaSecp256k1RecoveryMethod2020",
				EthereumAddress: ethcrypto.PubkeyToAddress(rpKey.PublicKey).Hex(),
			}},
			Authentication: []model.AuthenticationRef{{Ref: rpDID + "#controller"}},
		},
		&model.DIDDocument{
			ID: opDID,
			VerificationMethod: []model.VerificationMethod{{
				ID:           opDID + "#keys-1",
				Type:         "EcdsaSecp256k1VerificationKey2019",
				PublicKeyHex: hex.EncodeToString(ethcrypto.CompressPubkey(&opKey.PublicKey)),
			}},
			Authentication: []model.AuthenticationRef{{Ref: opDID + "#keys-1"}},
		},
	)

	rp := siop.NewRP(rpDID, redirectURI, metadata.DefaultRegistration(), identity.WithResolvers(resolver))
	_, err = rp.Resolve(ctx)
	require.NoError(t, err)
	_, err = rp.AddSigningParams(hex.EncodeToString(ethcrypto.FromECDSA(rpKey)))
	require.NoError(t, err)

	op := siop.NewProvider(opDID, md, identity.WithResolvers(resolver))
	_, err = op.Resolve(ctx)
	require.NoError(t, err)
	_, err = op.AddSigningParams(hex.EncodeToString(ethcrypto.FromECDSA(opKey)))
	require.NoError(t, err)

	return parties{rp: rp, op: op, resolver: resolver}
}

func TestAuthenticationFlow(t *testing.T) {
	p := newParties(t, metadata.DefaultProvider())
	ctx := context.Background()

	token, err := p.rp.GenerateRequest(ctx, request.Options{Nonce: "nonce-1", State: "state-1"})
	require.NoError(t, err)

	requestURL := p.rp.RequestURL(token)
	u, err := url.Parse(requestURL)
	require.NoError(t, err)
	assert.Equal(t, "openid", u.Scheme)
	assert.Equal(t, redirectURI, u.Query().Get("client_id"))

	parsed, err := siop.ParseRequestURL(requestURL)
	require.NoError(t, err)
	assert.Equal(t, token, parsed)

	req, err := p.op.ValidateRequest(ctx, parsed)
	require.NoError(t, err)
	assert.Equal(t, rpDID, req.Payload[request.ClaimIssuer])
	assert.Equal(t, redirectURI, req.Payload[request.ClaimRedirectURI])

	idToken, err := p.op.GenerateResponse(ctx, req.Payload)
	require.NoError(t, err)

	v, err := p.rp.ValidateResponse(ctx, idToken, model.CheckParams{Nonce: "nonce-1", IsExpirable: true})
	require.NoError(t, err)
	require.True(t, v.Valid(), "unexpected validation error: %v", v.Err)
	assert.Equal(t, opDID, v.IDToken.Payload[response.ClaimSubject])
	assert.Equal(t, redirectURI, v.IDToken.Payload[response.ClaimAudience])
}

func TestAuthenticationFlowWithVPData(t *testing.T) {
	p := newParties(t, metadata.DefaultProvider())
	ctx := context.Background()

	token, err := p.rp.GenerateRequest(ctx, request.Options{
		Claims: map[string]interface{}{
			"vp_token": map[string]interface{}{
				"presentation_definition": map[string]interface{}{"id": "definition-1"},
			},
		},
	})
	require.NoError(t, err)

	req, err := p.op.ValidateRequest(ctx, token)
	require.NoError(t, err)

	tokens, err := p.op.GenerateResponseWithVPData(ctx, req.Payload, model.VPData{
		VPToken: map[string]interface{}{
			"verifiableCredential": []interface{}{map[string]interface{}{"issuer": "did:example:issuer"}},
		},
	})
	require.NoError(t, err)

	nonce, _ := req.Payload.GetString(request.ClaimNonce)
	v, err := p.rp.ValidateResponseWithVPData(ctx, *tokens, model.CheckParams{Nonce: nonce})
	require.NoError(t, err)
	assert.True(t, v.Valid(), "unexpected validation error: %v", v.Err)
	assert.NotNil(t, v.VPToken)
}

func TestURIRequest(t *testing.T) {
	p := newParties(t, metadata.DefaultProvider())
	ctx := context.Background()

	token, err := p.rp.GenerateURIRequest(ctx, "https://rp.example.com/siop/request/42", request.Options{})
	require.NoError(t, err)

	req, err := p.op.ValidateRequest(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "https://rp.example.com/siop/request/42", req.Payload[request.ClaimRequestURI])

	u, err := url.Parse(p.rp.RequestURIURL("https://rp.example.com/siop/request/42"))
	require.NoError(t, err)
	assert.Equal(t, "https://rp.example.com/siop/request/42", u.Query().Get("request_uri"))

	_, err = siop.ParseRequestURL(p.rp.RequestURIURL("https://rp.example.com/siop/request/42"))
	assert.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestExpiredResponse(t *testing.T) {
	p := newParties(t, metadata.DefaultProvider())
	ctx := context.Background()

	token, err := p.rp.GenerateRequest(ctx, request.Options{})
	require.NoError(t, err)
	req, err := p.op.ValidateRequest(ctx, token)
	require.NoError(t, err)

	p.op.SetExpiresIn(0)
	idToken, err := p.op.GenerateResponse(ctx, req.Payload)
	require.NoError(t, err)

	v, err := p.rp.ValidateResponse(ctx, idToken, model.CheckParams{IsExpirable: true})
	require.NoError(t, err)
	assert.ErrorIs(t, v.Err, errs.ErrExpired)
}

func TestProviderErrorResponse(t *testing.T) {
	md := metadata.DefaultProvider()
	md.RequestObjectSigningAlgValues = []string{model.AlgEdDSA}
	p := newParties(t, md)
	ctx := context.Background()

	token, err := p.rp.GenerateRequest(ctx, request.Options{})
	require.NoError(t, err)

	_, err = p.op.ValidateRequest(ctx, token)
	require.ErrorIs(t, err, errs.ErrUnsupportedMetadata)

	e, err := response.DecodeErrorResponse(p.op.ErrorResponse(err))
	require.NoError(t, err)
	assert.Equal(t, response.CodeRegistrationValueNotSupported, e.Code)

	_, err = p.op.ValidateRequest(ctx, "garbage")
	require.Error(t, err)
	e, err = response.DecodeErrorResponse(p.op.ErrorResponse(err))
	require.NoError(t, err)
	assert.Equal(t, response.CodeInvalidRequestObject, e.Code)
}
