// Package request builds and validates SIOP authentication requests.
package request

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
	"github.com/pilacorp/go-siop-sdk/siop/common/jwt"
	"github.com/pilacorp/go-siop-sdk/siop/identity"
	"github.com/pilacorp/go-siop-sdk/siop/metadata"
)

// Claim names of a request.
const (
	ClaimIssuer       = "iss"
	ClaimResponseType = "response_type"
	ClaimScope        = "scope"
	ClaimClientID     = "client_id"
	ClaimRedirectURI  = "redirect_uri"
	ClaimRegistration = "registration"
	ClaimState        = "state"
	ClaimNonce        = "nonce"
	ClaimResponseMode = "response_mode"
	ClaimClaims       = "claims"
	ClaimRequestURI   = "request_uri"
)

// Options are the caller's overrides of the default request claims.
type Options struct {
	// RedirectURI is required; it is also the default client_id.
	RedirectURI  string
	ClientID     string
	Registration map[string]interface{}
	State        string
	Nonce        string
	ResponseMode string
	Scope        string
	// Claims is the OIDC claims request, e.g. a vp_token presentation_definition.
	Claims map[string]interface{}
	// Extra claims are merged last and override everything else.
	Extra map[string]interface{}
}

// Claims returns the request payload rp would sign for o.
func Claims(rp *identity.Identity, o Options) (jsonmap.JSONMap, error) {
	if o.RedirectURI == "" {
		return nil, fmt.Errorf("redirect uri is required: %w", errs.ErrMalformedInput)
	}

	claims := jsonmap.JSONMap{
		ClaimIssuer:       rp.DID(),
		ClaimResponseType: metadata.ResponseTypeIDToken,
		ClaimScope:        metadata.DefaultScope,
		ClaimClientID:     o.RedirectURI,
		ClaimRedirectURI:  o.RedirectURI,
		ClaimResponseMode: metadata.DefaultResponseMode,
		ClaimNonce:        uuid.NewString(),
		ClaimState:        uuid.NewString(),
		ClaimRegistration: metadata.DefaultRegistration().ToMap(),
	}

	if o.ClientID != "" {
		claims[ClaimClientID] = o.ClientID
	}
	if o.Registration != nil {
		claims[ClaimRegistration] = o.Registration
	}
	if o.State != "" {
		claims[ClaimState] = o.State
	}
	if o.Nonce != "" {
		claims[ClaimNonce] = o.Nonce
	}
	if o.ResponseMode != "" {
		claims[ClaimResponseMode] = o.ResponseMode
	}
	if o.Scope != "" {
		claims[ClaimScope] = o.Scope
	}
	if o.Claims != nil {
		claims[ClaimClaims] = o.Claims
	}

	return claims.Merge(o.Extra), nil
}

// Generate signs a request with one of rp's signing keys picked at random.
func Generate(ctx context.Context, rp *identity.Identity, o Options, opts ...Opt) (string, error) {
	claims, err := Claims(rp, o)
	if err != nil {
		return "", err
	}

	return sign(ctx, rp, claims, getOptions(opts...))
}

// GenerateURIRequest signs a request that points to requestURI for by
// reference delivery.
func GenerateURIRequest(ctx context.Context, rp *identity.Identity, requestURI string, o Options, opts ...Opt) (string, error) {
	if requestURI == "" {
		return "", fmt.Errorf("request uri is required: %w", errs.ErrMalformedInput)
	}

	claims, err := Claims(rp, o)
	if err != nil {
		return "", err
	}
	claims[ClaimRequestURI] = requestURI

	return sign(ctx, rp, claims, getOptions(opts...))
}

func sign(ctx context.Context, rp *identity.Identity, claims jsonmap.JSONMap, o *options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := rp.PickSigningInfo(o.rand)
	if err != nil {
		return "", err
	}

	token, err := jwt.Sign(claims, info, rp.Registry())
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}

	o.logger.Debug("request generated", "iss", rp.DID(), "kid", info.Kid, "alg", info.Alg)
	return token, nil
}
