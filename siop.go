// Package siop is the entry point of the Self-Issued OpenID Provider SDK.
//
// An RP signs authentication requests with keys bound to its DID and validates
// the self-issued responses it receives. A Provider validates those requests
// and answers with an id_token, optionally paired with a vp_token.
package siop

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
	"github.com/pilacorp/go-siop-sdk/siop/common/jwt"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	"github.com/pilacorp/go-siop-sdk/siop/config"
	"github.com/pilacorp/go-siop-sdk/siop/identity"
	"github.com/pilacorp/go-siop-sdk/siop/metadata"
	"github.com/pilacorp/go-siop-sdk/siop/request"
	"github.com/pilacorp/go-siop-sdk/siop/response"
)

// RP is a relying party bound to a DID.
type RP struct {
	*identity.Identity
	redirectURI  string
	registration metadata.Registration
}

// NewRP creates a relying party. Its identity is resolved with the resolvers
// given in opts; the same resolvers serve to resolve response subjects.
func NewRP(did, redirectURI string, registration metadata.Registration, opts ...identity.Opt) *RP {
	return &RP{
		Identity:     identity.New(did, opts...),
		redirectURI:  redirectURI,
		registration: registration,
	}
}

// RedirectURI returns the URI responses are sent to.
func (rp *RP) RedirectURI() string { return rp.redirectURI }

// GenerateRequest signs a request. Zero RedirectURI and Registration in o
// default to the RP's own.
func (rp *RP) GenerateRequest(ctx context.Context, o request.Options, opts ...request.Opt) (string, error) {
	return request.Generate(ctx, rp.Identity, rp.defaults(o), rp.requestOpts(opts)...)
}

// GenerateURIRequest signs a request that points to requestURI.
func (rp *RP) GenerateURIRequest(ctx context.Context, requestURI string, o request.Options, opts ...request.Opt) (string, error) {
	return request.GenerateURIRequest(ctx, rp.Identity, requestURI, rp.defaults(o), rp.requestOpts(opts)...)
}

// RequestURL renders a signed request as an openid:// URL.
func (rp *RP) RequestURL(token string) string {
	q := url.Values{}
	q.Set(request.ClaimResponseType, metadata.ResponseTypeIDToken)
	q.Set(request.ClaimClientID, rp.redirectURI)
	q.Set(request.ClaimScope, metadata.DefaultScope)
	q.Set("request", token)

	return "openid://?" + q.Encode()
}

// RequestURIURL renders a by-reference request as an openid:// URL.
func (rp *RP) RequestURIURL(requestURI string) string {
	q := url.Values{}
	q.Set(request.ClaimResponseType, metadata.ResponseTypeIDToken)
	q.Set(request.ClaimClientID, rp.redirectURI)
	q.Set(request.ClaimScope, metadata.DefaultScope)
	q.Set(request.ClaimRequestURI, requestURI)

	return "openid://?" + q.Encode()
}

// ValidateResponse verifies an id_token.
func (rp *RP) ValidateResponse(ctx context.Context, token string, check model.CheckParams, opts ...response.Opt) (*response.Validation, error) {
	return response.Validate(ctx, token, rp.check(check), rp.responseOpts(opts)...)
}

// ValidateResponseWithVPData verifies an id_token and its vp_token.
func (rp *RP) ValidateResponseWithVPData(ctx context.Context, tokens model.Tokens, check model.CheckParams, opts ...response.Opt) (*response.Validation, error) {
	return response.ValidateWithVPData(ctx, tokens, rp.check(check), rp.responseOpts(opts)...)
}

func (rp *RP) defaults(o request.Options) request.Options {
	if o.RedirectURI == "" {
		o.RedirectURI = rp.redirectURI
	}
	if o.Registration == nil {
		o.Registration = rp.registration.ToMap()
	}

	return o
}

func (rp *RP) check(check model.CheckParams) model.CheckParams {
	if check.RedirectURI == "" {
		check.RedirectURI = rp.redirectURI
	}

	return check
}

func (rp *RP) requestOpts(opts []request.Opt) []request.Opt {
	return append([]request.Opt{request.WithLogger(rp.Logger())}, opts...)
}

func (rp *RP) responseOpts(opts []response.Opt) []response.Opt {
	return append([]response.Opt{
		response.WithResolvers(rp.Resolver().Resolvers()...),
		response.WithRegistry(rp.Registry()),
		response.WithLogger(rp.Logger()),
	}, opts...)
}

// Provider is a self-issued OpenID provider bound to a DID.
type Provider struct {
	*identity.Identity
	metadata  metadata.ProviderMetadata
	expiresIn int64
}

// NewProvider creates a provider advertising md. Responses expire after
// config.ResponseExpiresIn() seconds.
func NewProvider(did string, md metadata.ProviderMetadata, opts ...identity.Opt) *Provider {
	return &Provider{
		Identity:  identity.New(did, opts...),
		metadata:  md,
		expiresIn: config.ResponseExpiresIn(),
	}
}

// Metadata returns the advertised provider metadata.
func (p *Provider) Metadata() metadata.ProviderMetadata { return p.metadata }

// SetExpiresIn changes the id_token lifetime in seconds.
func (p *Provider) SetExpiresIn(seconds int64) { p.expiresIn = seconds }

// ValidateRequest verifies a request against the RP's DID document and the
// provider metadata.
func (p *Provider) ValidateRequest(ctx context.Context, token string, opts ...request.Opt) (*jwt.Decoded, error) {
	return request.Validate(ctx, token, append([]request.Opt{
		request.WithResolvers(p.Resolver().Resolvers()...),
		request.WithRegistry(p.Registry()),
		request.WithLogger(p.Logger()),
		request.WithMetadata(p.metadata),
	}, opts...)...)
}

// GenerateResponse answers a validated request with an id_token.
func (p *Provider) GenerateResponse(ctx context.Context, req jsonmap.JSONMap, opts ...response.Opt) (string, error) {
	return response.Generate(ctx, p.Identity, req, p.expiresIn, append([]response.Opt{response.WithLogger(p.Logger())}, opts...)...)
}

// GenerateResponseWithVPData answers a validated request with an id_token and
// a vp_token.
func (p *Provider) GenerateResponseWithVPData(ctx context.Context, req jsonmap.JSONMap, vps model.VPData, opts ...response.Opt) (*model.Tokens, error) {
	return response.GenerateWithVPData(ctx, p.Identity, req, p.expiresIn, vps, append([]response.Opt{response.WithLogger(p.Logger())}, opts...)...)
}

// ErrorResponse encodes the error response a failed request validation maps to.
func (p *Provider) ErrorResponse(err error) string {
	return response.ErrorResponseFor(err).Encode()
}

// ParseRequestURL extracts the request token from an openid:// URL.
func ParseRequestURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse request url: %w: %w", errs.ErrMalformedInput, err)
	}

	token := u.Query().Get("request")
	if token == "" {
		return "", fmt.Errorf("request url has no request parameter: %w", errs.ErrMalformedInput)
	}

	return token, nil
}
