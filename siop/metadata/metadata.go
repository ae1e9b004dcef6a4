// Package metadata holds the static SIOP discovery and registration values.
package metadata

import (
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

const (
	// SelfIssuedIssuer is the iss of every self-issued id_token.
	SelfIssuedIssuer = "https://self-issued.me/v2"

	ResponseTypeIDToken = "id_token"
	ScopeOpenID         = "openid"
	ScopeDIDAuthn       = "did_authn"
	DefaultScope        = ScopeOpenID + " " + ScopeDIDAuthn

	ResponseModePost     = "post"
	ResponseModeFragment = "fragment"
	ResponseModeQuery    = "query"
	ResponseModeFormPost = "form_post"
	DefaultResponseMode  = ResponseModePost

	SubjectTypePairwise = "pairwise"
	SubjectSyntaxDID    = "did"
	SubjectSyntaxJWK    = "jwk_thumbprint"
)

// SigningAlgorithms lists the JWS algorithms this module signs and verifies.
var SigningAlgorithms = []string{
	model.AlgES256KR,
	model.AlgES256K,
	model.AlgES256,
	model.AlgES384,
	model.AlgES512,
	model.AlgEdDSA,
	model.AlgRS256,
	model.AlgRS384,
	model.AlgRS512,
	model.AlgPS256,
	model.AlgPS384,
	model.AlgPS512,
}

// ProviderMetadata is the self-issued OP discovery document.
type ProviderMetadata struct {
	AuthorizationEndpoint            string   `json:"authorization_endpoint,omitempty"`
	Issuer                           string   `json:"issuer"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	SubjectSyntaxTypesSupported      []string `json:"subject_syntax_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	RequestObjectSigningAlgValues    []string `json:"request_object_signing_alg_values_supported"`
	ResponseModesSupported           []string `json:"response_modes_supported,omitempty"`
}

// Registration is the RP metadata carried in the request's registration claim.
type Registration struct {
	IDTokenSignedResponseAlg    string   `json:"id_token_signed_response_alg"`
	RequestObjectSigningAlg     string   `json:"request_object_signing_alg,omitempty"`
	SubjectSyntaxTypesSupported []string `json:"subject_syntax_types_supported,omitempty"`
	RedirectURIs                []string `json:"redirect_uris,omitempty"`
	JwksURI                     string   `json:"jwks_uri,omitempty"`
}

// DefaultProvider returns the metadata of a self-issued provider supporting
// every built-in algorithm.
func DefaultProvider() ProviderMetadata {
	return ProviderMetadata{
		AuthorizationEndpoint:            "openid:",
		Issuer:                           SelfIssuedIssuer,
		ResponseTypesSupported:           []string{ResponseTypeIDToken},
		ScopesSupported:                  []string{ScopeOpenID, ScopeDIDAuthn},
		SubjectTypesSupported:            []string{SubjectTypePairwise},
		SubjectSyntaxTypesSupported:      []string{SubjectSyntaxDID, SubjectSyntaxJWK},
		IDTokenSigningAlgValuesSupported: append([]string(nil), SigningAlgorithms...),
		RequestObjectSigningAlgValues:    append([]string(nil), SigningAlgorithms...),
		ResponseModesSupported:           []string{ResponseModePost, ResponseModeFormPost, ResponseModeFragment, ResponseModeQuery},
	}
}

// DefaultRegistration returns RP registration metadata asking for ES256K-R
// signed id_tokens.
func DefaultRegistration() Registration {
	return Registration{
		IDTokenSignedResponseAlg:    model.AlgES256KR,
		RequestObjectSigningAlg:     model.AlgES256KR,
		SubjectSyntaxTypesSupported: []string{SubjectSyntaxDID},
	}
}

// ToMap renders r as a claim value.
func (r Registration) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id_token_signed_response_alg": r.IDTokenSignedResponseAlg,
	}
	if r.RequestObjectSigningAlg != "" {
		m["request_object_signing_alg"] = r.RequestObjectSigningAlg
	}
	if len(r.SubjectSyntaxTypesSupported) > 0 {
		m["subject_syntax_types_supported"] = toAny(r.SubjectSyntaxTypesSupported)
	}
	if len(r.RedirectURIs) > 0 {
		m["redirect_uris"] = toAny(r.RedirectURIs)
	}
	if r.JwksURI != "" {
		m["jwks_uri"] = r.JwksURI
	}

	return m
}

// toAny keeps claim values in the shape JSON decoding produces, so generated
// and decoded claims compare equal.
func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}

	return out
}
