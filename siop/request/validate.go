package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
	"github.com/pilacorp/go-siop-sdk/siop/common/jwt"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
	verificationmethod "github.com/pilacorp/go-siop-sdk/siop/common/verification-method"
	"github.com/pilacorp/go-siop-sdk/siop/metadata"
)

const registrationSchema = `{
  "type": "object",
  "properties": {
    "id_token_signed_response_alg": {"type": "string"},
    "request_object_signing_alg": {"type": "string"},
    "subject_syntax_types_supported": {"type": "array", "items": {"type": "string"}},
    "redirect_uris": {"type": "array", "items": {"type": "string"}},
    "jwks_uri": {"type": "string"}
  }
}`

var registrationLoader = gojsonschema.NewStringLoader(registrationSchema)

// Validate decodes a request token, resolves its issuer, verifies the
// signature with the issuer's key named by kid and checks the claims.
func Validate(ctx context.Context, token string, opts ...Opt) (*jwt.Decoded, error) {
	o := getOptions(opts...)

	decoded, err := jwt.Decode(token)
	if err != nil {
		return nil, err
	}

	iss, ok := decoded.Payload.GetString(ClaimIssuer)
	if !ok || iss == "" {
		return nil, fmt.Errorf("request has no iss: %w", errs.ErrMalformedInput)
	}

	doc, err := provider.NewChain(o.logger, o.resolvers...).Resolve(ctx, iss)
	if err != nil {
		return nil, err
	}

	key, err := verificationmethod.ExtractByKid(doc, decoded.Kid())
	if err != nil {
		return nil, err
	}

	if err := jwt.Verify(decoded, key, o.registry); err != nil {
		o.logger.Debug("request signature rejected", "iss", iss, "kid", decoded.Kid(), "error", err)
		return nil, err
	}

	if err := checkClaims(decoded.Payload); err != nil {
		return nil, err
	}

	if o.metadata != nil {
		if err := checkMetadata(decoded, *o.metadata); err != nil {
			return nil, err
		}
	}

	return decoded, nil
}

func checkClaims(payload jsonmap.JSONMap) error {
	if rt, _ := payload.GetString(ClaimResponseType); rt != metadata.ResponseTypeIDToken {
		return fmt.Errorf("response_type %q: %w", rt, errs.ErrMalformedInput)
	}

	scope, _ := payload.GetString(ClaimScope)
	if !slices.Contains(strings.Fields(scope), metadata.ScopeOpenID) {
		return fmt.Errorf("scope %q lacks openid: %w", scope, errs.ErrMalformedInput)
	}

	if clientID, _ := payload.GetString(ClaimClientID); clientID == "" {
		return fmt.Errorf("request has no client_id: %w", errs.ErrMalformedInput)
	}

	if reg, ok := payload[ClaimRegistration]; ok {
		result, err := gojsonschema.Validate(registrationLoader, gojsonschema.NewGoLoader(reg))
		if err != nil {
			return fmt.Errorf("failed to validate registration: %w: %w", errs.ErrMalformedInput, err)
		}
		if !result.Valid() {
			return fmt.Errorf("invalid registration %v: %w", result.Errors(), errs.ErrMalformedInput)
		}
	}

	return nil
}

// checkMetadata requires every requested value to be supported by md.
func checkMetadata(decoded *jwt.Decoded, md metadata.ProviderMetadata) error {
	payload := decoded.Payload

	scope, _ := payload.GetString(ClaimScope)
	for _, s := range strings.Fields(scope) {
		if !slices.Contains(md.ScopesSupported, s) {
			return fmt.Errorf("scope %q: %w", s, errs.ErrUnsupportedMetadata)
		}
	}

	rt, _ := payload.GetString(ClaimResponseType)
	if !slices.Contains(md.ResponseTypesSupported, rt) {
		return fmt.Errorf("response_type %q: %w", rt, errs.ErrUnsupportedMetadata)
	}

	if len(md.RequestObjectSigningAlgValues) > 0 && !slices.Contains(md.RequestObjectSigningAlgValues, decoded.Alg()) {
		return fmt.Errorf("request signed with %q: %w", decoded.Alg(), errs.ErrUnsupportedMetadata)
	}

	if mode, ok := payload.GetString(ClaimResponseMode); ok && len(md.ResponseModesSupported) > 0 && !slices.Contains(md.ResponseModesSupported, mode) {
		return fmt.Errorf("response_mode %q: %w", mode, errs.ErrUnsupportedMetadata)
	}

	if reg, ok := payload.GetMap(ClaimRegistration); ok {
		if alg, ok := reg.GetString("id_token_signed_response_alg"); ok && !slices.Contains(md.IDTokenSigningAlgValuesSupported, alg) {
			return fmt.Errorf("id_token_signed_response_alg %q: %w", alg, errs.ErrUnsupportedMetadata)
		}
	}

	return nil
}
