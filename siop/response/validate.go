package response

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
	"github.com/pilacorp/go-siop-sdk/siop/common/jwt"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
	verificationmethod "github.com/pilacorp/go-siop-sdk/siop/common/verification-method"
)

// ValidationError is a claims-level failure of a response. It is reported in
// Validation.Err rather than as an error so the relying party can render it.
type ValidationError struct {
	// Err is one of errs.ErrAudienceMismatch, errs.ErrNonceMismatch,
	// errs.ErrExpired, errs.ErrTooEarly or errs.ErrInvalidVPToken.
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validation is the outcome of validating a response whose signature checked out.
type Validation struct {
	IDToken *jwt.Decoded
	VPToken *jwt.Decoded
	Err     *ValidationError
}

// Valid reports whether every claim check passed.
func (v *Validation) Valid() bool { return v.Err == nil }

// Validate verifies an id_token and checks its claims against check.
//
// Malformed tokens, resolution failures, unknown keys and bad signatures are
// returned as errors. Claims failures are returned in Validation.Err with a
// nil error.
func Validate(ctx context.Context, token string, check model.CheckParams, opts ...Opt) (*Validation, error) {
	o := getOptions(opts...)

	decoded, key, err := verifyIDToken(ctx, token, o)
	if err != nil {
		return nil, err
	}

	v := &Validation{IDToken: decoded}
	v.Err = checkClaims(decoded.Payload, check, o)
	if v.Err != nil {
		o.logger.Debug("response claims rejected", "kid", key.ID, "error", v.Err)
	}

	return v, nil
}

// ValidateWithVPData validates the id_token as Validate does, then verifies the
// vp_token with the same key and checks that it carries presentation evidence.
func ValidateWithVPData(ctx context.Context, tokens model.Tokens, check model.CheckParams, opts ...Opt) (*Validation, error) {
	o := getOptions(opts...)

	decoded, key, err := verifyIDToken(ctx, tokens.IDToken, o)
	if err != nil {
		return nil, err
	}

	v := &Validation{IDToken: decoded}
	if v.Err = checkClaims(decoded.Payload, check, o); v.Err != nil {
		return v, nil
	}

	if echo, ok := decoded.Payload[ClaimVPToken]; ok {
		if _, isObject := echo.(map[string]interface{}); !isObject {
			v.Err = &ValidationError{Err: errs.ErrInvalidVPToken, Message: "_vp_token is not an object"}
			return v, nil
		}
	}

	vp, err := jwt.Decode(tokens.VPToken)
	if err != nil {
		return nil, fmt.Errorf("vp_token: %w", err)
	}
	if err := jwt.Verify(vp, key, o.registry); err != nil {
		return nil, fmt.Errorf("vp_token: %w", err)
	}
	v.VPToken = vp

	if err := checkPresentation(vp.Payload); err != nil {
		v.Err = &ValidationError{Err: errs.ErrInvalidVPToken, Message: err.Error()}
		o.logger.Debug("vp_token rejected", "kid", key.ID, "error", err)
	}

	return v, nil
}

// verifyIDToken decodes token and verifies it with the subject's key: the
// DID document key named by kid, or the embedded sub_jwk for a thumbprint
// subject.
func verifyIDToken(ctx context.Context, token string, o *options) (*jwt.Decoded, model.CanonicalKey, error) {
	decoded, err := jwt.Decode(token)
	if err != nil {
		return nil, model.CanonicalKey{}, err
	}

	sub, _ := decoded.Payload.GetString(ClaimSubject)
	did, _ := decoded.Payload.GetString(ClaimDID)
	if !strings.HasPrefix(sub, "did:") && strings.HasPrefix(did, "did:") {
		sub = did
	}

	var key model.CanonicalKey
	switch {
	case strings.HasPrefix(sub, "did:"):
		doc, err := provider.NewChain(o.logger, o.resolvers...).Resolve(ctx, sub)
		if err != nil {
			return nil, model.CanonicalKey{}, err
		}
		key, err = verificationmethod.ExtractByKid(doc, decoded.Kid())
		if err != nil {
			return nil, model.CanonicalKey{}, err
		}
	case sub != "":
		key, err = subJWKKey(decoded, sub)
		if err != nil {
			return nil, model.CanonicalKey{}, err
		}
	default:
		return nil, model.CanonicalKey{}, fmt.Errorf("id_token has no sub: %w", errs.ErrMalformedInput)
	}

	if err := jwt.Verify(decoded, key, o.registry); err != nil {
		o.logger.Debug("id_token signature rejected", "sub", sub, "kid", decoded.Kid(), "error", err)
		return nil, model.CanonicalKey{}, err
	}

	return decoded, key, nil
}

// subJWKKey returns the embedded sub_jwk as a key when sub is its thumbprint.
func subJWKKey(decoded *jwt.Decoded, sub string) (model.CanonicalKey, error) {
	raw, ok := decoded.Payload.GetMap(ClaimSubJWK)
	if !ok {
		return model.CanonicalKey{}, fmt.Errorf("sub %q is not a DID and no sub_jwk is present: %w", sub, errs.ErrNoMatchingPublicKey)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return model.CanonicalKey{}, fmt.Errorf("failed to marshal sub_jwk: %w", err)
	}
	var jwk model.JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return model.CanonicalKey{}, fmt.Errorf("invalid sub_jwk: %w: %w", errs.ErrMalformedInput, err)
	}

	thumbprint, err := Thumbprint(&jwk)
	if err != nil {
		return model.CanonicalKey{}, err
	}
	if thumbprint != sub {
		return model.CanonicalKey{}, fmt.Errorf("sub is not the sub_jwk thumbprint: %w", errs.ErrNoMatchingPublicKey)
	}

	alg := jwk.Alg
	if alg == "" {
		alg = verificationmethod.AlgorithmForJWK(&jwk)
	}

	jwk.D = ""
	public, _ := json.Marshal(jwk)

	return model.CanonicalKey{
		ID:        sub,
		KeyFamily: model.KeyFamily(strings.ToUpper(jwk.Kty)),
		Algorithm: alg,
		Format:    model.KeyFormatJWK,
		PublicKey: string(public),
	}, nil
}

// Thumbprint computes the RFC 7638 SHA-256 thumbprint of jwk, base64url encoded.
func Thumbprint(jwk *model.JWK) (string, error) {
	var members map[string]string
	switch strings.ToUpper(jwk.Kty) {
	case "EC":
		members = map[string]string{"crv": jwk.Crv, "kty": jwk.Kty, "x": jwk.X, "y": jwk.Y}
	case "OKP":
		members = map[string]string{"crv": jwk.Crv, "kty": jwk.Kty, "x": jwk.X}
	case "RSA":
		members = map[string]string{"e": jwk.E, "kty": jwk.Kty, "n": jwk.N}
	default:
		return "", fmt.Errorf("jwk kty %q: %w", jwk.Kty, errs.ErrUnsupportedKeyFormat)
	}

	// encoding/json sorts map keys, which is the member order RFC 7638 requires.
	data, err := json.Marshal(members)
	if err != nil {
		return "", fmt.Errorf("failed to marshal jwk members: %w", err)
	}
	sum := sha256.Sum256(data)

	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func checkClaims(payload jsonmap.JSONMap, check model.CheckParams, o *options) *ValidationError {
	if !audienceMatches(payload[ClaimAudience], check.RedirectURI) {
		return &ValidationError{Err: errs.ErrAudienceMismatch, Message: fmt.Sprintf("aud %v is not %q", payload[ClaimAudience], check.RedirectURI)}
	}

	if check.Nonce != "" {
		if nonce, _ := payload.GetString(ClaimNonce); nonce != check.Nonce {
			return &ValidationError{Err: errs.ErrNonceMismatch, Message: fmt.Sprintf("nonce %q is not %q", nonce, check.Nonce)}
		}
	}

	now := o.now()

	if check.IsExpirable {
		exp, ok := payload.GetInt64(ClaimExpiration)
		if !ok || exp <= now.Unix() {
			return &ValidationError{Err: errs.ErrExpired, Message: fmt.Sprintf("exp %d is not after %d", exp, now.Unix())}
		}
	}

	if check.ValidBefore > 0 {
		iat, ok := payload.GetInt64(ClaimIssuedAt)
		if !ok {
			return &ValidationError{Err: errs.ErrExpired, Message: "iat is missing"}
		}
		if iat > now.Unix() {
			return &ValidationError{Err: errs.ErrTooEarly, Message: fmt.Sprintf("iat %d is after %d", iat, now.Unix())}
		}
		if now.Unix()-iat > int64(check.ValidBefore.Seconds()) {
			return &ValidationError{Err: errs.ErrExpired, Message: fmt.Sprintf("iat %d is older than %s", iat, check.ValidBefore)}
		}
	}

	return nil
}

func audienceMatches(aud interface{}, want string) bool {
	switch v := aud.(type) {
	case string:
		return v == want
	case []interface{}:
		return slices.ContainsFunc(v, func(a interface{}) bool { return a == want })
	default:
		return false
	}
}

