// Package response builds and validates self-issued id_token responses and
// their optional vp_token companions.
package response

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
	"github.com/pilacorp/go-siop-sdk/siop/common/jwt"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	verificationmethod "github.com/pilacorp/go-siop-sdk/siop/common/verification-method"
	"github.com/pilacorp/go-siop-sdk/siop/identity"
	"github.com/pilacorp/go-siop-sdk/siop/metadata"
)

// Claim names of an id_token.
const (
	ClaimIssuer     = "iss"
	ClaimSubject    = "sub"
	ClaimDID        = "did"
	ClaimAudience   = "aud"
	ClaimExpiration = "exp"
	ClaimIssuedAt   = "iat"
	ClaimNonce      = "nonce"
	ClaimSubJWK     = "sub_jwk"
	ClaimVPToken    = "_vp_token"
)

// Generate signs an id_token answering req with one of op's keys.
func Generate(ctx context.Context, op *identity.Identity, req jsonmap.JSONMap, expiresIn int64, opts ...Opt) (string, error) {
	o := getOptions(opts...)

	claims, info, err := idTokenClaims(ctx, op, req, expiresIn, o)
	if err != nil {
		return "", err
	}

	token, err := jwt.Sign(claims, info, op.Registry())
	if err != nil {
		return "", fmt.Errorf("failed to sign id_token: %w", err)
	}

	o.logger.Debug("response generated", "sub", op.DID(), "kid", info.Kid, "alg", info.Alg)
	return token, nil
}

// GenerateWithVPData signs an id_token and a separate vp_token whose payload
// is vps.VPToken. vps.VPTokenEcho is embedded in the id_token as _vp_token.
func GenerateWithVPData(ctx context.Context, op *identity.Identity, req jsonmap.JSONMap, expiresIn int64, vps model.VPData, opts ...Opt) (*model.Tokens, error) {
	if vps.VPToken == nil {
		return nil, fmt.Errorf("vp data has no vp_token: %w", errs.ErrMalformedInput)
	}

	o := getOptions(opts...)

	claims, info, err := idTokenClaims(ctx, op, req, expiresIn, o)
	if err != nil {
		return nil, err
	}
	if vps.VPTokenEcho != nil {
		claims[ClaimVPToken] = vps.VPTokenEcho
	}

	idToken, err := jwt.Sign(claims, info, op.Registry())
	if err != nil {
		return nil, fmt.Errorf("failed to sign id_token: %w", err)
	}

	vpToken, err := jwt.Sign(jsonmap.JSONMap(vps.VPToken).Clone(), info, op.Registry())
	if err != nil {
		return nil, fmt.Errorf("failed to sign vp_token: %w", err)
	}

	o.logger.Debug("response with vp data generated", "sub", op.DID(), "kid", info.Kid, "alg", info.Alg)
	return &model.Tokens{IDToken: idToken, VPToken: vpToken}, nil
}

func idTokenClaims(ctx context.Context, op *identity.Identity, req jsonmap.JSONMap, expiresIn int64, o *options) (jsonmap.JSONMap, model.SigningInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.SigningInfo{}, err
	}

	doc := op.Document()
	if doc == nil {
		return nil, model.SigningInfo{}, fmt.Errorf("identity %s: %w", op.DID(), errs.ErrUnresolvedIdentity)
	}

	info, err := op.PickSigningInfo(o.rand)
	if err != nil {
		return nil, model.SigningInfo{}, err
	}

	aud, ok := req.GetString("redirect_uri")
	if !ok || aud == "" {
		aud, _ = req.GetString("client_id")
	}
	if aud == "" {
		return nil, model.SigningInfo{}, fmt.Errorf("request has neither redirect_uri nor client_id: %w", errs.ErrMalformedInput)
	}

	now := o.now().Unix()
	claims := jsonmap.JSONMap{
		ClaimIssuer:     metadata.SelfIssuedIssuer,
		ClaimSubject:    op.DID(),
		ClaimDID:        op.DID(),
		ClaimAudience:   aud,
		ClaimIssuedAt:   now,
		ClaimExpiration: now + expiresIn,
	}
	if nonce, ok := req[ClaimNonce]; ok {
		claims[ClaimNonce] = nonce
	}

	if pub, err := verificationmethod.ExtractByKid(doc, info.Kid); err == nil && pub.Format == model.KeyFormatJWK {
		var jwk map[string]interface{}
		if err := json.Unmarshal([]byte(pub.PublicKey), &jwk); err == nil {
			claims[ClaimSubJWK] = jwk
		}
	}

	return claims, info, nil
}
