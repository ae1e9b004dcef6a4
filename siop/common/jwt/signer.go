package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// Sign signs claims as a compact token with header {alg, typ, kid}.
func Sign(claims jsonmap.JSONMap, info model.SigningInfo, registry *crypto.Registry) (string, error) {
	if registry == nil {
		registry = crypto.Default()
	}

	suite, err := registry.ForSigningInfo(info)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(NewSigningMethod(info.Alg, suite), jwt.MapClaims(claims))
	token.Header["typ"] = "JWT"
	token.Header["kid"] = info.Kid

	signed, err := token.SignedString(info)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
