package jwt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// Decoded is a compact token split into its parts.
type Decoded struct {
	Header       jsonmap.JSONMap
	Payload      jsonmap.JSONMap
	SigningInput string
	Signature    []byte
}

// Alg returns the header alg.
func (d *Decoded) Alg() string {
	alg, _ := d.Header.GetString("alg")
	return alg
}

// Kid returns the header kid.
func (d *Decoded) Kid() string {
	kid, _ := d.Header.GetString("kid")
	return kid
}

// Decode splits a compact token without verifying it.
func Decode(token string) (*Decoded, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	parsed, parts, err := parser.ParseUnverified(token, claims)
	// Unknown algorithms are verified by the registry, not the library.
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return nil, fmt.Errorf("failed to parse token: %w: %w", errs.ErrMalformedInput, err)
	}
	if parsed == nil || parsed.Header == nil || len(parts) != 3 {
		return nil, fmt.Errorf("token header is not a JSON object: %w", errs.ErrMalformedInput)
	}
	if payload, _ := parser.DecodeSegment(parts[1]); strings.TrimSpace(string(payload)) == "null" {
		return nil, fmt.Errorf("token payload is not a JSON object: %w", errs.ErrMalformedInput)
	}
	if _, ok := parsed.Header["alg"].(string); !ok {
		return nil, fmt.Errorf("token header has no alg: %w", errs.ErrMalformedInput)
	}

	signature, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature: %w: %w", errs.ErrMalformedInput, err)
	}

	return &Decoded{
		Header:       jsonmap.JSONMap(parsed.Header),
		Payload:      jsonmap.JSONMap(claims),
		SigningInput: strings.Join(parts[:2], "."),
		Signature:    signature,
	}, nil
}

// Verify checks the signature of d against key. The header alg must be the
// key's algorithm.
func Verify(d *Decoded, key model.CanonicalKey, registry *crypto.Registry) error {
	if registry == nil {
		registry = crypto.Default()
	}

	if d.Alg() != key.Algorithm {
		return fmt.Errorf("token alg %q does not match key alg %q: %w", d.Alg(), key.Algorithm, errs.ErrInvalidSignature)
	}

	suite, err := registry.ForKey(key)
	if err != nil {
		return err
	}

	if err := NewSigningMethod(key.Algorithm, suite).Verify(d.SigningInput, d.Signature, key); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidSignature, err)
	}

	return nil
}
