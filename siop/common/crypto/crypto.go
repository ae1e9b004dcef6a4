// Package crypto implements the signature suites used to sign and verify SIOP
// tokens, and the registry that selects one per key family and algorithm.
package crypto

import (
	"crypto"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v3"
	"github.com/mr-tron/base58"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// Signer signs a message with a private key given in the stated format.
type Signer interface {
	Sign(alg string, message []byte, privateKey string, format model.KeyFormat) ([]byte, error)
}

// Verifier checks a signature against a public key given in the stated format.
// A signature that does not verify yields false and a nil error. Errors are
// reserved for unusable keys or algorithms.
type Verifier interface {
	Verify(alg string, message, signature []byte, publicKey string, format model.KeyFormat) (bool, error)
}

// Suite is a signer and verifier for one key family.
type Suite interface {
	Signer
	Verifier
	Family() model.KeyFamily
	Algorithms() []string
}

// keyPairCheckMessage is signed and verified when checking a key pair.
var keyPairCheckMessage = []byte("self-issued openid provider key pair check")

// CheckKeyPair reports whether privateKey and publicKey belong together under alg.
func CheckKeyPair(privateKey string, privFormat model.KeyFormat, publicKey string, pubFormat model.KeyFormat, signer Signer, verifier Verifier, alg string) bool {
	sig, err := signer.Sign(alg, keyPairCheckMessage, privateKey, privFormat)
	if err != nil {
		return false
	}

	ok, err := verifier.Verify(alg, keyPairCheckMessage, sig, publicKey, pubFormat)

	return err == nil && ok
}

func hashFor(alg string) (crypto.Hash, error) {
	switch alg {
	case model.AlgRS256, model.AlgPS256, model.AlgES256, model.AlgES256K, model.AlgES256KR:
		return crypto.SHA256, nil
	case model.AlgRS384, model.AlgPS384, model.AlgES384:
		return crypto.SHA384, nil
	case model.AlgRS512, model.AlgPS512, model.AlgES512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%s: %w", alg, errs.ErrUnsupportedAlgorithm)
	}
}

func digest(alg string, message []byte) ([]byte, crypto.Hash, error) {
	h, err := hashFor(alg)
	if err != nil {
		return nil, 0, err
	}

	hasher := h.New()
	hasher.Write(message)

	return hasher.Sum(nil), h, nil
}

// decodeKeyBytes decodes the byte-oriented key formats.
func decodeKeyBytes(key string, format model.KeyFormat) ([]byte, error) {
	key = strings.TrimSpace(key)

	switch format {
	case model.KeyFormatHex:
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(key, "0x"), "0X"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex key: %w", err)
		}
		return b, nil
	case model.KeyFormatBase58:
		b, err := base58.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("invalid base58 key: %w", err)
		}
		return b, nil
	case model.KeyFormatBase64:
		for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
			if b, err := enc.DecodeString(key); err == nil {
				return b, nil
			}
		}
		return nil, fmt.Errorf("invalid base64 key")
	default:
		return nil, fmt.Errorf("%s is not a byte encoding: %w", format, errs.ErrUnsupportedKeyFormat)
	}
}

func isByteFormat(format model.KeyFormat) bool {
	return format == model.KeyFormatHex || format == model.KeyFormatBase58 || format == model.KeyFormatBase64
}

// parseJoseJWK parses a JWK with go-jose. Curves go-jose does not know, such
// as secp256k1, fail here and are handled by the EC suite itself.
func parseJoseJWK(key string) (*jose.JSONWebKey, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal([]byte(key), &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse jwk: %w", err)
	}

	return &jwk, nil
}

func parseModelJWK(key string) (*model.JWK, error) {
	var jwk model.JWK
	if err := json.Unmarshal([]byte(key), &jwk); err != nil {
		return nil, fmt.Errorf("failed to parse jwk: %w", err)
	}

	return &jwk, nil
}

func unsupportedFormat(family model.KeyFamily, format model.KeyFormat) error {
	return fmt.Errorf("%s key in %s format: %w", family, format, errs.ErrUnsupportedKeyFormat)
}
