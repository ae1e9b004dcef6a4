package crypto

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// OKPSuite implements EdDSA over Ed25519.
type OKPSuite struct{}

func NewOKPSuite() *OKPSuite { return &OKPSuite{} }

func (s *OKPSuite) Family() model.KeyFamily { return model.KeyFamilyOKP }

func (s *OKPSuite) Algorithms() []string { return []string{model.AlgEdDSA} }

func (s *OKPSuite) Sign(alg string, message []byte, privateKey string, format model.KeyFormat) ([]byte, error) {
	if alg != model.AlgEdDSA {
		return nil, fmt.Errorf("okp %s: %w", alg, errs.ErrUnsupportedAlgorithm)
	}

	priv, err := parseEd25519PrivateKey(privateKey, format)
	if err != nil {
		return nil, err
	}

	return ed25519.Sign(priv, message), nil
}

func (s *OKPSuite) Verify(alg string, message, signature []byte, publicKey string, format model.KeyFormat) (bool, error) {
	if alg != model.AlgEdDSA {
		return false, fmt.Errorf("okp %s: %w", alg, errs.ErrUnsupportedAlgorithm)
	}

	pub, err := parseEd25519PublicKey(publicKey, format)
	if err != nil {
		return false, err
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}

	return ed25519.Verify(pub, message, signature), nil
}

func parseEd25519PrivateKey(key string, format model.KeyFormat) (ed25519.PrivateKey, error) {
	switch {
	case format == model.KeyFormatPKCS8PEM:
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, errors.New("invalid PEM private key")
		}
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Ed25519 private key: %w", err)
		}
		priv, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("PKCS #8 key is %T, not Ed25519", parsed)
		}
		return priv, nil
	case format == model.KeyFormatJWK:
		jwk, err := parseJoseJWK(key)
		if err != nil {
			return nil, err
		}
		priv, ok := jwk.Key.(ed25519.PrivateKey)
		if !ok {
			return nil, errors.New("jwk is not an Ed25519 private key")
		}
		return priv, nil
	case isByteFormat(format):
		b, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		switch len(b) {
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(b), nil
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(b), nil
		default:
			return nil, fmt.Errorf("invalid Ed25519 private key length %d", len(b))
		}
	default:
		return nil, unsupportedFormat(model.KeyFamilyOKP, format)
	}
}

func parseEd25519PublicKey(key string, format model.KeyFormat) (ed25519.PublicKey, error) {
	switch {
	case format == model.KeyFormatPKCS8PEM:
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, errors.New("invalid PEM public key")
		}
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Ed25519 public key: %w", err)
		}
		pub, ok := parsed.(ed25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, not Ed25519", parsed)
		}
		return pub, nil
	case format == model.KeyFormatJWK:
		jwk, err := parseJoseJWK(key)
		if err != nil {
			return nil, err
		}
		pub, ok := jwk.Public().Key.(ed25519.PublicKey)
		if !ok {
			return nil, errors.New("jwk is not an Ed25519 key")
		}
		return pub, nil
	case isByteFormat(format):
		b, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		if len(b) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid Ed25519 public key length %d", len(b))
		}
		return ed25519.PublicKey(b), nil
	default:
		return nil, unsupportedFormat(model.KeyFamilyOKP, format)
	}
}
