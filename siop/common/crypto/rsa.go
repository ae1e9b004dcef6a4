package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// RSASuite implements RS256/384/512 (PKCS #1 v1.5) and PS256/384/512 (PSS).
type RSASuite struct{}

func NewRSASuite() *RSASuite { return &RSASuite{} }

func (s *RSASuite) Family() model.KeyFamily { return model.KeyFamilyRSA }

func (s *RSASuite) Algorithms() []string {
	return []string{model.AlgRS256, model.AlgRS384, model.AlgRS512, model.AlgPS256, model.AlgPS384, model.AlgPS512}
}

func (s *RSASuite) Sign(alg string, message []byte, privateKey string, format model.KeyFormat) ([]byte, error) {
	priv, err := parseRSAPrivateKey(privateKey, format)
	if err != nil {
		return nil, err
	}

	hashed, h, err := digest(alg, message)
	if err != nil {
		return nil, err
	}

	switch alg {
	case model.AlgRS256, model.AlgRS384, model.AlgRS512:
		return rsa.SignPKCS1v15(rand.Reader, priv, h, hashed)
	case model.AlgPS256, model.AlgPS384, model.AlgPS512:
		return rsa.SignPSS(rand.Reader, priv, h, hashed, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	default:
		return nil, fmt.Errorf("rsa %s: %w", alg, errs.ErrUnsupportedAlgorithm)
	}
}

func (s *RSASuite) Verify(alg string, message, signature []byte, publicKey string, format model.KeyFormat) (bool, error) {
	pub, err := parseRSAPublicKey(publicKey, format)
	if err != nil {
		return false, err
	}

	hashed, h, err := digest(alg, message)
	if err != nil {
		return false, err
	}

	switch alg {
	case model.AlgRS256, model.AlgRS384, model.AlgRS512:
		return rsa.VerifyPKCS1v15(pub, h, hashed, signature) == nil, nil
	case model.AlgPS256, model.AlgPS384, model.AlgPS512:
		return rsa.VerifyPSS(pub, h, hashed, signature, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto}) == nil, nil
	default:
		return false, fmt.Errorf("rsa %s: %w", alg, errs.ErrUnsupportedAlgorithm)
	}
}

func parseRSAPrivateKey(key string, format model.KeyFormat) (*rsa.PrivateKey, error) {
	var der []byte

	switch {
	case format == model.KeyFormatPKCS8PEM || format == model.KeyFormatPKCS1PEM:
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, errors.New("invalid PEM private key")
		}
		der = block.Bytes
	case format == model.KeyFormatJWK:
		jwk, err := parseJoseJWK(key)
		if err != nil {
			return nil, err
		}
		priv, ok := jwk.Key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwk is not an RSA private key")
		}
		return priv, nil
	case isByteFormat(format):
		b, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		der = b
	default:
		return nil, unsupportedFormat(model.KeyFamilyRSA, format)
	}

	if format != model.KeyFormatPKCS8PEM {
		if priv, err := x509.ParsePKCS1PrivateKey(der); err == nil {
			return priv, nil
		}
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("PKCS #8 key is %T, not RSA", parsed)
	}

	return priv, nil
}

func parseRSAPublicKey(key string, format model.KeyFormat) (*rsa.PublicKey, error) {
	var der []byte

	switch {
	case format == model.KeyFormatPKCS8PEM || format == model.KeyFormatPKCS1PEM:
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, errors.New("invalid PEM public key")
		}
		if block.Type == "RSA PUBLIC KEY" {
			return x509.ParsePKCS1PublicKey(block.Bytes)
		}
		der = block.Bytes
	case format == model.KeyFormatJWK:
		jwk, err := parseJoseJWK(key)
		if err != nil {
			return nil, err
		}
		pub, ok := jwk.Public().Key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("jwk is not an RSA key")
		}
		return pub, nil
	case isByteFormat(format):
		b, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		der = b
	default:
		return nil, unsupportedFormat(model.KeyFamilyRSA, format)
	}

	if parsed, err := x509.ParsePKIXPublicKey(der); err == nil {
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, not RSA", parsed)
		}
		return pub, nil
	}

	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	return pub, nil
}
