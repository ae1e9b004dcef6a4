package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// ECSuite implements ES256, ES384, ES512 on the NIST curves and ES256K on
// secp256k1. Signatures are the fixed-size r||s concatenation.
type ECSuite struct{}

func NewECSuite() *ECSuite { return &ECSuite{} }

func (s *ECSuite) Family() model.KeyFamily { return model.KeyFamilyEC }

func (s *ECSuite) Algorithms() []string {
	return []string{model.AlgES256, model.AlgES384, model.AlgES512, model.AlgES256K}
}

func (s *ECSuite) Sign(alg string, message []byte, privateKey string, format model.KeyFormat) ([]byte, error) {
	hashed, _, err := digest(alg, message)
	if err != nil {
		return nil, err
	}

	if alg == model.AlgES256K {
		priv, err := parseSecp256k1PrivateKey(privateKey, format)
		if err != nil {
			return nil, err
		}

		sig, err := ethcrypto.Sign(hashed, priv)
		if err != nil {
			return nil, fmt.Errorf("signing failed: %w", err)
		}

		return sig[:64], nil // Return R and S, excluding recovery ID
	}

	curve, err := nistCurve(alg)
	if err != nil {
		return nil, err
	}
	priv, err := parseNISTPrivateKey(curve, privateKey, format)
	if err != nil {
		return nil, err
	}

	r, sv, err := ecdsa.Sign(rand.Reader, priv, hashed)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	size := curveByteSize(curve)
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	sv.FillBytes(sig[size:])

	return sig, nil
}

func (s *ECSuite) Verify(alg string, message, signature []byte, publicKey string, format model.KeyFormat) (bool, error) {
	hashed, _, err := digest(alg, message)
	if err != nil {
		return false, err
	}

	if alg == model.AlgES256K {
		pub, err := parseSecp256k1PublicKey(publicKey, format)
		if err != nil {
			return false, err
		}
		if len(signature) != 64 {
			return false, nil
		}

		return ethcrypto.VerifySignature(pub.SerializeCompressed(), hashed, signature), nil
	}

	curve, err := nistCurve(alg)
	if err != nil {
		return false, err
	}
	pub, err := parseNISTPublicKey(curve, publicKey, format)
	if err != nil {
		return false, err
	}

	size := curveByteSize(curve)
	if len(signature) != 2*size {
		return false, nil
	}
	r := new(big.Int).SetBytes(signature[:size])
	sv := new(big.Int).SetBytes(signature[size:])

	return ecdsa.Verify(pub, hashed, r, sv), nil
}

func nistCurve(alg string) (elliptic.Curve, error) {
	switch alg {
	case model.AlgES256:
		return elliptic.P256(), nil
	case model.AlgES384:
		return elliptic.P384(), nil
	case model.AlgES512:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("ec %s: %w", alg, errs.ErrUnsupportedAlgorithm)
	}
}

func curveByteSize(curve elliptic.Curve) int {
	return (curve.Params().BitSize + 7) / 8
}

func parseNISTPrivateKey(curve elliptic.Curve, key string, format model.KeyFormat) (*ecdsa.PrivateKey, error) {
	var priv *ecdsa.PrivateKey

	switch {
	case format == model.KeyFormatPKCS8PEM || format == model.KeyFormatPKCS1PEM:
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, errors.New("invalid PEM private key")
		}
		if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
			ecPriv, ok := parsed.(*ecdsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("PKCS #8 key is %T, not ECDSA", parsed)
			}
			priv = ecPriv
			break
		}
		ecPriv, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC private key: %w", err)
		}
		priv = ecPriv
	case format == model.KeyFormatJWK:
		jwk, err := parseJoseJWK(key)
		if err != nil {
			return nil, err
		}
		ecPriv, ok := jwk.Key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("jwk is not an EC private key")
		}
		priv = ecPriv
	case isByteFormat(format):
		b, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		if len(b) != curveByteSize(curve) {
			return nil, fmt.Errorf("private key must be %d bytes", curveByteSize(curve))
		}
		d := new(big.Int).SetBytes(b)
		if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
			return nil, errors.New("private key scalar out of range")
		}
		priv = &ecdsa.PrivateKey{PublicKey: ecdsa.PublicKey{Curve: curve}, D: d}
		priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(b)
	default:
		return nil, unsupportedFormat(model.KeyFamilyEC, format)
	}

	if priv.Curve.Params().Name != curve.Params().Name {
		return nil, fmt.Errorf("key is on %s, want %s", priv.Curve.Params().Name, curve.Params().Name)
	}

	return priv, nil
}

func parseNISTPublicKey(curve elliptic.Curve, key string, format model.KeyFormat) (*ecdsa.PublicKey, error) {
	var pub *ecdsa.PublicKey

	switch {
	case format == model.KeyFormatPKCS8PEM || format == model.KeyFormatPKCS1PEM:
		block, _ := pem.Decode([]byte(key))
		if block == nil {
			return nil, errors.New("invalid PEM public key")
		}
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC public key: %w", err)
		}
		ecPub, ok := parsed.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, not ECDSA", parsed)
		}
		pub = ecPub
	case format == model.KeyFormatJWK:
		jwk, err := parseJoseJWK(key)
		if err != nil {
			return nil, err
		}
		ecPub, ok := jwk.Public().Key.(*ecdsa.PublicKey)
		if !ok {
			return nil, errors.New("jwk is not an EC key")
		}
		pub = ecPub
	case isByteFormat(format):
		b, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		size := curveByteSize(curve)
		var x, y *big.Int
		switch len(b) {
		case 1 + size:
			x, y = elliptic.UnmarshalCompressed(curve, b)
		case 2 * size:
			x, y = elliptic.Unmarshal(curve, append([]byte{0x04}, b...))
		default:
			x, y = elliptic.Unmarshal(curve, b)
		}
		if x == nil {
			return nil, errors.New("invalid EC public key point")
		}
		pub = &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	default:
		return nil, unsupportedFormat(model.KeyFamilyEC, format)
	}

	if pub.Curve.Params().Name != curve.Params().Name {
		return nil, fmt.Errorf("key is on %s, want %s", pub.Curve.Params().Name, curve.Params().Name)
	}

	return pub, nil
}

func parseSecp256k1PrivateKey(key string, format model.KeyFormat) (*ecdsa.PrivateKey, error) {
	var b []byte

	switch {
	case format == model.KeyFormatJWK:
		jwk, err := parseModelJWK(key)
		if err != nil {
			return nil, err
		}
		if jwk.Crv != "secp256k1" || jwk.D == "" {
			return nil, errors.New("jwk is not a secp256k1 private key")
		}
		d, err := base64.RawURLEncoding.DecodeString(jwk.D)
		if err != nil {
			return nil, fmt.Errorf("invalid jwk d: %w", err)
		}
		b = d
	case isByteFormat(format):
		decoded, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		b = decoded
	default:
		return nil, unsupportedFormat(model.KeyFamilyEC, format)
	}

	priv, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 private key: %w", err)
	}

	return priv, nil
}

func parseSecp256k1PublicKey(key string, format model.KeyFormat) (*btcec.PublicKey, error) {
	var b []byte

	switch {
	case format == model.KeyFormatJWK:
		jwk, err := parseModelJWK(key)
		if err != nil {
			return nil, err
		}
		if jwk.Crv != "secp256k1" {
			return nil, fmt.Errorf("jwk curve %q is not secp256k1", jwk.Crv)
		}
		x, errX := base64.RawURLEncoding.DecodeString(jwk.X)
		y, errY := base64.RawURLEncoding.DecodeString(jwk.Y)
		if errX != nil || errY != nil || len(x) > 32 || len(y) > 32 {
			return nil, errors.New("invalid secp256k1 jwk coordinates")
		}
		b = make([]byte, 65)
		b[0] = 0x04
		copy(b[33-len(x):33], x)
		copy(b[65-len(y):], y)
	case isByteFormat(format):
		decoded, err := decodeKeyBytes(key, format)
		if err != nil {
			return nil, err
		}
		b = decoded
		if len(b) == 64 {
			b = append([]byte{0x04}, b...)
		}
	default:
		return nil, unsupportedFormat(model.KeyFamilyEC, format)
	}

	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secp256k1 public key: %w", err)
	}

	return pub, nil
}
