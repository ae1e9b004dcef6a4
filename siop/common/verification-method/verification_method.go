// Package verificationmethod turns DID document verification methods into
// canonical public keys.
package verificationmethod

import (
	"encoding/json"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// Verification method type tags.
const (
	TypeEcdsaSecp256k1Recovery2020   = "EcdsaSecp256k1RecoveryMethod2020"
	TypeEcdsaSecp256r1Verification19 = "EcdsaSecp256r1VerificationKey2019"
	TypeEcdsaSecp256k1Verification19 = "EcdsaSecp256k1VerificationKey2019"
	TypeSecp256k1Verification2018    = "Secp256k1VerificationKey2018"
	TypeSecp256k1                    = "Secp256k1"
	TypeRsaVerification2018          = "RsaVerificationKey2018"
	TypeGpgVerification2020          = "GpgVerificationKey2020"
	TypeEd25519Verification2018      = "Ed25519VerificationKey2018"
	TypeEd25519Verification2020      = "Ed25519VerificationKey2020"
	TypeEd25519SignatureVerification = "ED25519SignatureVerification"
	TypeJwsVerification2020          = "JwsVerificationKey2020"
	TypeJSONWebKey2020               = "JsonWebKey2020"
)

// handler is one link of the extraction chain.
type handler struct {
	name    string
	match   func(vm *model.VerificationMethod) bool
	extract func(vm *model.VerificationMethod) (model.CanonicalKey, error)
}

// handlers are evaluated in order, first match wins.
var handlers = []handler{
	{
		name: "ec-recoverable",
		match: func(vm *model.VerificationMethod) bool {
			return typeIs(vm, TypeEcdsaSecp256k1Recovery2020) || vm.EthereumAddress != ""
		},
		extract: fixed(model.KeyFamilyEC, model.AlgES256KR),
	},
	{
		name:    "secp256r1",
		match:   typeIn(TypeEcdsaSecp256r1Verification19),
		extract: fixed(model.KeyFamilyEC, model.AlgES256),
	},
	{
		name:    "secp256k1",
		match:   typeIn(TypeEcdsaSecp256k1Verification19, TypeSecp256k1Verification2018, TypeSecp256k1),
		extract: fixed(model.KeyFamilyEC, model.AlgES256K),
	},
	{
		name:    "rsa",
		match:   typeIn(TypeRsaVerification2018),
		extract: fixed(model.KeyFamilyRSA, model.AlgRS256),
	},
	// PGP armor is extracted as is; no suite parses it, so gpg keys never verify.
	{
		name: "gpg",
		match: func(vm *model.VerificationMethod) bool {
			return typeIs(vm, TypeGpgVerification2020) && vm.PublicKeyPgp != ""
		},
		extract: func(vm *model.VerificationMethod) (model.CanonicalKey, error) {
			return model.CanonicalKey{
				ID:        vm.ID,
				KeyFamily: model.KeyFamilyRSA,
				Algorithm: model.AlgRS256,
				Format:    model.KeyFormatPKCS8PEM,
				PublicKey: vm.PublicKeyPgp,
			}, nil
		},
	},
	{
		name:    "ed25519",
		match:   typeIn(TypeEd25519Verification2018, TypeEd25519Verification2020, TypeEd25519SignatureVerification),
		extract: fixed(model.KeyFamilyOKP, model.AlgEdDSA),
	},
	{
		name: "jws2020",
		match: func(vm *model.VerificationMethod) bool {
			return typeIn(TypeJwsVerification2020, TypeJSONWebKey2020)(vm) && vm.PublicKeyJwk != nil
		},
		extract: extractJWS2020,
	},
}

// Extract classifies a verification method and resolves its public key.
func Extract(vm model.VerificationMethod) (model.CanonicalKey, error) {
	if vm.ID == "" || vm.Type == "" {
		return model.CanonicalKey{}, fmt.Errorf("verification method is missing id or type: %w", errs.ErrNoMatchingPublicKey)
	}

	for _, h := range handlers {
		if h.match(&vm) {
			key, err := h.extract(&vm)
			if err != nil {
				return model.CanonicalKey{}, fmt.Errorf("failed to extract %s key %s: %w", h.name, vm.ID, err)
			}
			return key, nil
		}
	}

	return model.CanonicalKey{}, fmt.Errorf("verification method %s of type %s: %w", vm.ID, vm.Type, errs.ErrUnsupportedPublicKeyMethod)
}

// ExtractByKid extracts the authentication method of doc whose id is kid.
func ExtractByKid(doc *model.DIDDocument, kid string) (model.CanonicalKey, error) {
	if doc == nil {
		return model.CanonicalKey{}, fmt.Errorf("nil DID document: %w", errs.ErrNoMatchingPublicKey)
	}

	want := doc.AbsoluteID(kid)
	for _, vm := range doc.AuthenticationMethods() {
		if doc.AbsoluteID(vm.ID) != want {
			continue
		}

		key, err := Extract(vm)
		if err != nil {
			return model.CanonicalKey{}, fmt.Errorf("kid %s: %w: %w", kid, errs.ErrNoMatchingPublicKey, err)
		}
		key.ID = want
		return key, nil
	}

	return model.CanonicalKey{}, fmt.Errorf("kid %s not found in authentication of %s: %w", kid, doc.ID, errs.ErrNoMatchingPublicKey)
}

func typeIs(vm *model.VerificationMethod, t string) bool {
	return strings.EqualFold(vm.Type, t)
}

func typeIn(types ...string) func(vm *model.VerificationMethod) bool {
	return func(vm *model.VerificationMethod) bool {
		for _, t := range types {
			if typeIs(vm, t) {
				return true
			}
		}
		return false
	}
}

func fixed(family model.KeyFamily, alg string) func(vm *model.VerificationMethod) (model.CanonicalKey, error) {
	return func(vm *model.VerificationMethod) (model.CanonicalKey, error) {
		format, value, err := detectEncoding(vm)
		if err != nil {
			return model.CanonicalKey{}, err
		}

		return model.CanonicalKey{
			ID:        vm.ID,
			KeyFamily: family,
			Algorithm: alg,
			Format:    format,
			PublicKey: value,
		}, nil
	}
}

func extractJWS2020(vm *model.VerificationMethod) (model.CanonicalKey, error) {
	jwk := vm.PublicKeyJwk

	var family model.KeyFamily
	switch strings.ToUpper(jwk.Kty) {
	case "EC":
		family = model.KeyFamilyEC
	case "RSA":
		family = model.KeyFamilyRSA
	case "OKP":
		family = model.KeyFamilyOKP
	default:
		return model.CanonicalKey{}, fmt.Errorf("jwk kty %q: %w", jwk.Kty, errs.ErrUnsupportedPublicKeyMethod)
	}

	alg := jwk.Alg
	if alg == "" {
		alg = AlgorithmForJWK(jwk)
	}
	if alg == "" {
		return model.CanonicalKey{}, fmt.Errorf("cannot infer algorithm of jwk kty %q crv %q: %w", jwk.Kty, jwk.Crv, errs.ErrUnsupportedAlgorithm)
	}

	value, err := encodeJWK(jwk)
	if err != nil {
		return model.CanonicalKey{}, err
	}

	return model.CanonicalKey{
		ID:        vm.ID,
		KeyFamily: family,
		Algorithm: alg,
		Format:    model.KeyFormatJWK,
		PublicKey: value,
	}, nil
}

// AlgorithmForJWK infers the signature algorithm from the key type and curve.
func AlgorithmForJWK(jwk *model.JWK) string {
	switch strings.ToUpper(jwk.Kty) {
	case "RSA":
		return model.AlgRS256
	case "OKP":
		if jwk.Crv == "Ed25519" {
			return model.AlgEdDSA
		}
	case "EC":
		switch jwk.Crv {
		case "P-256":
			return model.AlgES256
		case "P-384":
			return model.AlgES384
		case "P-521":
			return model.AlgES512
		case "secp256k1":
			return model.AlgES256K
		}
	}

	return ""
}

// detectEncoding resolves the public key encoding in fixed priority.
func detectEncoding(vm *model.VerificationMethod) (model.KeyFormat, string, error) {
	switch {
	case vm.PublicKeyJwk != nil:
		value, err := encodeJWK(vm.PublicKeyJwk)
		return model.KeyFormatJWK, value, err
	case vm.PublicKeyHex != "":
		return model.KeyFormatHex, vm.PublicKeyHex, nil
	case vm.PublicKeyBase58 != "":
		return model.KeyFormatBase58, vm.PublicKeyBase58, nil
	case vm.PublicKeyBase64 != "":
		return model.KeyFormatBase64, vm.PublicKeyBase64, nil
	case vm.PublicKeyPem != "":
		return pemFormat(vm.PublicKeyPem), vm.PublicKeyPem, nil
	case vm.PublicKeyPgp != "":
		return model.KeyFormatPKCS8PEM, vm.PublicKeyPgp, nil
	case vm.EthereumAddress != "":
		if !common.IsHexAddress(vm.EthereumAddress) {
			return "", "", fmt.Errorf("invalid ethereum address %q: %w", vm.EthereumAddress, errs.ErrUnsupportedKeyFormat)
		}
		return model.KeyFormatEthereumAddress, common.HexToAddress(vm.EthereumAddress).Hex(), nil
	case vm.Address != "":
		return model.KeyFormatAddress, normalizeAddress(vm.Address), nil
	case vm.BlockchainAccountID != "":
		// CAIP-10: namespace:reference:account
		account := vm.BlockchainAccountID[strings.LastIndex(vm.BlockchainAccountID, ":")+1:]
		return model.KeyFormatAddress, normalizeAddress(account), nil
	case vm.PublicKeyMultibase != "":
		value, err := multibaseToBase58(vm.PublicKeyMultibase)
		return model.KeyFormatBase58, value, err
	}

	return "", "", fmt.Errorf("verification method %s carries no public key: %w", vm.ID, errs.ErrUnsupportedKeyFormat)
}

func pemFormat(s string) model.KeyFormat {
	block, _ := pem.Decode([]byte(s))
	if block != nil && block.Type == "RSA PUBLIC KEY" {
		return model.KeyFormatPKCS1PEM
	}

	return model.KeyFormatPKCS8PEM
}

func normalizeAddress(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}

	return addr
}

// multicodec prefixes of public keys seen in publicKeyMultibase values.
var multicodecPrefixes = [][]byte{
	{0xed, 0x01}, // ed25519-pub
	{0xe7, 0x01}, // secp256k1-pub
	{0x80, 0x24}, // p256-pub
}

func multibaseToBase58(s string) (string, error) {
	_, data, err := multibase.Decode(s)
	if err != nil {
		return "", fmt.Errorf("failed to decode multibase key: %w: %w", errs.ErrUnsupportedKeyFormat, err)
	}

	for _, prefix := range multicodecPrefixes {
		if len(data) > len(prefix) && string(data[:len(prefix)]) == string(prefix) {
			data = data[len(prefix):]
			break
		}
	}

	return base58.Encode(data), nil
}

// encodeJWK renders the public members of a JWK as compact JSON.
func encodeJWK(jwk *model.JWK) (string, error) {
	public := *jwk
	public.D = ""

	data, err := json.Marshal(public)
	if err != nil {
		return "", fmt.Errorf("failed to marshal jwk: %w", err)
	}

	return string(data), nil
}
