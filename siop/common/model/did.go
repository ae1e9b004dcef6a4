package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DIDDocument is the subset of a resolved DID document the SIOP flows read.
type DIDDocument struct {
	Context            interface{}          `json:"@context,omitempty"` // string or []string
	ID                 string               `json:"id"`
	Controller         interface{}          `json:"controller,omitempty"` // Can be string or []string
	VerificationMethod []VerificationMethod `json:"verificationMethod,omitempty"`
	PublicKey          []VerificationMethod `json:"publicKey,omitempty"` // legacy name for verificationMethod
	Authentication     []AuthenticationRef  `json:"authentication,omitempty"`
	AssertionMethod    []AuthenticationRef  `json:"assertionMethod,omitempty"`
	Service            []Service            `json:"service,omitempty"`
}

// VerificationMethod represents a single verification method in a DID Document.
// At most one of the public key encodings is expected to be set.
type VerificationMethod struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Controller          string `json:"controller,omitempty"`
	PublicKeyJwk        *JWK   `json:"publicKeyJwk,omitempty"`
	PublicKeyHex        string `json:"publicKeyHex,omitempty"`
	PublicKeyBase58     string `json:"publicKeyBase58,omitempty"`
	PublicKeyBase64     string `json:"publicKeyBase64,omitempty"`
	PublicKeyPem        string `json:"publicKeyPem,omitempty"`
	PublicKeyPgp        string `json:"publicKeyPgp,omitempty"`
	EthereumAddress     string `json:"ethereumAddress,omitempty"`
	Address             string `json:"address,omitempty"`
	BlockchainAccountID string `json:"blockchainAccountId,omitempty"`
	PublicKeyMultibase  string `json:"publicKeyMultibase,omitempty"`
}

// JWK represents a JSON Web Key structure
type JWK struct {
	Kty string `json:"kty"`           // Key type
	Crv string `json:"crv,omitempty"` // Curve
	X   string `json:"x,omitempty"`   // X coordinate
	Y   string `json:"y,omitempty"`   // Y coordinate
	N   string `json:"n,omitempty"`   // RSA modulus
	E   string `json:"e,omitempty"`   // RSA exponent
	D   string `json:"d,omitempty"`   // private part, only on private JWKs
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Use string `json:"use,omitempty"`
}

// Service is a DID document service endpoint.
type Service struct {
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	ServiceEndpoint interface{} `json:"serviceEndpoint"`
}

// AuthenticationRef is an entry of a verification relationship: either a
// reference to a method id or an embedded method.
type AuthenticationRef struct {
	Ref    string
	Method *VerificationMethod
}

func (a *AuthenticationRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.Ref)
	}

	var vm VerificationMethod
	if err := json.Unmarshal(data, &vm); err != nil {
		return fmt.Errorf("failed to unmarshal authentication entry: %w", err)
	}
	a.Method = &vm

	return nil
}

func (a AuthenticationRef) MarshalJSON() ([]byte, error) {
	if a.Method != nil {
		return json.Marshal(a.Method)
	}

	return json.Marshal(a.Ref)
}

// AbsoluteID expands a relative "#fragment" id against the document id.
func (d *DIDDocument) AbsoluteID(id string) string {
	if strings.HasPrefix(id, "#") {
		return d.ID + id
	}

	return id
}

// FindMethod looks id up among the verification methods, including the legacy
// publicKey list.
func (d *DIDDocument) FindMethod(id string) (*VerificationMethod, bool) {
	want := d.AbsoluteID(id)
	for _, list := range [][]VerificationMethod{d.VerificationMethod, d.PublicKey} {
		for i := range list {
			if d.AbsoluteID(list[i].ID) == want {
				return &list[i], true
			}
		}
	}

	return nil, false
}

// AuthenticationMethods returns the authentication entries resolved to
// methods, in document order. Dangling references are skipped.
func (d *DIDDocument) AuthenticationMethods() []VerificationMethod {
	methods := make([]VerificationMethod, 0, len(d.Authentication))
	for _, ref := range d.Authentication {
		if ref.Method != nil {
			methods = append(methods, *ref.Method)
			continue
		}

		if vm, ok := d.FindMethod(ref.Ref); ok {
			methods = append(methods, *vm)
		}
	}

	return methods
}

// IsEmpty reports whether the document carries nothing usable.
func (d *DIDDocument) IsEmpty() bool {
	return d == nil || (d.ID == "" && len(d.VerificationMethod) == 0 && len(d.PublicKey) == 0 && len(d.Authentication) == 0)
}
