package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// SigningMethod adapts a crypto suite to jwt.SigningMethod.
//
// Sign expects a model.SigningInfo key and Verify a model.CanonicalKey. The
// method is not registered globally so the library's own RS256 and friends
// stay untouched.
type SigningMethod struct {
	alg   string
	suite crypto.Suite
}

// NewSigningMethod returns the method for alg backed by suite.
func NewSigningMethod(alg string, suite crypto.Suite) *SigningMethod {
	return &SigningMethod{alg: alg, suite: suite}
}

// Alg returns the algorithm name
func (m *SigningMethod) Alg() string {
	return m.alg
}

// Sign signs a string with private key
func (m *SigningMethod) Sign(signingString string, key interface{}) ([]byte, error) {
	info, ok := key.(model.SigningInfo)
	if !ok {
		return nil, fmt.Errorf("invalid key type %T", key)
	}

	return m.suite.Sign(m.alg, []byte(signingString), info.Key, info.Format)
}

// Verify verifies a signature
func (m *SigningMethod) Verify(signingString string, signature []byte, key interface{}) error {
	pub, ok := key.(model.CanonicalKey)
	if !ok {
		return fmt.Errorf("invalid key type %T", key)
	}

	valid, err := m.suite.Verify(m.alg, []byte(signingString), signature, pub.PublicKey, pub.Format)
	if err != nil {
		return err
	}
	if !valid {
		return jwt.ErrSignatureInvalid
	}

	return nil
}
