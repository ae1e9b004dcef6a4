package crypto

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// RecoverableSuite implements ES256K-R. Signatures are 65 bytes r||s||v.
//
// Verification recovers the signer from the signature and compares it with
// the stored key: by checksummed address for address formats, by compressed
// public key otherwise.
type RecoverableSuite struct{}

func NewRecoverableSuite() *RecoverableSuite { return &RecoverableSuite{} }

func (s *RecoverableSuite) Family() model.KeyFamily { return model.KeyFamilyEC }

func (s *RecoverableSuite) Algorithms() []string { return []string{model.AlgES256KR} }

func (s *RecoverableSuite) Sign(alg string, message []byte, privateKey string, format model.KeyFormat) ([]byte, error) {
	if err := s.checkAlg(alg); err != nil {
		return nil, err
	}

	priv, err := parseSecp256k1PrivateKey(privateKey, format)
	if err != nil {
		return nil, err
	}

	hashed, _, err := digest(model.AlgES256KR, message)
	if err != nil {
		return nil, err
	}

	sig, err := ethcrypto.Sign(hashed, priv)
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}

	return sig, nil
}

func (s *RecoverableSuite) Verify(alg string, message, signature []byte, publicKey string, format model.KeyFormat) (bool, error) {
	if err := s.checkAlg(alg); err != nil {
		return false, err
	}

	hashed, _, err := digest(model.AlgES256KR, message)
	if err != nil {
		return false, err
	}

	if format == model.KeyFormatEthereumAddress || format == model.KeyFormatAddress {
		if !common.IsHexAddress(publicKey) {
			return false, fmt.Errorf("address %q: %w", publicKey, errs.ErrUnsupportedKeyFormat)
		}
		if len(signature) != 65 {
			return false, nil
		}

		recovered, err := ethcrypto.SigToPub(hashed, signature)
		if err != nil {
			return false, nil
		}

		return ethcrypto.PubkeyToAddress(*recovered).Hex() == common.HexToAddress(publicKey).Hex(), nil
	}

	pub, err := parseSecp256k1PublicKey(publicKey, format)
	if err != nil {
		return false, err
	}
	compressed := pub.SerializeCompressed()

	switch len(signature) {
	case 65:
		recovered, err := ethcrypto.SigToPub(hashed, signature)
		if err != nil {
			return false, nil
		}
		return bytes.Equal(ethcrypto.CompressPubkey(recovered), compressed), nil
	case 64:
		return ethcrypto.VerifySignature(compressed, hashed, signature), nil
	default:
		return false, nil
	}
}

func (s *RecoverableSuite) checkAlg(alg string) error {
	// ES256K keys found next to an address are verified by recovery too.
	if alg == model.AlgES256KR || strings.EqualFold(alg, model.AlgES256K) {
		return nil
	}

	return fmt.Errorf("recoverable %s: %w", alg, errs.ErrUnsupportedAlgorithm)
}
