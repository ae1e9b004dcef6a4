package identity

import (
	"fmt"
	"math/rand"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	verificationmethod "github.com/pilacorp/go-siop-sdk/siop/common/verification-method"
)

// AddSigningParams finds the authentication key of the document that
// privateKey belongs to and registers privateKey for signing under its kid.
//
// Every authentication method is tried in document order against every key
// format in model.KeyFormats order; the first pair that signs and verifies
// wins. The recorded algorithm is the one declared by the document.
func (id *Identity) AddSigningParams(privateKey string) (string, error) {
	doc, err := id.requireResolved()
	if err != nil {
		return "", err
	}

	key := normalizePrivateKey(privateKey)

	for _, vm := range doc.AuthenticationMethods() {
		pub, err := verificationmethod.Extract(vm)
		if err != nil {
			id.logger.Debug("skipping authentication method", "kid", vm.ID, "error", err)
			continue
		}

		suite, err := id.registry.ForKey(pub)
		if err != nil {
			id.logger.Debug("skipping authentication method", "kid", vm.ID, "error", err)
			continue
		}

		for _, format := range model.KeyFormats {
			if !crypto.CheckKeyPair(key, format, pub.PublicKey, pub.Format, suite, suite, pub.Algorithm) {
				continue
			}

			kid := doc.AbsoluteID(vm.ID)
			info := model.SigningInfo{Alg: pub.Algorithm, Kid: kid, Key: key, Format: format, PublicKeyFormat: pub.Format}
			if _, ok := id.store.Get(kid); ok {
				id.logger.Debug("replacing signing key", "kid", kid)
			}
			if err := id.store.Add(info); err != nil {
				return "", fmt.Errorf("failed to store signing info: %w", err)
			}

			id.logger.Debug("signing key matched", "kid", kid, "alg", pub.Algorithm, "format", format, "keys", id.store.Len())
			return kid, nil
		}
	}

	return "", fmt.Errorf("private key matches no authentication key of %s: %w", id.did, errs.ErrNoMatchingPublicKey)
}

// RemoveSigningParams forgets the key registered under kid.
func (id *Identity) RemoveSigningParams(kid string) {
	id.store.Delete(kid)
}

// SigningInfos returns the registered keys ordered by kid.
func (id *Identity) SigningInfos() []model.SigningInfo {
	return id.store.List()
}

// PickSigningInfo selects one registered key uniformly at random. A nil r
// uses the global source.
func (id *Identity) PickSigningInfo(r *rand.Rand) (model.SigningInfo, error) {
	infos := id.store.List()
	if len(infos) == 0 {
		return model.SigningInfo{}, fmt.Errorf("identity %s: %w", id.did, errs.ErrNoSigningInfo)
	}

	var i int
	if r != nil {
		i = r.Intn(len(infos))
	} else {
		i = rand.Intn(len(infos))
	}

	return infos[i], nil
}

// normalizePrivateKey re-encodes a multibase private key as base58. Anything
// that does not look like a multibase 32 or 64 byte key is returned as is.
func normalizePrivateKey(key string) string {
	enc, data, err := multibase.Decode(key)
	if err != nil {
		return key
	}

	// A plain base58 key may start with any multibase prefix letter.
	if raw, err := base58.Decode(key); err == nil && (len(raw) == 32 || len(raw) == 64) {
		return key
	}

	switch enc {
	case multibase.Base58BTC, multibase.Base64, multibase.Base64url, multibase.Base64pad, multibase.Base64urlPad:
	default:
		return key
	}

	if len(data) != 32 && len(data) != 64 {
		return key
	}

	return base58.Encode(data)
}
