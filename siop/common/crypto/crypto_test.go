package crypto_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/go-jose/go-jose/v3"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

type keyPair struct {
	alg        string
	family     model.KeyFamily
	priv       string
	privFormat model.KeyFormat
	pub        string
	pubFormat  model.KeyFormat
}

func rsaPair(t *testing.T, alg string) keyPair {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return keyPair{
		alg:        alg,
		family:     model.KeyFamilyRSA,
		priv:       string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})),
		privFormat: model.KeyFormatPKCS1PEM,
		pub:        string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})),
		pubFormat:  model.KeyFormatPKCS8PEM,
	}
}

func nistPair(t *testing.T, alg string, curve elliptic.Curve) keyPair {
	t.Helper()
	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	require.NoError(t, err)

	size := (curve.Params().BitSize + 7) / 8
	d := make([]byte, size)
	priv.D.FillBytes(d)

	return keyPair{
		alg:        alg,
		family:     model.KeyFamilyEC,
		priv:       hex.EncodeToString(d),
		privFormat: model.KeyFormatHex,
		pub:        hex.EncodeToString(elliptic.Marshal(curve, priv.X, priv.Y)),
		pubFormat:  model.KeyFormatHex,
	}
}

func secp256k1Pair(t *testing.T) (*ecdsa.PrivateKey, keyPair) {
	t.Helper()
	priv, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	return priv, keyPair{
		alg:        model.AlgES256K,
		family:     model.KeyFamilyEC,
		priv:       hex.EncodeToString(ethcrypto.FromECDSA(priv)),
		privFormat: model.KeyFormatHex,
		pub:        hex.EncodeToString(ethcrypto.CompressPubkey(&priv.PublicKey)),
		pubFormat:  model.KeyFormatHex,
	}
}

func ed25519Pair(t *testing.T) keyPair {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return keyPair{
		alg:        model.AlgEdDSA,
		family:     model.KeyFamilyOKP,
		priv:       base58.Encode(priv.Seed()),
		privFormat: model.KeyFormatBase58,
		pub:        base58.Encode(pub),
		pubFormat:  model.KeyFormatBase58,
	}
}

func recoverablePair(t *testing.T) keyPair {
	t.Helper()
	priv, pair := secp256k1Pair(t)
	pair.alg = model.AlgES256KR
	pair.pub = ethcrypto.PubkeyToAddress(priv.PublicKey).Hex()
	pair.pubFormat = model.KeyFormatEthereumAddress

	return pair
}

func allPairs(t *testing.T) []keyPair {
	_, k := secp256k1Pair(t)

	return []keyPair{
		rsaPair(t, model.AlgRS256),
		rsaPair(t, model.AlgRS384),
		rsaPair(t, model.AlgRS512),
		rsaPair(t, model.AlgPS256),
		rsaPair(t, model.AlgPS384),
		rsaPair(t, model.AlgPS512),
		nistPair(t, model.AlgES256, elliptic.P256()),
		nistPair(t, model.AlgES384, elliptic.P384()),
		nistPair(t, model.AlgES512, elliptic.P521()),
		k,
		ed25519Pair(t),
		recoverablePair(t),
	}
}

func suiteFor(t *testing.T, p keyPair) crypto.Suite {
	t.Helper()
	suite, err := crypto.Default().ForKey(model.CanonicalKey{KeyFamily: p.family, Algorithm: p.alg, Format: p.pubFormat})
	require.NoError(t, err)

	return suite
}

func TestSignVerifyRoundTrip(t *testing.T) {
	message := []byte("eyJhbGciOiJFUzI1NksifQ.eyJpc3MiOiJkaWQ6ZXhhbXBsZToxMjMifQ")

	for _, p := range allPairs(t) {
		t.Run(p.alg, func(t *testing.T) {
			suite := suiteFor(t, p)

			sig, err := suite.Sign(p.alg, message, p.priv, p.privFormat)
			require.NoError(t, err)

			ok, err := suite.Verify(p.alg, message, sig, p.pub, p.pubFormat)
			require.NoError(t, err)
			assert.True(t, ok)

			for _, i := range []int{0, len(sig) / 2, len(sig) - 1} {
				mutated := append([]byte(nil), sig...)
				mutated[i] ^= 0xff
				ok, err = suite.Verify(p.alg, message, mutated, p.pub, p.pubFormat)
				require.NoError(t, err)
				assert.False(t, ok, "signature byte %d mutated", i)
			}

			tampered := append([]byte(nil), message...)
			tampered[3] ^= 0x01
			ok, err = suite.Verify(p.alg, tampered, sig, p.pub, p.pubFormat)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRecoverableSignatureCarriesRecoveryID(t *testing.T) {
	p := recoverablePair(t)
	sig, err := crypto.NewRecoverableSuite().Sign(p.alg, []byte("msg"), p.priv, p.privFormat)
	require.NoError(t, err)
	assert.Len(t, sig, 65)

	_, es256k := secp256k1Pair(t)
	sig, err = crypto.NewECSuite().Sign(es256k.alg, []byte("msg"), es256k.priv, es256k.privFormat)
	require.NoError(t, err)
	assert.Len(t, sig, 64)
}

func TestRecoverableVerifyAgainstPublicKey(t *testing.T) {
	priv, p := secp256k1Pair(t)
	suite := crypto.NewRecoverableSuite()

	sig, err := suite.Sign(model.AlgES256KR, []byte("msg"), p.priv, p.privFormat)
	require.NoError(t, err)

	uncompressed := hex.EncodeToString(ethcrypto.FromECDSAPub(&priv.PublicKey))
	ok, err := suite.Verify(model.AlgES256KR, []byte("msg"), sig, uncompressed, model.KeyFormatHex)
	require.NoError(t, err)
	assert.True(t, ok)

	other, _ := secp256k1Pair(t)
	ok, err = suite.Verify(model.AlgES256KR, []byte("msg"), sig, ethcrypto.PubkeyToAddress(other.PublicKey).Hex(), model.KeyFormatEthereumAddress)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJWKKeys(t *testing.T) {
	suite := crypto.NewECSuite()
	message := []byte("jwk")

	t.Run("P-256 via go-jose", func(t *testing.T) {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)

		privJWK, err := json.Marshal(jose.JSONWebKey{Key: priv})
		require.NoError(t, err)
		pubJWK, err := json.Marshal(jose.JSONWebKey{Key: &priv.PublicKey})
		require.NoError(t, err)

		sig, err := suite.Sign(model.AlgES256, message, string(privJWK), model.KeyFormatJWK)
		require.NoError(t, err)
		ok, err := suite.Verify(model.AlgES256, message, sig, string(pubJWK), model.KeyFormatJWK)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("secp256k1", func(t *testing.T) {
		priv, err := ethcrypto.GenerateKey()
		require.NoError(t, err)

		enc := base64.RawURLEncoding
		x := make([]byte, 32)
		y := make([]byte, 32)
		priv.X.FillBytes(x)
		priv.Y.FillBytes(y)
		pubJWK := model.JWK{Kty: "EC", Crv: "secp256k1", X: enc.EncodeToString(x), Y: enc.EncodeToString(y)}
		privJWK := pubJWK
		privJWK.D = enc.EncodeToString(ethcrypto.FromECDSA(priv))

		privJSON, _ := json.Marshal(privJWK)
		pubJSON, _ := json.Marshal(pubJWK)

		sig, err := suite.Sign(model.AlgES256K, message, string(privJSON), model.KeyFormatJWK)
		require.NoError(t, err)
		ok, err := suite.Verify(model.AlgES256K, message, sig, string(pubJSON), model.KeyFormatJWK)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Ed25519 via go-jose", func(t *testing.T) {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		privJWK, err := json.Marshal(jose.JSONWebKey{Key: priv})
		require.NoError(t, err)
		pubJWK, err := json.Marshal(jose.JSONWebKey{Key: pub})
		require.NoError(t, err)

		okp := crypto.NewOKPSuite()
		sig, err := okp.Sign(model.AlgEdDSA, message, string(privJWK), model.KeyFormatJWK)
		require.NoError(t, err)
		ok, err := okp.Verify(model.AlgEdDSA, message, sig, string(pubJWK), model.KeyFormatJWK)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRSAPKCS1PublicKey(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}))
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey)}))

	suite := crypto.NewRSASuite()
	sig, err := suite.Sign(model.AlgRS256, []byte("pkcs1"), privPEM, model.KeyFormatPKCS1PEM)
	require.NoError(t, err)

	ok, err := suite.Verify(model.AlgRS256, []byte("pkcs1"), sig, pubPEM, model.KeyFormatPKCS1PEM)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRSAPGPArmorNeverVerifies(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}))
	armor := string(pem.EncodeToMemory(&pem.Block{Type: "PGP PUBLIC KEY BLOCK", Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey)}))

	suite := crypto.NewRSASuite()
	sig, err := suite.Sign(model.AlgRS256, []byte("pgp"), privPEM, model.KeyFormatPKCS1PEM)
	require.NoError(t, err)

	ok, err := suite.Verify(model.AlgRS256, []byte("pgp"), sig, armor, model.KeyFormatPKCS8PEM)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, crypto.CheckKeyPair(privPEM, model.KeyFormatPKCS1PEM, armor, model.KeyFormatPKCS8PEM, suite, suite, model.AlgRS256))
}

func TestCheckKeyPair(t *testing.T) {
	for _, p := range allPairs(t) {
		t.Run(p.alg, func(t *testing.T) {
			suite := suiteFor(t, p)
			assert.True(t, crypto.CheckKeyPair(p.priv, p.privFormat, p.pub, p.pubFormat, suite, suite, p.alg))
			assert.False(t, crypto.CheckKeyPair(p.priv, model.KeyFormatJWK, p.pub, p.pubFormat, suite, suite, p.alg))
		})
	}

	_, a := secp256k1Pair(t)
	_, b := secp256k1Pair(t)
	ec := crypto.NewECSuite()
	assert.False(t, crypto.CheckKeyPair(a.priv, a.privFormat, b.pub, b.pubFormat, ec, ec, model.AlgES256K))
}

func TestRegistry(t *testing.T) {
	r := crypto.Default()

	suite, err := r.Lookup(model.KeyFamilyEC, model.AlgES256KR)
	require.NoError(t, err)
	assert.IsType(t, &crypto.RecoverableSuite{}, suite)

	suite, err = r.Lookup(model.KeyFamilyEC, model.AlgES256K)
	require.NoError(t, err)
	assert.IsType(t, &crypto.ECSuite{}, suite)

	suite, err = r.ForKey(model.CanonicalKey{KeyFamily: model.KeyFamilyEC, Algorithm: model.AlgES256K, Format: model.KeyFormatEthereumAddress})
	require.NoError(t, err)
	assert.IsType(t, &crypto.RecoverableSuite{}, suite)

	suite, err = r.ForSigningInfo(model.SigningInfo{Alg: model.AlgES256K, PublicKeyFormat: model.KeyFormatAddress})
	require.NoError(t, err)
	assert.IsType(t, &crypto.RecoverableSuite{}, suite)

	suite, err = r.ForSigningInfo(model.SigningInfo{Alg: model.AlgES256K, PublicKeyFormat: model.KeyFormatHex})
	require.NoError(t, err)
	assert.IsType(t, &crypto.ECSuite{}, suite)

	_, err = r.Lookup(model.KeyFamilyOKP, model.AlgRS256)
	assert.ErrorIs(t, err, errs.ErrUnsupportedAlgorithm)

	_, err = r.ForAlgorithm("HS256")
	assert.ErrorIs(t, err, errs.ErrUnsupportedAlgorithm)

	assert.Contains(t, r.Algorithms(), model.AlgEdDSA)
	assert.Contains(t, r.Algorithms(), model.AlgPS512)
}

func TestUnsupportedFormats(t *testing.T) {
	_, err := crypto.NewOKPSuite().Sign(model.AlgEdDSA, []byte("m"), "0xabc", model.KeyFormatEthereumAddress)
	assert.ErrorIs(t, err, errs.ErrUnsupportedKeyFormat)

	_, err = crypto.NewECSuite().Sign(model.AlgES256K, []byte("m"), "-----BEGIN", model.KeyFormatPKCS8PEM)
	assert.ErrorIs(t, err, errs.ErrUnsupportedKeyFormat)
}
