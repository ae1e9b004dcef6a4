package model

// KeyFamily is the JOSE key type of a public key.
type KeyFamily string

const (
	KeyFamilyRSA KeyFamily = "RSA"
	KeyFamilyEC  KeyFamily = "EC"
	KeyFamilyOKP KeyFamily = "OKP"
)

// KeyFormat names how a key string is encoded.
type KeyFormat string

const (
	KeyFormatPKCS8PEM        KeyFormat = "PKCS8_PEM"
	KeyFormatPKCS1PEM        KeyFormat = "PKCS1_PEM"
	KeyFormatHex             KeyFormat = "HEX"
	KeyFormatBase58          KeyFormat = "BASE58"
	KeyFormatBase64          KeyFormat = "BASE64"
	KeyFormatJWK             KeyFormat = "JWK"
	KeyFormatEthereumAddress KeyFormat = "ETHEREUM_ADDRESS"
	KeyFormatAddress         KeyFormat = "ADDRESS"
)

// KeyFormats lists every format in declaration order. Trial key matching
// walks it in this order.
var KeyFormats = []KeyFormat{
	KeyFormatPKCS8PEM,
	KeyFormatPKCS1PEM,
	KeyFormatHex,
	KeyFormatBase58,
	KeyFormatBase64,
	KeyFormatJWK,
	KeyFormatEthereumAddress,
	KeyFormatAddress,
}

// Signature algorithms.
const (
	AlgRS256   = "RS256"
	AlgRS384   = "RS384"
	AlgRS512   = "RS512"
	AlgPS256   = "PS256"
	AlgPS384   = "PS384"
	AlgPS512   = "PS512"
	AlgES256   = "ES256"
	AlgES384   = "ES384"
	AlgES512   = "ES512"
	AlgES256K  = "ES256K"
	AlgES256KR = "ES256K-R"
	AlgEdDSA   = "EdDSA"
)

// CanonicalKey is a public key extracted from a verification method.
type CanonicalKey struct {
	ID        string
	KeyFamily KeyFamily
	Algorithm string
	Format    KeyFormat
	PublicKey string
}

// IsAddress reports whether the key is only known by its address.
func (k CanonicalKey) IsAddress() bool {
	return k.Format == KeyFormatEthereumAddress || k.Format == KeyFormatAddress
}

// SigningInfo is a private key registered on an identity for signing.
type SigningInfo struct {
	Alg    string
	Kid    string
	Key    string
	Format KeyFormat
	// PublicKeyFormat is the format of the document key info was matched
	// against. Keys matched against an address sign by recovery.
	PublicKeyFormat KeyFormat
}
