// Package errs holds the error taxonomy shared by every SIOP package.
//
// Each value is a sentinel. Callers match it with errors.Is after any amount
// of fmt.Errorf("...: %w") wrapping.
package errs

// Error is a string-backed sentinel error.
type Error string

func (e Error) Error() string { return string(e) }

const (
	ErrMalformedInput             Error = "malformed input"
	ErrDocumentResolution         Error = "did document resolution failed"
	ErrNoMatchingPublicKey        Error = "no matching public key"
	ErrUnsupportedPublicKeyMethod Error = "unsupported public key method"
	ErrUnsupportedKeyFormat       Error = "unsupported key format"
	ErrUnsupportedAlgorithm       Error = "unsupported algorithm"
	ErrNoSigningInfo              Error = "no signing info"
	ErrUnresolvedIdentity         Error = "identity is not resolved"
	ErrInvalidSignature           Error = "invalid signature"
	ErrInvalidVPToken             Error = "invalid vp token"
	ErrAudienceMismatch           Error = "audience mismatch"
	ErrNonceMismatch              Error = "nonce mismatch"
	ErrExpired                    Error = "token expired"
	ErrTooEarly                   Error = "token issued in the future"
	ErrUnsupportedMetadata        Error = "unsupported metadata"
	ErrNotFound                   Error = "not found"
)
