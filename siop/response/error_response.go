package response

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
)

// ErrorResponse is an OAuth 2.0 / SIOP error returned to a relying party.
type ErrorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e ErrorResponse) Error() string {
	return e.Code + ": " + e.Description
}

// Error codes of the catalog.
const (
	CodeInvalidRequest                 = "invalid_request"
	CodeUnauthorizedClient             = "unauthorized_client"
	CodeAccessDenied                   = "access_denied"
	CodeUnsupportedResponseType        = "unsupported_response_type"
	CodeInvalidScope                   = "invalid_scope"
	CodeServerError                    = "server_error"
	CodeTemporarilyUnavailable         = "temporarily_unavailable"
	CodeInteractionRequired            = "interaction_required"
	CodeLoginRequired                  = "login_required"
	CodeAccountSelectionRequired       = "account_selection_required"
	CodeConsentRequired                = "consent_required"
	CodeInvalidRequestURI              = "invalid_request_uri"
	CodeInvalidRequestObject           = "invalid_request_object"
	CodeRequestNotSupported            = "request_not_supported"
	CodeRequestURINotSupported         = "request_uri_not_supported"
	CodeRegistrationNotSupported       = "registration_not_supported"
	CodeUserCancelled                  = "user_cancelled"
	CodeRegistrationValueNotSupported  = "registration_value_not_supported"
	CodeSubjectSyntaxTypesNotSupported = "subject_syntax_types_not_supported"
	CodeInvalidRegistrationURI         = "invalid_registration_uri"
	CodeInvalidRegistrationObject      = "invalid_registration_object"
)

var catalog = map[string]string{
	CodeInvalidRequest:                 "The request is missing a required parameter, includes an invalid parameter value, includes a parameter more than once, or is otherwise malformed.",
	CodeUnauthorizedClient:             "The client is not authorized to request an authorization code using this method.",
	CodeAccessDenied:                   "The resource owner or authorization server denied the request.",
	CodeUnsupportedResponseType:        "The authorization server does not support obtaining an authorization code using this method.",
	CodeInvalidScope:                   "The requested scope is invalid, unknown, or malformed.",
	CodeServerError:                    "The authorization server encountered an unexpected condition that prevented it from fulfilling the request.",
	CodeTemporarilyUnavailable:         "The authorization server is currently unable to handle the request due to a temporary overloading or maintenance of the server.",
	CodeInteractionRequired:            "The Authorization Server requires End-User interaction of some form to proceed.",
	CodeLoginRequired:                  "The Authorization Server requires End-User authentication.",
	CodeAccountSelectionRequired:       "The End-User is required to select a session at the Authorization Server.",
	CodeConsentRequired:                "The Authorization Server requires End-User consent.",
	CodeInvalidRequestURI:              "The request_uri in the Authorization Request returns an error or contains invalid data.",
	CodeInvalidRequestObject:           "The request parameter contains an invalid Request Object.",
	CodeRequestNotSupported:            "The OP does not support use of the request parameter.",
	CodeRequestURINotSupported:         "The OP does not support use of the request_uri parameter.",
	CodeRegistrationNotSupported:       "The OP does not support use of the registration parameter.",
	CodeUserCancelled:                  "The End-User cancelled the request.",
	CodeRegistrationValueNotSupported:  "The OP does not support one or more of the RP registration values.",
	CodeSubjectSyntaxTypesNotSupported: "The OP does not support any of the Subject Syntax Types supported by the RP.",
	CodeInvalidRegistrationURI:         "The registration_uri in the Authorization Request returns an error or contains invalid data.",
	CodeInvalidRegistrationObject:      "The registration parameter contains an invalid RP Registration Object.",
}

// LookupErrorResponse returns the catalog entry for code.
func LookupErrorResponse(code string) (ErrorResponse, bool) {
	desc, ok := catalog[code]
	if !ok {
		return ErrorResponse{}, false
	}

	return ErrorResponse{Code: code, Description: desc}, true
}

// Encode renders the response as base64url encoded JSON.
func (e ErrorResponse) Encode() string {
	data, _ := json.Marshal(e)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeErrorResponse parses an encoded response. Codes outside the catalog
// are rejected.
func DecodeErrorResponse(s string) (ErrorResponse, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return ErrorResponse{}, fmt.Errorf("failed to decode error response: %w: %w", errs.ErrMalformedInput, err)
	}

	var e ErrorResponse
	if err := json.Unmarshal(data, &e); err != nil {
		return ErrorResponse{}, fmt.Errorf("failed to unmarshal error response: %w: %w", errs.ErrMalformedInput, err)
	}
	if _, ok := catalog[e.Code]; !ok {
		return ErrorResponse{}, fmt.Errorf("unknown error code %q: %w", e.Code, errs.ErrMalformedInput)
	}

	return e, nil
}

// ErrorResponseFor maps a failure of request validation to the error a
// provider reports back to the relying party.
func ErrorResponseFor(err error) ErrorResponse {
	code := CodeServerError
	switch {
	case errors.Is(err, errs.ErrMalformedInput):
		code = CodeInvalidRequestObject
	case errors.Is(err, errs.ErrDocumentResolution),
		errors.Is(err, errs.ErrNoMatchingPublicKey),
		errors.Is(err, errs.ErrInvalidSignature),
		errors.Is(err, errs.ErrUnsupportedAlgorithm),
		errors.Is(err, errs.ErrUnsupportedPublicKeyMethod),
		errors.Is(err, errs.ErrUnsupportedKeyFormat):
		code = CodeInvalidRequest
	case errors.Is(err, errs.ErrUnsupportedMetadata):
		code = CodeRegistrationValueNotSupported
	}

	e, _ := LookupErrorResponse(code)
	return e
}
