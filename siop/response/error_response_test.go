package response_test

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/response"
)

func TestErrorResponseEncodeDecode(t *testing.T) {
	want, ok := response.LookupErrorResponse(response.CodeUserCancelled)
	require.True(t, ok)
	assert.Equal(t, "The End-User cancelled the request.", want.Description)

	got, err := response.DecodeErrorResponse(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Padded input is accepted too.
	padded := base64.URLEncoding.EncodeToString([]byte(`{"error":"login_required","error_description":"x"}`))
	got, err = response.DecodeErrorResponse(padded)
	require.NoError(t, err)
	assert.Equal(t, response.CodeLoginRequired, got.Code)
}

func TestDecodeErrorResponseRejects(t *testing.T) {
	tests := map[string]string{
		"not base64":   "%%%",
		"not json":     base64.RawURLEncoding.EncodeToString([]byte("error")),
		"unknown code": base64.RawURLEncoding.EncodeToString([]byte(`{"error":"teapot","error_description":"short and stout"}`)),
		"empty code":   base64.RawURLEncoding.EncodeToString([]byte(`{}`)),
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := response.DecodeErrorResponse(input)
			assert.ErrorIs(t, err, errs.ErrMalformedInput)
		})
	}
}

func TestLookupErrorResponseUnknown(t *testing.T) {
	_, ok := response.LookupErrorResponse("teapot")
	assert.False(t, ok)
}

func TestErrorResponseFor(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{fmt.Errorf("bad: %w", errs.ErrMalformedInput), response.CodeInvalidRequestObject},
		{fmt.Errorf("resolve: %w", errs.ErrDocumentResolution), response.CodeInvalidRequest},
		{errs.ErrNoMatchingPublicKey, response.CodeInvalidRequest},
		{errs.ErrInvalidSignature, response.CodeInvalidRequest},
		{fmt.Errorf("scope: %w", errs.ErrUnsupportedMetadata), response.CodeRegistrationValueNotSupported},
		{errors.New("disk on fire"), response.CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := response.ErrorResponseFor(tt.err)
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Description)
		})
	}
}
