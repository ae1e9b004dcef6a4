package model

import "time"

// CheckParams drives claims validation of a SIOP response.
type CheckParams struct {
	RedirectURI string
	// ValidBefore bounds the age of iat. Zero disables the check.
	ValidBefore time.Duration
	IsExpirable bool
	Nonce       string
}

// VPData is the presentation material attached to a response.
type VPData struct {
	// VPToken becomes the payload of the separate vp_token.
	VPToken map[string]interface{} `json:"vp_token"`
	// VPTokenEcho is embedded in the id_token as _vp_token.
	VPTokenEcho map[string]interface{} `json:"_vp_token,omitempty"`
}

// Tokens is the id_token and vp_token pair of a response.
type Tokens struct {
	IDToken string `json:"id_token"`
	VPToken string `json:"vp_token,omitempty"`
}
