package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	"github.com/pilacorp/go-siop-sdk/siop/config"
)

const acceptHeader = `application/did+ld+json, application/ld+json;profile="https://w3id.org/did-resolution", application/json`

// UniversalResolver resolves DIDs over HTTP against a DIF universal resolver
// style endpoint: GET {baseURL}/{did}.
type UniversalResolver struct {
	baseURL string
	client  *http.Client
}

// UniversalOpt configures a UniversalResolver.
type UniversalOpt func(*UniversalResolver)

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) UniversalOpt {
	return func(r *UniversalResolver) {
		r.client = client
	}
}

// NewUniversalResolver creates a new DID resolver with a given base URL.
func NewUniversalResolver(baseURL string, opts ...UniversalOpt) *UniversalResolver {
	r := &UniversalResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   config.ResolverTimeout(),
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve implements Resolver.
func (r *UniversalResolver) Resolve(ctx context.Context, did string) (*model.DIDDocument, error) {
	apiURL := r.baseURL + "/" + url.PathEscape(did)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DID resolver request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request to DID resolver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("DID %s: %w", did, errs.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DID resolver API returned non-200 status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from DID resolver: %w", err)
	}

	return parseResolution(body)
}

// parseResolution accepts a DID resolution result or a bare DID document.
func parseResolution(body []byte) (*model.DIDDocument, error) {
	var envelope struct {
		DIDDocument *model.DIDDocument `json:"didDocument"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DID resolution JSON: %w", err)
	}
	if envelope.DIDDocument != nil {
		return envelope.DIDDocument, nil
	}

	var doc model.DIDDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DID document JSON: %w", err)
	}

	return &doc, nil
}
