// Package identity binds a DID to its resolved document and to the private
// keys registered for signing on its behalf.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
)

// Identity is a DID, its document once resolved, and its signing keys.
type Identity struct {
	did      string
	chain    *provider.Chain
	registry *crypto.Registry
	logger   *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	doc   *model.DIDDocument

	store *SigningInfoStore
}

type options struct {
	resolvers []provider.Resolver
	registry  *crypto.Registry
	logger    *slog.Logger
}

// Opt configures an Identity.
type Opt func(*options)

// WithResolvers sets the resolvers tried, in order, when resolving the DID.
func WithResolvers(resolvers ...provider.Resolver) Opt {
	return func(o *options) {
		o.resolvers = append(o.resolvers, resolvers...)
	}
}

// WithRegistry replaces the default crypto registry.
func WithRegistry(registry *crypto.Registry) Opt {
	return func(o *options) {
		o.registry = registry
	}
}

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an unresolved identity for did.
func New(did string, opts ...Opt) *Identity {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = crypto.Default()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Identity{
		did:      did,
		chain:    provider.NewChain(o.logger, o.resolvers...),
		registry: o.registry,
		logger:   o.logger.With("did", did),
		store:    NewSigningInfoStore(),
	}
}

// DID returns the identifier.
func (id *Identity) DID() string { return id.did }

// Registry returns the crypto registry used for signing and key matching.
func (id *Identity) Registry() *crypto.Registry { return id.registry }

// Resolver returns the chain the identity resolves with. It is also used to
// resolve the counterparty of a flow.
func (id *Identity) Resolver() *provider.Chain { return id.chain }

// Logger returns the identity's logger.
func (id *Identity) Logger() *slog.Logger { return id.logger }

// Document returns the resolved document, or nil before Resolve succeeds.
func (id *Identity) Document() *model.DIDDocument {
	id.mu.RLock()
	defer id.mu.RUnlock()

	return id.doc
}

// IsResolved reports whether the document is available.
func (id *Identity) IsResolved() bool {
	return id.Document() != nil
}

// Resolve resolves the DID once. Later calls return the cached document and
// concurrent first calls share one resolution. The shared resolution keeps
// ctx's values but not its cancellation; a canceled caller stops waiting
// without failing the others.
func (id *Identity) Resolve(ctx context.Context) (*model.DIDDocument, error) {
	if doc := id.Document(); doc != nil {
		return doc, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := id.group.DoChan(id.did, func() (interface{}, error) {
		if doc := id.Document(); doc != nil {
			return doc, nil
		}

		doc, err := id.chain.Resolve(shared, id.did)
		if err != nil {
			return nil, err
		}

		id.mu.Lock()
		id.doc = doc
		id.mu.Unlock()

		id.logger.Debug("identity resolved", "methods", len(doc.AuthenticationMethods()))
		return doc, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to resolve identity %s: %w", id.did, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to resolve identity %s: %w", id.did, res.Err)
		}
		return res.Val.(*model.DIDDocument), nil
	}
}

// requireResolved returns the document or ErrUnresolvedIdentity.
func (id *Identity) requireResolved() (*model.DIDDocument, error) {
	doc := id.Document()
	if doc == nil {
		return nil, fmt.Errorf("identity %s: %w", id.did, errs.ErrUnresolvedIdentity)
	}

	return doc, nil
}
