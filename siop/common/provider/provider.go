package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
	"github.com/pilacorp/go-siop-sdk/siop/config"
)

// Resolver resolves a DID into its DID document. Implementations are free to
// go to the network; the SIOP engine treats them all the same way.
type Resolver interface {
	Resolve(ctx context.Context, did string) (*model.DIDDocument, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, did string) (*model.DIDDocument, error)

func (f ResolverFunc) Resolve(ctx context.Context, did string) (*model.DIDDocument, error) {
	return f(ctx, did)
}

// Chain tries its resolvers in order and returns the first non-empty document.
type Chain struct {
	resolvers []Resolver
	logger    *slog.Logger
}

// NewChain builds a chain. With no resolvers, the universal resolver at
// config.ResolverURL() is used.
func NewChain(logger *slog.Logger, resolvers ...Resolver) *Chain {
	if len(resolvers) == 0 {
		resolvers = []Resolver{NewUniversalResolver(config.ResolverURL())}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Chain{resolvers: resolvers, logger: logger}
}

// Resolvers returns the resolvers in the order they are tried.
func (c *Chain) Resolvers() []Resolver {
	return c.resolvers
}

// Resolve implements Resolver. Errors of individual resolvers are logged and
// skipped; only exhaustion of the chain is reported.
func (c *Chain) Resolve(ctx context.Context, did string) (*model.DIDDocument, error) {
	for i, r := range c.resolvers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolve %s: %w: %w", did, errs.ErrDocumentResolution, err)
		}

		doc, err := r.Resolve(ctx, did)
		if err != nil {
			c.logger.Debug("resolver failed, trying next", "did", did, "resolver", i, "error", err)
			continue
		}
		if doc.IsEmpty() {
			c.logger.Debug("resolver returned no document, trying next", "did", did, "resolver", i)
			continue
		}

		return doc, nil
	}

	return nil, fmt.Errorf("resolve %s with %d resolvers: %w", did, len(c.resolvers), errs.ErrDocumentResolution)
}
