package request

import (
	"log/slog"
	"math/rand"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
	"github.com/pilacorp/go-siop-sdk/siop/metadata"
)

type options struct {
	resolvers []provider.Resolver
	metadata  *metadata.ProviderMetadata
	registry  *crypto.Registry
	logger    *slog.Logger
	rand      *rand.Rand
}

// Opt configures request generation and validation.
type Opt func(*options)

// WithResolvers sets the resolvers used to resolve the request issuer.
func WithResolvers(resolvers ...provider.Resolver) Opt {
	return func(o *options) {
		o.resolvers = append(o.resolvers, resolvers...)
	}
}

// WithMetadata enables the provider metadata check of Validate.
func WithMetadata(md metadata.ProviderMetadata) Opt {
	return func(o *options) {
		o.metadata = &md
	}
}

// WithRegistry replaces the default crypto registry.
func WithRegistry(registry *crypto.Registry) Opt {
	return func(o *options) {
		o.registry = registry
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Opt {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRand sets the source used to pick the signing key.
func WithRand(r *rand.Rand) Opt {
	return func(o *options) {
		o.rand = r
	}
}

func getOptions(opts ...Opt) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = crypto.Default()
	}

	return o
}
