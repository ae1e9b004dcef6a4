package response

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/pilacorp/go-siop-sdk/siop/common/crypto"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
)

type options struct {
	resolvers []provider.Resolver
	registry  *crypto.Registry
	logger    *slog.Logger
	rand      *rand.Rand
	now       func() time.Time
}

// Opt configures response generation and validation.
type Opt func(*options)

// WithResolvers sets the resolvers used to resolve the response subject.
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

// WithClock overrides time.Now for iat, exp and their checks.
func WithClock(now func() time.Time) Opt {
	return func(o *options) {
		o.now = now
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
	if o.now == nil {
		o.now = time.Now
	}

	return o
}
