package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"

	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// CachingResolver memoizes successful resolutions of another resolver in an
// LRU cache. Failures are not cached.
type CachingResolver struct {
	next  Resolver
	cache gcache.Cache
}

// NewCachingResolver wraps next with an LRU of size entries. A zero ttl keeps
// entries until evicted.
func NewCachingResolver(next Resolver, size int, ttl time.Duration) *CachingResolver {
	builder := gcache.New(size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}

	return &CachingResolver{next: next, cache: builder.Build()}
}

// Resolve implements Resolver.
func (r *CachingResolver) Resolve(ctx context.Context, did string) (*model.DIDDocument, error) {
	cached, err := r.cache.Get(did)
	if err == nil {
		return cached.(*model.DIDDocument), nil
	}
	if !errors.Is(err, gcache.KeyNotFoundError) {
		return nil, fmt.Errorf("failed to read resolver cache: %w", err)
	}

	doc, err := r.next.Resolve(ctx, did)
	if err != nil {
		return nil, err
	}
	if !doc.IsEmpty() {
		if err := r.cache.Set(did, doc); err != nil {
			return nil, fmt.Errorf("failed to write resolver cache: %w", err)
		}
	}

	return doc, nil
}
