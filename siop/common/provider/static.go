package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// StaticResolver serves documents held in memory.
type StaticResolver struct {
	mu   sync.RWMutex
	docs map[string]*model.DIDDocument
}

// NewStaticResolver indexes docs by their id.
func NewStaticResolver(docs ...*model.DIDDocument) *StaticResolver {
	r := &StaticResolver{docs: make(map[string]*model.DIDDocument)}
	for _, doc := range docs {
		r.Add(doc)
	}

	return r
}

// Add stores or replaces a document.
func (r *StaticResolver) Add(doc *model.DIDDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(_ context.Context, did string) (*model.DIDDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[did]
	if !ok {
		return nil, fmt.Errorf("DID %s: %w", did, errs.ErrNotFound)
	}

	return doc, nil
}
