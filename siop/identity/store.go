package identity

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// SigningInfoStore manages signing infos by kid in a thread-safe manner.
// Callers still must not remove a key while a token is being signed with it
// if they rely on that key being the one picked.
type SigningInfoStore struct {
	infos map[string]model.SigningInfo
	mu    sync.RWMutex
}

// NewSigningInfoStore initializes a new SigningInfoStore
func NewSigningInfoStore() *SigningInfoStore {
	return &SigningInfoStore{
		infos: make(map[string]model.SigningInfo),
	}
}

// Add stores info, replacing any entry with the same kid.
func (s *SigningInfoStore) Add(info model.SigningInfo) error {
	if info.Kid == "" || info.Key == "" {
		return errors.New("kid and key cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.infos[info.Kid] = info
	return nil
}

// Get retrieves a signing info by kid
func (s *SigningInfoStore) Get(kid string) (model.SigningInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.infos[kid]
	return info, ok
}

// Delete removes the entry for kid. Unknown kids are ignored.
func (s *SigningInfoStore) Delete(kid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.infos, kid)
}

// Len returns the number of entries.
func (s *SigningInfoStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.infos)
}

// List returns every entry ordered by kid.
func (s *SigningInfoStore) List() []model.SigningInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kids := make([]string, 0, len(s.infos))
	for kid := range s.infos {
		kids = append(kids, kid)
	}
	slices.Sort(kids)

	out := make([]model.SigningInfo, 0, len(kids))
	for _, kid := range kids {
		out = append(out, s.infos[kid])
	}
	return out
}
