package crypto

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-siop-sdk/siop/common/errs"
	"github.com/pilacorp/go-siop-sdk/siop/common/model"
)

// Registry selects a suite by key family and algorithm.
type Registry struct {
	suites      []Suite
	recoverable Suite
}

// NewRegistry builds a registry over suites. The recoverable suite serves
// keys known only by address.
func NewRegistry(recoverable Suite, suites ...Suite) *Registry {
	return &Registry{suites: suites, recoverable: recoverable}
}

var defaultRegistry = NewRegistry(NewRecoverableSuite(), NewRSASuite(), NewECSuite(), NewOKPSuite())

// Default returns the registry of every built-in suite.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the suite for (family, alg).
func (r *Registry) Lookup(family model.KeyFamily, alg string) (Suite, error) {
	if r.recoverable != nil && r.recoverable.Family() == family && slices.Contains(r.recoverable.Algorithms(), alg) {
		return r.recoverable, nil
	}

	for _, s := range r.suites {
		if s.Family() == family && slices.Contains(s.Algorithms(), alg) {
			return s, nil
		}
	}

	return nil, fmt.Errorf("%s/%s: %w", family, alg, errs.ErrUnsupportedAlgorithm)
}

// ForAlgorithm returns the suite for alg regardless of family.
func (r *Registry) ForAlgorithm(alg string) (Suite, error) {
	for _, s := range r.All() {
		if slices.Contains(s.Algorithms(), alg) {
			return s, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", alg, errs.ErrUnsupportedAlgorithm)
}

// ForKey returns the suite able to verify key. Address-only keys always go to
// the recoverable suite.
func (r *Registry) ForKey(key model.CanonicalKey) (Suite, error) {
	if key.IsAddress() || key.Algorithm == model.AlgES256KR {
		if r.recoverable == nil {
			return nil, fmt.Errorf("no recoverable suite for %s: %w", key.ID, errs.ErrUnsupportedAlgorithm)
		}
		return r.recoverable, nil
	}

	return r.Lookup(key.KeyFamily, key.Algorithm)
}

// ForSigningInfo returns the suite that signs with info. It routes the same
// way ForKey routes the document key info was matched against, so tokens
// signed for an address-only key verify.
func (r *Registry) ForSigningInfo(info model.SigningInfo) (Suite, error) {
	key := model.CanonicalKey{ID: info.Kid, Algorithm: info.Alg, Format: info.PublicKeyFormat}
	if key.IsAddress() || key.Algorithm == model.AlgES256KR {
		if r.recoverable == nil {
			return nil, fmt.Errorf("no recoverable suite for %s: %w", info.Kid, errs.ErrUnsupportedAlgorithm)
		}
		return r.recoverable, nil
	}

	return r.ForAlgorithm(info.Alg)
}

// Algorithms lists every algorithm the registry can sign with.
func (r *Registry) Algorithms() []string {
	var algs []string
	for _, s := range r.All() {
		for _, a := range s.Algorithms() {
			if !slices.Contains(algs, a) {
				algs = append(algs, a)
			}
		}
	}

	return algs
}

// All returns every suite, recoverable first.
func (r *Registry) All() []Suite {
	all := make([]Suite, 0, len(r.suites)+1)
	if r.recoverable != nil {
		all = append(all, r.recoverable)
	}

	return append(all, r.suites...)
}
