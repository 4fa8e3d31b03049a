package xmlsig

import (
	"sync"

	"github.com/philiph/xmlsig/internal/core/domain"
)

// prefixRegistry is the process-wide namespace-to-prefix table consulted when
// elements are created. It is internally synchronized; callers never lock.
type prefixRegistry struct {
	mu       sync.RWMutex
	mappings map[string]string
}

var defaultRegistry = &prefixRegistry{mappings: make(map[string]string)}

// SetDefaultPrefix registers or confirms the canonical prefix for a
// namespace. It fails with a prefix-conflict error when the prefix is
// already assigned to a different namespace. Registering the same mapping
// twice is an idempotent no-op.
func SetDefaultPrefix(namespace, prefix string) error {
	return defaultRegistry.set(namespace, prefix)
}

// DefaultPrefix returns the prefix registered for a namespace, and whether
// one is registered at all.
func DefaultPrefix(namespace string) (string, bool) {
	return defaultRegistry.get(namespace)
}

// RegisterDefaultPrefixes seeds the registry with the well-known namespace
// prefixes. It is idempotent and safe to call from multiple initialization
// paths.
func RegisterDefaultPrefixes() error {
	seed := []struct{ namespace, prefix string }{
		{SignatureSpecNS, "ds"},
		{EncryptionSpecNS, "xenc"},
		{Encryption11SpecNS, "xenc11"},
		{ExperimentalSpecNS, "experimental"},
		{XPathFilter2SpecNSOld, "dsig-xpath-old"},
		{XPathFilter2SpecNS, "dsig-xpath"},
		{ExcC14NSpecNS, "ec"},
		{XPathFilterCHPSpecNS, "xx"},
	}
	for _, m := range seed {
		if err := SetDefaultPrefix(m.namespace, m.prefix); err != nil {
			return err
		}
	}
	return nil
}

func (r *prefixRegistry) set(namespace, prefix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The conflict check looks at whether the prefix is already in use by a
	// different namespace, matching the long-standing upstream behavior.
	for ns, p := range r.mappings {
		if p == prefix && ns != namespace {
			return domain.PrefixConflictError(prefix, namespace, ns)
		}
	}

	r.mappings[namespace] = prefix
	return nil
}

func (r *prefixRegistry) get(namespace string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.mappings[namespace]
	return p, ok
}
