// Package canon adapts an inclusive C14N implementation to the
// Canonicalizer port.
package canon

import (
	"bytes"
	"encoding/xml"

	"github.com/ucarion/c14n"

	"github.com/philiph/xmlsig/internal/core/ports"
)

// InclusiveCanonicalizer produces inclusive canonical XML (C14N 1.0) from a
// serialized fragment.
type InclusiveCanonicalizer struct{}

// NewInclusiveCanonicalizer creates a new inclusive canonicalizer.
func NewInclusiveCanonicalizer() *InclusiveCanonicalizer {
	return &InclusiveCanonicalizer{}
}

// Canonicalize returns the canonical form of the serialized XML.
func (c *InclusiveCanonicalizer) Canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// Ensure InclusiveCanonicalizer implements ports.Canonicalizer
var _ ports.Canonicalizer = (*InclusiveCanonicalizer)(nil)
