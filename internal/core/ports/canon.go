package ports

// Canonicalizer is the port interface for XML canonicalization of a
// serialized fragment. Canonicalization algorithms themselves live outside
// this module; implementations are adapters.
type Canonicalizer interface {
	// Canonicalize returns the canonical form of the serialized XML.
	Canonicalize(data []byte) ([]byte, error)
}
