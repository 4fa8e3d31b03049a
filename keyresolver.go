package xmlsig

import (
	"bytes"
	"crypto"
	"crypto/x509"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"go.uber.org/zap"

	"github.com/philiph/xmlsig/internal/core/domain"
	"github.com/philiph/xmlsig/internal/core/ports"
)

// Key kinds a resolver chain can be asked for.
const (
	KindPublicKey   = "public"
	KindPrivateKey  = "private"
	KindSecretKey   = "secret"
	KindCertificate = "certificate"
)

// KeyResolver examines a KeyInfo-family element and attempts to produce key
// material of a requested kind. A resolver that has no matching data
// returns nil with no error; absence is not an error at this level.
type KeyResolver interface {
	// Name identifies the resolver in logs and metrics.
	Name() string

	// CanResolve reports whether the resolver understands the element.
	CanResolve(el *etree.Element, baseURI string) bool

	// ResolvePublicKey returns a public key, or nil when absent.
	ResolvePublicKey(el *etree.Element, baseURI string) (crypto.PublicKey, error)

	// ResolvePrivateKey returns a private key, or nil when absent.
	ResolvePrivateKey(el *etree.Element, baseURI string) (crypto.PrivateKey, error)

	// ResolveSecretKey returns symmetric key bytes, or nil when absent.
	ResolveSecretKey(el *etree.Element, baseURI string) ([]byte, error)

	// ResolveX509Certificate returns a certificate, or nil when absent.
	ResolveX509Certificate(el *etree.Element, baseURI string) (*x509.Certificate, error)
}

// elementIsInSignatureSpace reports whether the element is
// {SignatureSpecNS}:localName.
func elementIsInSignatureSpace(el *etree.Element, localName string) bool {
	return el != nil && el.Tag == localName && el.NamespaceURI() == SignatureSpecNS
}

// SingleKeyResolver resolves a single key based on the KeyName. It holds a
// statically configured name and at most one of public, private, or secret
// key; it never holds certificates.
type SingleKeyResolver struct {
	keyName    string
	publicKey  crypto.PublicKey
	privateKey crypto.PrivateKey
	secretKey  []byte
	logger     *zap.Logger
}

// NewSingleKeyResolverPublic creates a resolver answering public-key
// lookups for the given key name.
func NewSingleKeyResolverPublic(keyName string, key crypto.PublicKey, logger *zap.Logger) *SingleKeyResolver {
	return &SingleKeyResolver{keyName: keyName, publicKey: key, logger: orNop(logger)}
}

// NewSingleKeyResolverPrivate creates a resolver answering private-key
// lookups for the given key name.
func NewSingleKeyResolverPrivate(keyName string, key crypto.PrivateKey, logger *zap.Logger) *SingleKeyResolver {
	return &SingleKeyResolver{keyName: keyName, privateKey: key, logger: orNop(logger)}
}

// NewSingleKeyResolverSecret creates a resolver answering secret-key
// lookups for the given key name.
func NewSingleKeyResolverSecret(keyName string, key []byte, logger *zap.Logger) *SingleKeyResolver {
	return &SingleKeyResolver{keyName: keyName, secretKey: key, logger: orNop(logger)}
}

// Name identifies the resolver in logs and metrics.
func (r *SingleKeyResolver) Name() string { return "single_key" }

// CanResolve reports whether the element is a ds:KeyName.
func (r *SingleKeyResolver) CanResolve(el *etree.Element, baseURI string) bool {
	return elementIsInSignatureSpace(el, TagKeyName)
}

// ResolvePublicKey returns the configured public key when the element is a
// ds:KeyName whose text equals the configured name.
func (r *SingleKeyResolver) ResolvePublicKey(el *etree.Element, baseURI string) (crypto.PublicKey, error) {
	if r.publicKey != nil && r.nameMatches(el) {
		return r.publicKey, nil
	}
	return nil, nil
}

// ResolvePrivateKey returns the configured private key when the element is
// a ds:KeyName whose text equals the configured name.
func (r *SingleKeyResolver) ResolvePrivateKey(el *etree.Element, baseURI string) (crypto.PrivateKey, error) {
	if r.privateKey != nil && r.nameMatches(el) {
		return r.privateKey, nil
	}
	return nil, nil
}

// ResolveSecretKey returns the configured secret key when the element is a
// ds:KeyName whose text equals the configured name.
func (r *SingleKeyResolver) ResolveSecretKey(el *etree.Element, baseURI string) ([]byte, error) {
	if r.secretKey != nil && r.nameMatches(el) {
		return r.secretKey, nil
	}
	return nil, nil
}

// ResolveX509Certificate is always absent: this resolver holds raw keys,
// never certificates.
func (r *SingleKeyResolver) ResolveX509Certificate(el *etree.Element, baseURI string) (*x509.Certificate, error) {
	return nil, nil
}

func (r *SingleKeyResolver) nameMatches(el *etree.Element) bool {
	if !elementIsInSignatureSpace(el, TagKeyName) {
		return false
	}
	matched := fullText(el) == r.keyName
	r.logger.Debug("key name probe",
		zap.String("key_name", r.keyName),
		zap.Bool("matched", matched))
	return matched
}

// X509StoreResolver resolves certificates from a ds:X509Data element
// against a goxmldsig trust store, and public keys from the matched
// certificate.
type X509StoreResolver struct {
	store  dsig.X509CertificateStore
	logger *zap.Logger
}

// NewX509StoreResolver creates a resolver backed by the given trust store.
func NewX509StoreResolver(store dsig.X509CertificateStore, logger *zap.Logger) *X509StoreResolver {
	return &X509StoreResolver{store: store, logger: orNop(logger)}
}

// Name identifies the resolver in logs and metrics.
func (r *X509StoreResolver) Name() string { return "x509_store" }

// CanResolve reports whether the element is a ds:X509Data.
func (r *X509StoreResolver) CanResolve(el *etree.Element, baseURI string) bool {
	return elementIsInSignatureSpace(el, TagX509Data)
}

// ResolvePublicKey returns the public key of the trusted certificate the
// element carries, or nil when no carried certificate is trusted.
func (r *X509StoreResolver) ResolvePublicKey(el *etree.Element, baseURI string) (crypto.PublicKey, error) {
	cert, err := r.ResolveX509Certificate(el, baseURI)
	if err != nil || cert == nil {
		return nil, err
	}
	return cert.PublicKey, nil
}

// ResolvePrivateKey is always absent: trust stores carry no private keys.
func (r *X509StoreResolver) ResolvePrivateKey(el *etree.Element, baseURI string) (crypto.PrivateKey, error) {
	return nil, nil
}

// ResolveSecretKey is always absent.
func (r *X509StoreResolver) ResolveSecretKey(el *etree.Element, baseURI string) ([]byte, error) {
	return nil, nil
}

// ResolveX509Certificate decodes each ds:X509Certificate child and returns
// the first one present in the trust store. Malformed certificate content
// is a decoding error; an untrusted certificate is simply absent.
func (r *X509StoreResolver) ResolveX509Certificate(el *etree.Element, baseURI string) (*x509.Certificate, error) {
	if !r.CanResolve(el, baseURI) {
		return nil, nil
	}
	trusted, err := r.store.Certificates()
	if err != nil {
		return nil, domain.MarshalError("certificate store unavailable", err)
	}

	for _, child := range el.ChildElements() {
		if !elementIsInSignatureSpace(child, TagX509Certificate) {
			continue
		}
		raw, err := decodeBase64Text(fullText(child))
		if err != nil {
			return nil, domain.DecodingError("invalid base64 content in X509Certificate", err)
		}
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, domain.DecodingError("malformed X509Certificate content", err)
		}
		for _, anchor := range trusted {
			if bytes.Equal(cert.Raw, anchor.Raw) {
				r.logger.Debug("certificate matched trust store",
					zap.String("subject", cert.Subject.String()))
				return anchor, nil
			}
		}
	}
	return nil, nil
}

// ResolverChain walks an ordered set of resolvers and returns the first
// non-absent result for a requested kind. Only the chain produces the
// key-not-found error; individual resolvers report absence as nil.
type ResolverChain struct {
	resolvers []KeyResolver
	logger    *zap.Logger
	metrics   ports.MetricsRecorder
}

// NewResolverChain creates a chain over the resolvers in the given order.
// logger and metrics may be nil.
func NewResolverChain(resolvers []KeyResolver, logger *zap.Logger, metrics ports.MetricsRecorder) *ResolverChain {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	chain := make([]KeyResolver, len(resolvers))
	copy(chain, resolvers)
	return &ResolverChain{resolvers: chain, logger: orNop(logger), metrics: metrics}
}

// ResolvePublicKey walks the chain for a public key.
func (c *ResolverChain) ResolvePublicKey(el *etree.Element, baseURI string) (crypto.PublicKey, error) {
	var result crypto.PublicKey
	err := c.walk(KindPublicKey, el, baseURI, func(r KeyResolver) (bool, error) {
		key, err := r.ResolvePublicKey(el, baseURI)
		result = key
		return key != nil, err
	})
	return result, err
}

// ResolvePrivateKey walks the chain for a private key.
func (c *ResolverChain) ResolvePrivateKey(el *etree.Element, baseURI string) (crypto.PrivateKey, error) {
	var result crypto.PrivateKey
	err := c.walk(KindPrivateKey, el, baseURI, func(r KeyResolver) (bool, error) {
		key, err := r.ResolvePrivateKey(el, baseURI)
		result = key
		return key != nil, err
	})
	return result, err
}

// ResolveSecretKey walks the chain for a symmetric key.
func (c *ResolverChain) ResolveSecretKey(el *etree.Element, baseURI string) ([]byte, error) {
	var result []byte
	err := c.walk(KindSecretKey, el, baseURI, func(r KeyResolver) (bool, error) {
		key, err := r.ResolveSecretKey(el, baseURI)
		result = key
		return key != nil, err
	})
	return result, err
}

// ResolveX509Certificate walks the chain for a certificate.
func (c *ResolverChain) ResolveX509Certificate(el *etree.Element, baseURI string) (*x509.Certificate, error) {
	var result *x509.Certificate
	err := c.walk(KindCertificate, el, baseURI, func(r KeyResolver) (bool, error) {
		cert, err := r.ResolveX509Certificate(el, baseURI)
		result = cert
		return cert != nil, err
	})
	return result, err
}

// walk iterates the chain in order, short-circuiting on the first resolver
// that produces a result. Resolver errors propagate immediately;
// exhaustion becomes the key-not-found error.
func (c *ResolverChain) walk(kind string, el *etree.Element, baseURI string, lookup func(KeyResolver) (bool, error)) error {
	for _, r := range c.resolvers {
		matched := r.CanResolve(el, baseURI)
		c.metrics.RecordResolverProbe(r.Name(), matched)
		if !matched {
			continue
		}
		found, err := lookup(r)
		if err != nil {
			c.metrics.RecordKeyResolution(kind, false)
			return err
		}
		if found {
			c.logger.Debug("key resolved",
				zap.String("resolver", r.Name()),
				zap.String("kind", kind))
			c.metrics.RecordKeyResolution(kind, true)
			return nil
		}
	}
	c.logger.Debug("resolver chain exhausted", zap.String("kind", kind))
	c.metrics.RecordKeyResolution(kind, false)
	return domain.KeyNotFoundError(kind)
}

// noopRecorder keeps the chain free of nil checks when metrics are not
// configured.
type noopRecorder struct{}

func (noopRecorder) RecordResolverProbe(string, bool) {}
func (noopRecorder) RecordKeyResolution(string, bool) {}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Ensure the resolver implementations satisfy the interface
var (
	_ KeyResolver = (*SingleKeyResolver)(nil)
	_ KeyResolver = (*X509StoreResolver)(nil)
)
