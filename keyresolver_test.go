//go:build unit

package xmlsig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

func keyNameElement(t *testing.T, name string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	el := doc.CreateElement("ds:" + TagKeyName)
	el.CreateAttr("xmlns:ds", SignatureSpecNS)
	el.CreateText(name)
	return el
}

func selfSignedCert(t *testing.T, commonName string) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() returned error: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() returned error: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() returned error: %v", err)
	}
	return cert
}

func x509DataElement(t *testing.T, certs ...*x509.Certificate) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	el := doc.CreateElement("ds:" + TagX509Data)
	el.CreateAttr("xmlns:ds", SignatureSpecNS)
	for _, cert := range certs {
		child := el.CreateElement("ds:" + TagX509Certificate)
		child.CreateText(base64.StdEncoding.EncodeToString(cert.Raw))
	}
	return el
}

// fakeMetrics records probe and resolution events for assertion.
type fakeMetrics struct {
	probes      []string
	resolutions []string
}

func (m *fakeMetrics) RecordResolverProbe(resolver string, matched bool) {
	m.probes = append(m.probes, fmt.Sprintf("%s:%t", resolver, matched))
}

func (m *fakeMetrics) RecordKeyResolution(kind string, resolved bool) {
	m.resolutions = append(m.resolutions, fmt.Sprintf("%s:%t", kind, resolved))
}

// =============================================================================
// SingleKeyResolver
// =============================================================================

func TestSingleKeyResolver_SecretByName(t *testing.T) {
	secret := []byte{0x01, 0x02, 0x03}
	r := NewSingleKeyResolverSecret("alice", secret, nil)

	el := keyNameElement(t, "alice")
	if !r.CanResolve(el, "") {
		t.Fatal("CanResolve() = false for ds:KeyName")
	}
	got, err := r.ResolveSecretKey(el, "")
	if err != nil {
		t.Fatalf("ResolveSecretKey() returned error: %v", err)
	}
	if string(got) != string(secret) {
		t.Errorf("secret = %x, want %x", got, secret)
	}
}

func TestSingleKeyResolver_NameMismatchIsAbsent(t *testing.T) {
	r := NewSingleKeyResolverSecret("alice", []byte{0x01}, nil)

	got, err := r.ResolveSecretKey(keyNameElement(t, "bob"), "")
	if err != nil {
		t.Fatalf("ResolveSecretKey() returned error: %v", err)
	}
	if got != nil {
		t.Errorf("secret = %x, want absent", got)
	}
}

func TestSingleKeyResolver_KindMismatchIsAbsent(t *testing.T) {
	r := NewSingleKeyResolverSecret("alice", []byte{0x01}, nil)
	el := keyNameElement(t, "alice")

	if key, err := r.ResolvePublicKey(el, ""); err != nil || key != nil {
		t.Errorf("ResolvePublicKey() = (%v, %v), want absent", key, err)
	}
	if key, err := r.ResolvePrivateKey(el, ""); err != nil || key != nil {
		t.Errorf("ResolvePrivateKey() = (%v, %v), want absent", key, err)
	}
	if cert, err := r.ResolveX509Certificate(el, ""); err != nil || cert != nil {
		t.Errorf("ResolveX509Certificate() = (%v, %v), want absent", cert, err)
	}
}

func TestSingleKeyResolver_OtherElementsNotClaimed(t *testing.T) {
	r := NewSingleKeyResolverSecret("alice", []byte{0x01}, nil)
	el := x509DataElement(t)
	if r.CanResolve(el, "") {
		t.Error("CanResolve() = true for ds:X509Data")
	}
}

// =============================================================================
// X509StoreResolver
// =============================================================================

func TestX509StoreResolver_TrustedCertificate(t *testing.T) {
	trusted := selfSignedCert(t, "trusted")
	store := &dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{trusted}}
	r := NewX509StoreResolver(store, nil)

	el := x509DataElement(t, trusted)
	cert, err := r.ResolveX509Certificate(el, "")
	if err != nil {
		t.Fatalf("ResolveX509Certificate() returned error: %v", err)
	}
	if cert == nil || cert.Subject.CommonName != "trusted" {
		t.Errorf("certificate = %v, want the trusted certificate", cert)
	}

	key, err := r.ResolvePublicKey(el, "")
	if err != nil {
		t.Fatalf("ResolvePublicKey() returned error: %v", err)
	}
	if _, ok := key.(*ecdsa.PublicKey); !ok {
		t.Errorf("public key = %T, want *ecdsa.PublicKey", key)
	}
}

func TestX509StoreResolver_UntrustedIsAbsent(t *testing.T) {
	trusted := selfSignedCert(t, "trusted")
	stranger := selfSignedCert(t, "stranger")
	store := &dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{trusted}}
	r := NewX509StoreResolver(store, nil)

	cert, err := r.ResolveX509Certificate(x509DataElement(t, stranger), "")
	if err != nil {
		t.Fatalf("ResolveX509Certificate() returned error: %v", err)
	}
	if cert != nil {
		t.Errorf("certificate = %v, want absent", cert)
	}
}

func TestX509StoreResolver_SkipsToTrusted(t *testing.T) {
	trusted := selfSignedCert(t, "trusted")
	stranger := selfSignedCert(t, "stranger")
	store := &dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{trusted}}
	r := NewX509StoreResolver(store, nil)

	cert, err := r.ResolveX509Certificate(x509DataElement(t, stranger, trusted), "")
	if err != nil {
		t.Fatalf("ResolveX509Certificate() returned error: %v", err)
	}
	if cert == nil || cert.Subject.CommonName != "trusted" {
		t.Errorf("certificate = %v, want the trusted certificate", cert)
	}
}

func TestX509StoreResolver_MalformedContent(t *testing.T) {
	store := &dsig.MemoryX509CertificateStore{}
	r := NewX509StoreResolver(store, nil)

	doc := etree.NewDocument()
	el := doc.CreateElement("ds:" + TagX509Data)
	el.CreateAttr("xmlns:ds", SignatureSpecNS)
	child := el.CreateElement("ds:" + TagX509Certificate)
	child.CreateText("*** not base64 ***")

	_, err := r.ResolveX509Certificate(el, "")
	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Code != ErrCodeDecoding {
		t.Errorf("error = %v, want decoding error", err)
	}
}

// =============================================================================
// ResolverChain
// =============================================================================

func TestResolverChain_ResolvesByName(t *testing.T) {
	aliceKey := []byte("alice-secret")
	kKey := []byte("k-secret")
	chain := NewResolverChain([]KeyResolver{
		NewSingleKeyResolverSecret("alice", aliceKey, nil),
		NewSingleKeyResolverSecret("K", kKey, nil),
	}, nil, nil)

	got, err := chain.ResolveSecretKey(keyNameElement(t, "K"), "")
	if err != nil {
		t.Fatalf("ResolveSecretKey() returned error: %v", err)
	}
	if string(got) != string(kKey) {
		t.Errorf("secret = %q, want %q", got, kKey)
	}
}

func TestResolverChain_Exhaustion(t *testing.T) {
	chain := NewResolverChain([]KeyResolver{
		NewSingleKeyResolverSecret("alice", []byte("alice-secret"), nil),
		NewSingleKeyResolverSecret("K", []byte("k-secret"), nil),
	}, nil, nil)

	_, err := chain.ResolveSecretKey(keyNameElement(t, "bob"), "")
	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Code != ErrCodeKeyNotFound {
		t.Errorf("error = %v, want key-not-found error", err)
	}
}

func TestResolverChain_ShortCircuits(t *testing.T) {
	recorder := &fakeMetrics{}
	chain := NewResolverChain([]KeyResolver{
		NewSingleKeyResolverSecret("alice", []byte("first"), nil),
		NewSingleKeyResolverSecret("alice", []byte("second"), nil),
	}, nil, recorder)

	got, err := chain.ResolveSecretKey(keyNameElement(t, "alice"), "")
	if err != nil {
		t.Fatalf("ResolveSecretKey() returned error: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("secret = %q, first matching resolver must win", got)
	}

	// Only the first resolver was probed before the chain stopped.
	if len(recorder.probes) != 1 || recorder.probes[0] != "single_key:true" {
		t.Errorf("probes = %v, want a single matching probe", recorder.probes)
	}
	if len(recorder.resolutions) != 1 || recorder.resolutions[0] != "secret:true" {
		t.Errorf("resolutions = %v, want a single success", recorder.resolutions)
	}
}

func TestResolverChain_RecordsFailure(t *testing.T) {
	recorder := &fakeMetrics{}
	chain := NewResolverChain([]KeyResolver{
		NewSingleKeyResolverSecret("alice", []byte("x"), nil),
	}, nil, recorder)

	_, err := chain.ResolveSecretKey(keyNameElement(t, "bob"), "")
	if err == nil {
		t.Fatal("expected key-not-found error, got nil")
	}
	if len(recorder.resolutions) != 1 || recorder.resolutions[0] != "secret:false" {
		t.Errorf("resolutions = %v, want a single failure", recorder.resolutions)
	}
}

func TestResolverChain_PropagatesResolverError(t *testing.T) {
	store := &dsig.MemoryX509CertificateStore{}
	chain := NewResolverChain([]KeyResolver{
		NewX509StoreResolver(store, nil),
	}, nil, nil)

	doc := etree.NewDocument()
	el := doc.CreateElement("ds:" + TagX509Data)
	el.CreateAttr("xmlns:ds", SignatureSpecNS)
	child := el.CreateElement("ds:" + TagX509Certificate)
	child.CreateText("*** not base64 ***")

	_, err := chain.ResolveX509Certificate(el, "")
	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Code != ErrCodeDecoding {
		t.Errorf("error = %v, want the resolver's decoding error", err)
	}
}

func TestResolverChain_MixedKinds(t *testing.T) {
	trusted := selfSignedCert(t, "trusted")
	store := &dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{trusted}}
	chain := NewResolverChain([]KeyResolver{
		NewSingleKeyResolverSecret("alice", []byte("alice-secret"), nil),
		NewX509StoreResolver(store, nil),
	}, nil, nil)

	secret, err := chain.ResolveSecretKey(keyNameElement(t, "alice"), "")
	if err != nil {
		t.Fatalf("ResolveSecretKey() returned error: %v", err)
	}
	if string(secret) != "alice-secret" {
		t.Errorf("secret = %q", secret)
	}

	cert, err := chain.ResolveX509Certificate(x509DataElement(t, trusted), "")
	if err != nil {
		t.Fatalf("ResolveX509Certificate() returned error: %v", err)
	}
	if cert == nil || cert.Subject.CommonName != "trusted" {
		t.Errorf("certificate = %v, want the trusted certificate", cert)
	}
}
