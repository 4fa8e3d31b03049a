//go:build unit

package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/philiph/xmlsig"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() returned error: %v", err)
	}
	return path
}

func keyNameElement(t *testing.T, name string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	el := doc.CreateElement("ds:" + xmlsig.TagKeyName)
	el.CreateAttr("xmlns:ds", xmlsig.SignatureSpecNS)
	el.CreateText(name)
	return el
}

func TestFileKeyStore_LoadYAML(t *testing.T) {
	path := writeFile(t, "keys.yaml", `
bindings:
  - name: alice
    secret_base64: c2VjcmV0LWFsaWNl
  - name: K
    secret_base64: c2VjcmV0LWs=
`)

	resolvers, err := NewFileKeyStore(path, nil).Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(resolvers) != 2 {
		t.Fatalf("resolver count = %d, want 2", len(resolvers))
	}

	secret, err := resolvers[0].ResolveSecretKey(keyNameElement(t, "alice"), "")
	if err != nil {
		t.Fatalf("ResolveSecretKey() returned error: %v", err)
	}
	if string(secret) != "secret-alice" {
		t.Errorf("secret = %q, want %q", secret, "secret-alice")
	}
}

func TestFileKeyStore_LoadJSON(t *testing.T) {
	path := writeFile(t, "keys.json", `{
  "bindings": [
    {"name": "alice", "secret_base64": "c2VjcmV0LWFsaWNl"}
  ]
}`)

	resolvers, err := NewFileKeyStore(path, nil).Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(resolvers) != 1 {
		t.Fatalf("resolver count = %d, want 1", len(resolvers))
	}
}

func TestFileKeyStore_PublicKeyBinding(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() returned error: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey() returned error: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "alice.pub.pem")
	if err := os.WriteFile(keyPath, pemData, 0o600); err != nil {
		t.Fatalf("WriteFile() returned error: %v", err)
	}
	bindingsPath := filepath.Join(dir, "keys.yaml")
	bindings := "bindings:\n  - name: alice\n    public_key_file: " + keyPath + "\n"
	if err := os.WriteFile(bindingsPath, []byte(bindings), 0o600); err != nil {
		t.Fatalf("WriteFile() returned error: %v", err)
	}

	resolvers, err := NewFileKeyStore(bindingsPath, nil).Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	got, err := resolvers[0].ResolvePublicKey(keyNameElement(t, "alice"), "")
	if err != nil {
		t.Fatalf("ResolvePublicKey() returned error: %v", err)
	}
	pub, ok := got.(*ecdsa.PublicKey)
	if !ok {
		t.Fatalf("public key = %T, want *ecdsa.PublicKey", got)
	}
	if !pub.Equal(&key.PublicKey) {
		t.Error("loaded public key differs from the generated one")
	}
}

func TestFileKeyStore_PrivateKeyBinding(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() returned error: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey() returned error: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "alice.key.pem")
	if err := os.WriteFile(keyPath, pemData, 0o600); err != nil {
		t.Fatalf("WriteFile() returned error: %v", err)
	}
	bindingsPath := filepath.Join(dir, "keys.yaml")
	bindings := "bindings:\n  - name: alice\n    private_key_file: " + keyPath + "\n"
	if err := os.WriteFile(bindingsPath, []byte(bindings), 0o600); err != nil {
		t.Fatalf("WriteFile() returned error: %v", err)
	}

	resolvers, err := NewFileKeyStore(bindingsPath, nil).Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	got, err := resolvers[0].ResolvePrivateKey(keyNameElement(t, "alice"), "")
	if err != nil {
		t.Fatalf("ResolvePrivateKey() returned error: %v", err)
	}
	if _, ok := got.(*ecdsa.PrivateKey); !ok {
		t.Errorf("private key = %T, want *ecdsa.PrivateKey", got)
	}
}

func TestFileKeyStore_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing name",
			"bindings:\n  - secret_base64: c2VjcmV0\n",
			"name is required",
		},
		{
			"no key field",
			"bindings:\n  - name: alice\n",
			"exactly one of",
		},
		{
			"two key fields",
			"bindings:\n  - name: alice\n    secret_base64: c2VjcmV0\n    public_key_file: /tmp/x.pem\n",
			"exactly one of",
		},
		{
			"bad secret encoding",
			"bindings:\n  - name: alice\n    secret_base64: '***'\n",
			"decode secret",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "keys.yaml", tt.content)
			_, err := NewFileKeyStore(path, nil).Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestFileKeyStore_MissingFile(t *testing.T) {
	_, err := NewFileKeyStore(filepath.Join(t.TempDir(), "absent.yaml"), nil).Load()
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
