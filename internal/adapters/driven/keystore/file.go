// Package keystore loads key-resolver bindings from local files.
package keystore

import (
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/philiph/xmlsig"
)

// FileKeyStore loads named key bindings from a local JSON or YAML file and
// turns them into single-key resolvers.
type FileKeyStore struct {
	path   string
	logger *zap.Logger
}

// BindingsFile represents the structure of the key bindings file.
type BindingsFile struct {
	Bindings []Binding `json:"bindings" yaml:"bindings"`
}

// Binding is a single named key: exactly one of the key fields must be set.
type Binding struct {
	Name           string `json:"name" yaml:"name"`
	SecretBase64   string `json:"secret_base64" yaml:"secret_base64"`
	PublicKeyFile  string `json:"public_key_file" yaml:"public_key_file"`
	PrivateKeyFile string `json:"private_key_file" yaml:"private_key_file"`
}

// NewFileKeyStore creates a new file-based key store.
func NewFileKeyStore(path string, logger *zap.Logger) *FileKeyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileKeyStore{path: path, logger: logger}
}

// Load reads the bindings file and returns one resolver per binding, in
// file order.
func (s *FileKeyStore) Load() ([]xmlsig.KeyResolver, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read key bindings file: %w", err)
	}

	var file BindingsFile
	ext := strings.ToLower(filepath.Ext(s.path))
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse YAML key bindings file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse JSON key bindings file: %w", err)
		}
	}

	resolvers := make([]xmlsig.KeyResolver, 0, len(file.Bindings))
	for i, b := range file.Bindings {
		resolver, err := s.buildResolver(b)
		if err != nil {
			return nil, fmt.Errorf("binding %d (%q): %w", i, b.Name, err)
		}
		resolvers = append(resolvers, resolver)
	}

	s.logger.Info("loaded key bindings",
		zap.String("path", s.path),
		zap.Int("count", len(resolvers)))
	return resolvers, nil
}

func (s *FileKeyStore) buildResolver(b Binding) (xmlsig.KeyResolver, error) {
	if b.Name == "" {
		return nil, fmt.Errorf("binding name is required")
	}

	set := 0
	for _, field := range []string{b.SecretBase64, b.PublicKeyFile, b.PrivateKeyFile} {
		if field != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of secret_base64, public_key_file, private_key_file must be set")
	}

	switch {
	case b.SecretBase64 != "":
		secret, err := base64.StdEncoding.DecodeString(b.SecretBase64)
		if err != nil {
			return nil, fmt.Errorf("decode secret: %w", err)
		}
		return xmlsig.NewSingleKeyResolverSecret(b.Name, secret, s.logger), nil

	case b.PublicKeyFile != "":
		key, err := loadPublicKey(b.PublicKeyFile)
		if err != nil {
			return nil, err
		}
		return xmlsig.NewSingleKeyResolverPublic(b.Name, key, s.logger), nil

	default:
		key, err := loadPrivateKey(b.PrivateKeyFile)
		if err != nil {
			return nil, err
		}
		return xmlsig.NewSingleKeyResolverPrivate(b.Name, key, s.logger), nil
	}
}

// loadPublicKey loads a public key from a PEM file. PKIX public keys,
// PKCS#1 RSA public keys, and certificates are accepted.
func loadPublicKey(path string) (crypto.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key file: %w", err)
	}

	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "PUBLIC KEY":
			key, err := x509.ParsePKIXPublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse public key: %w", err)
			}
			return key, nil
		case "RSA PUBLIC KEY":
			key, err := x509.ParsePKCS1PublicKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse RSA public key: %w", err)
			}
			return key, nil
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse certificate: %w", err)
			}
			return cert.PublicKey, nil
		}
		data = rest
	}
	return nil, fmt.Errorf("no public key found in %s", path)
}

// loadPrivateKey loads a private key from a PEM file. PKCS#8, PKCS#1 RSA,
// and SEC1 EC keys are accepted.
func loadPrivateKey(path string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key file: %w", err)
	}

	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse private key: %w", err)
			}
			return key, nil
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse RSA private key: %w", err)
			}
			return key, nil
		case "EC PRIVATE KEY":
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parse EC private key: %w", err)
			}
			return key, nil
		}
		data = rest
	}
	return nil, fmt.Errorf("no private key found in %s", path)
}
