// Command keyresolve resolves key material from a KeyInfo document against
// a key bindings file. Usage:
//
//	go run ./cmd/keyresolve -keyinfo keyinfo.xml -bindings keys.yaml -kind secret
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/philiph/xmlsig"
	"github.com/philiph/xmlsig/internal/adapters/driven/keystore"
	"github.com/philiph/xmlsig/internal/adapters/driven/metrics"
)

func main() {
	keyinfoPath := flag.String("keyinfo", "", "Path to an XML document containing a ds:KeyInfo element")
	bindingsPath := flag.String("bindings", "", "Path to a YAML or JSON key bindings file")
	kind := flag.String("kind", xmlsig.KindSecretKey, "Key kind to resolve: public, private, secret, certificate")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	if *keyinfoPath == "" || *bindingsPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
		logger = l
	}

	if err := xmlsig.RegisterDefaultPrefixes(); err != nil {
		log.Fatalf("Failed to register default prefixes: %v", err)
	}

	resolvers, err := keystore.NewFileKeyStore(*bindingsPath, logger).Load()
	if err != nil {
		log.Fatalf("Failed to load key bindings: %v", err)
	}
	chain := xmlsig.NewResolverChain(resolvers, logger, metrics.NewNoopMetricsRecorder())

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(*keyinfoPath); err != nil {
		log.Fatalf("Failed to read KeyInfo document: %v", err)
	}

	keyInfo := findKeyInfo(doc)
	if keyInfo == nil {
		log.Fatalf("No KeyInfo element found in %s", *keyinfoPath)
	}

	for _, child := range keyInfo.ChildElements() {
		if ok := resolve(chain, child, *kind); ok {
			return
		}
	}
	log.Fatalf("No resolver produced a %s key", *kind)
}

func findKeyInfo(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	if root.Tag == xmlsig.TagKeyInfo && root.NamespaceURI() == xmlsig.SignatureSpecNS {
		return root
	}
	for _, el := range root.FindElements("//*") {
		if el.Tag == xmlsig.TagKeyInfo && el.NamespaceURI() == xmlsig.SignatureSpecNS {
			return el
		}
	}
	return nil
}

func resolve(chain *xmlsig.ResolverChain, el *etree.Element, kind string) bool {
	switch kind {
	case xmlsig.KindPublicKey:
		key, err := chain.ResolvePublicKey(el, "")
		if err != nil {
			return false
		}
		fmt.Printf("resolved public key: %T\n", key)
	case xmlsig.KindPrivateKey:
		key, err := chain.ResolvePrivateKey(el, "")
		if err != nil {
			return false
		}
		fmt.Printf("resolved private key: %T\n", key)
	case xmlsig.KindSecretKey:
		key, err := chain.ResolveSecretKey(el, "")
		if err != nil {
			return false
		}
		fmt.Printf("resolved secret key: %s\n", base64.StdEncoding.EncodeToString(key))
	case xmlsig.KindCertificate:
		cert, err := chain.ResolveX509Certificate(el, "")
		if err != nil {
			return false
		}
		fmt.Printf("resolved certificate: %s\n", cert.Subject)
	default:
		log.Fatalf("Unknown kind %q", kind)
	}
	return true
}
