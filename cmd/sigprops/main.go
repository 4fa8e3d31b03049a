// Command sigprops builds a sample ds:SignatureProperties fragment,
// round-trips it through the parser, and prints the result. Useful for
// eyeballing serialization and canonical output. Usage:
//
//	go run ./cmd/sigprops -id props-1 -target "#sig-1" [-c14n]
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/beevik/etree"

	"github.com/philiph/xmlsig"
	"github.com/philiph/xmlsig/internal/adapters/driven/canon"
)

func main() {
	id := flag.String("id", "props-1", "Id attribute for the container")
	target := flag.String("target", "#sig-1", "Target URI for the sample property")
	canonical := flag.Bool("c14n", false, "Print inclusive canonical form instead of raw serialization")
	flag.Parse()

	if err := xmlsig.RegisterDefaultPrefixes(); err != nil {
		log.Fatalf("Failed to register default prefixes: %v", err)
	}

	content := etree.NewElement("Timestamp")
	content.CreateAttr("xmlns", "urn:example:props")
	content.CreateText("2026-01-01T00:00:00Z")

	prop, err := xmlsig.NewSignatureProperty([]*etree.Element{content}, *target, "")
	if err != nil {
		log.Fatalf("Failed to build property: %v", err)
	}
	props, err := xmlsig.NewSignatureProperties([]*xmlsig.SignatureProperty{prop}, *id)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	if *canonical {
		out, err := props.MarshalCanonical("ds", canon.NewInclusiveCanonicalizer())
		if err != nil {
			log.Fatalf("Failed to canonicalize: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fragment := props.MarshalElement("ds")
	doc := etree.NewDocument()
	doc.SetRoot(fragment)
	raw, err := doc.WriteToString()
	if err != nil {
		log.Fatalf("Failed to serialize: %v", err)
	}

	// Round-trip sanity check against the parser, on the unindented form.
	reparsed := etree.NewDocument()
	if err := reparsed.ReadFromString(raw); err != nil {
		log.Fatalf("Failed to re-read fragment: %v", err)
	}
	parsed, err := xmlsig.ParseSignatureProperties(reparsed.Root())
	if err != nil {
		log.Fatalf("Failed to parse fragment: %v", err)
	}
	if !parsed.Equal(props) {
		log.Fatal("Round-trip mismatch")
	}

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		log.Fatalf("Failed to serialize: %v", err)
	}
	fmt.Print(out)
}
