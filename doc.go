// Package xmlsig implements the structural object model for XML
// digital-signature documents: typed structures bound 1:1 to elements of a
// beevik/etree tree, marshalling and unmarshalling of composite signature
// structures such as ds:SignatureProperties, a process-wide namespace
// prefix registry, and a chain-of-responsibility protocol for resolving
// key material referenced from KeyInfo-family elements.
//
// Canonicalization, digest and signature computation, and validation
// orchestration are external collaborators; this package supplies the
// data-binding and key-lookup scaffolding they consume.
package xmlsig
