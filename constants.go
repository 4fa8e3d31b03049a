package xmlsig

// Namespace URIs used across XML signature and encryption documents.
const (
	// NamespaceSpecNS is the xmlns attribute namespace.
	NamespaceSpecNS = "http://www.w3.org/2000/xmlns/"

	// SignatureSpecNS is the XML digital signature namespace.
	SignatureSpecNS = "http://www.w3.org/2000/09/xmldsig#"

	// EncryptionSpecNS is the XML encryption namespace.
	EncryptionSpecNS = "http://www.w3.org/2001/04/xmlenc#"

	// Encryption11SpecNS is the XML encryption 1.1 namespace.
	Encryption11SpecNS = "http://www.w3.org/2009/xmlenc11#"

	// ExperimentalSpecNS covers experimental signature extensions.
	ExperimentalSpecNS = "http://www.xmlsecurity.org/experimental#"

	// XPathFilter2SpecNSOld is the legacy XPath Filter 2.0 transform namespace.
	XPathFilter2SpecNSOld = "http://www.w3.org/2002/04/xmldsig-filter2"

	// XPathFilter2SpecNS is the current XPath Filter 2.0 transform namespace.
	XPathFilter2SpecNS = "http://www.w3.org/2002/06/xmldsig-filter2"

	// ExcC14NSpecNS is the exclusive canonicalization namespace.
	ExcC14NSpecNS = "http://www.w3.org/2001/10/xml-exc-c14n#"

	// XPathFilterCHPSpecNS is the legacy CHP XPath filter namespace.
	XPathFilterCHPSpecNS = "http://www.nue.et-inf.uni-siegen.de/~geuer-pollmann/#xpathFilter"
)

// Local names of signature-namespace elements handled by this package.
const (
	TagKeyInfo             = "KeyInfo"
	TagKeyName             = "KeyName"
	TagSignatureProperties = "SignatureProperties"
	TagSignatureProperty   = "SignatureProperty"
	TagX509Data            = "X509Data"
	TagX509Certificate     = "X509Certificate"
)

// Attribute names used for identification and reference resolution.
const (
	AttrID     = "Id"
	AttrTarget = "Target"
)
