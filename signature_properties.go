package xmlsig

import (
	"sort"

	"github.com/beevik/etree"

	"github.com/philiph/xmlsig/internal/core/domain"
	"github.com/philiph/xmlsig/internal/core/ports"
)

// SignatureProperty is a single ds:SignatureProperty: a required Target,
// an optional Id, and one or more content elements. Content is defensively
// copied at construction; the property is immutable afterwards.
type SignatureProperty struct {
	target  string
	id      string
	content []*etree.Element
}

// NewSignatureProperty creates a property from one or more content
// elements, the mandatory target URI, and an optional id.
func NewSignatureProperty(content []*etree.Element, target, id string) (*SignatureProperty, error) {
	if content == nil {
		return nil, domain.ValidationError("content cannot be nil")
	}
	if len(content) == 0 {
		return nil, domain.ValidationError("content cannot be empty")
	}
	if target == "" {
		return nil, domain.ValidationError("target cannot be empty")
	}
	copied := make([]*etree.Element, len(content))
	for i, el := range content {
		if el == nil {
			return nil, domain.ValidationError("content[%d] is nil", i)
		}
		copied[i] = el.Copy()
	}
	return &SignatureProperty{target: target, id: id, content: copied}, nil
}

// ParseSignatureProperty creates a property from an existing
// ds:SignatureProperty element.
func ParseSignatureProperty(el *etree.Element) (*SignatureProperty, error) {
	proxy, err := WrapElement(el, "", (*SignatureProperty)(nil))
	if err != nil {
		return nil, domain.MarshalError("not a SignatureProperty element", err)
	}

	target := proxy.LocalAttribute(AttrTarget)
	if target == "" {
		return nil, domain.MarshalError("target cannot be empty", nil)
	}

	children := el.ChildElements()
	if len(children) == 0 {
		return nil, domain.MarshalError("property cannot be empty", nil)
	}
	content := make([]*etree.Element, len(children))
	for i, child := range children {
		content[i] = child.Copy()
	}

	return &SignatureProperty{
		target:  target,
		id:      proxy.LocalAttribute(AttrID),
		content: content,
	}, nil
}

// BaseNamespace implements Structure.
func (p *SignatureProperty) BaseNamespace() string { return SignatureSpecNS }

// BaseLocalName implements Structure.
func (p *SignatureProperty) BaseLocalName() string { return TagSignatureProperty }

// Target returns the target URI the property applies to.
func (p *SignatureProperty) Target() string { return p.target }

// ID returns the Id attribute, or the empty string when absent.
func (p *SignatureProperty) ID() string { return p.id }

// Content returns copies of the property's content elements.
func (p *SignatureProperty) Content() []*etree.Element {
	out := make([]*etree.Element, len(p.content))
	for i, el := range p.content {
		out[i] = el.Copy()
	}
	return out
}

// Marshal writes the property under the given signature-namespace prefix.
func (p *SignatureProperty) Marshal(w XMLWriter, dsPrefix string) {
	w.WriteStartElement(dsPrefix, TagSignatureProperty, SignatureSpecNS)
	w.WriteAttribute(AttrTarget, p.target)
	w.WriteIDAttribute("", "", AttrID, p.id)
	for _, el := range p.content {
		w.WriteElement(el)
	}
	w.WriteEndElement()
}

// Equal reports structural equality: target, id, and content in order.
func (p *SignatureProperty) Equal(other *SignatureProperty) bool {
	if other == nil {
		return false
	}
	if p.target != other.target || p.id != other.id {
		return false
	}
	if len(p.content) != len(other.content) {
		return false
	}
	for i := range p.content {
		if !elementsEqual(p.content[i], other.content[i]) {
			return false
		}
	}
	return true
}

// Hash combines target, id and content hashes consistently with Equal.
func (p *SignatureProperty) Hash() int {
	h := 17
	if p.id != "" {
		h = 31*h + stringHash(p.id)
	}
	h = 31*h + stringHash(p.target)
	for _, el := range p.content {
		h = 31*h + elementHash(el)
	}
	return h
}

// SignatureProperties is the ds:SignatureProperties container: an optional
// Id plus an ordered, non-empty sequence of properties. The sequence is
// defensively copied; order is semantically significant for reference
// digesting.
type SignatureProperties struct {
	id         string
	properties []*SignatureProperty
}

// NewSignatureProperties creates a container from one or more properties
// and an optional id.
func NewSignatureProperties(properties []*SignatureProperty, id string) (*SignatureProperties, error) {
	if properties == nil {
		return nil, domain.ValidationError("properties cannot be nil")
	}
	if len(properties) == 0 {
		return nil, domain.ValidationError("properties cannot be empty")
	}
	copied := make([]*SignatureProperty, len(properties))
	for i, prop := range properties {
		if prop == nil {
			return nil, domain.ValidationError("properties[%d] is nil", i)
		}
		copied[i] = prop
	}
	return &SignatureProperties{id: id, properties: copied}, nil
}

// ParseSignatureProperties creates a container from an existing
// ds:SignatureProperties element. Text, comment, and processing-instruction
// children are ignored; each element child must itself parse as a
// SignatureProperty.
func ParseSignatureProperties(el *etree.Element) (*SignatureProperties, error) {
	proxy, err := WrapElement(el, "", (*SignatureProperties)(nil))
	if err != nil {
		return nil, err
	}

	children := el.ChildElements()
	properties := make([]*SignatureProperty, 0, len(children))
	for _, child := range children {
		prop, err := ParseSignatureProperty(child)
		if err != nil {
			return nil, err
		}
		properties = append(properties, prop)
	}
	if len(properties) == 0 {
		return nil, domain.MarshalError("properties cannot be empty", nil)
	}

	return &SignatureProperties{
		id:         proxy.LocalAttribute(AttrID),
		properties: properties,
	}, nil
}

// BaseNamespace implements Structure.
func (p *SignatureProperties) BaseNamespace() string { return SignatureSpecNS }

// BaseLocalName implements Structure.
func (p *SignatureProperties) BaseLocalName() string { return TagSignatureProperties }

// ID returns the Id attribute, or the empty string when absent.
func (p *SignatureProperties) ID() string { return p.id }

// Properties returns the ordered property sequence. The returned slice is
// a copy; the container cannot be mutated through it.
func (p *SignatureProperties) Properties() []*SignatureProperty {
	out := make([]*SignatureProperty, len(p.properties))
	copy(out, p.properties)
	return out
}

// Marshal writes the container and its properties, in stored order, under
// the given signature-namespace prefix.
func (p *SignatureProperties) Marshal(w XMLWriter, dsPrefix string) {
	w.WriteStartElement(dsPrefix, TagSignatureProperties, SignatureSpecNS)
	w.WriteIDAttribute("", "", AttrID, p.id)
	for _, prop := range p.properties {
		prop.Marshal(w, dsPrefix)
	}
	w.WriteEndElement()
}

// MarshalElement marshals the container into a standalone etree fragment.
func (p *SignatureProperties) MarshalElement(dsPrefix string) *etree.Element {
	w := NewEtreeWriter()
	p.Marshal(w, dsPrefix)
	return w.Fragment()
}

// MarshalCanonical marshals the container and returns the canonical form
// of the fragment, ready for reference digesting.
func (p *SignatureProperties) MarshalCanonical(dsPrefix string, c ports.Canonicalizer) ([]byte, error) {
	doc := etree.NewDocument()
	doc.SetRoot(p.MarshalElement(dsPrefix))
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, domain.MarshalError("serialize fragment", err)
	}
	out, err := c.Canonicalize(data)
	if err != nil {
		return nil, domain.MarshalError("canonicalize fragment", err)
	}
	return out, nil
}

// Equal reports structural equality: id and the ordered property sequence.
func (p *SignatureProperties) Equal(other *SignatureProperties) bool {
	if other == nil {
		return false
	}
	if p.id != other.id {
		return false
	}
	if len(p.properties) != len(other.properties) {
		return false
	}
	for i := range p.properties {
		if !p.properties[i].Equal(other.properties[i]) {
			return false
		}
	}
	return true
}

// Hash combines the id hash (when present) with the property-sequence hash
// using the fixed multiplicative scheme, consistent with Equal.
func (p *SignatureProperties) Hash() int {
	h := 17
	if p.id != "" {
		h = 31*h + stringHash(p.id)
	}
	seq := 1
	for _, prop := range p.properties {
		seq = 31*seq + prop.Hash()
	}
	h = 31*h + seq
	return h
}

// stringHash is the 31-multiplier rolling hash used by the structure hash
// combination.
func stringHash(s string) int {
	h := 0
	for _, r := range s {
		h = 31*h + int(r)
	}
	return h
}

// elementsEqual compares two element subtrees structurally: resolved
// namespace plus tag, attribute sets, concatenated text, and child
// elements in order.
func elementsEqual(a, b *etree.Element) bool {
	if a.Tag != b.Tag || a.NamespaceURI() != b.NamespaceURI() {
		return false
	}
	if !attrsEqual(a.Attr, b.Attr) {
		return false
	}
	if fullText(a) != fullText(b) {
		return false
	}
	ac, bc := a.ChildElements(), b.ChildElements()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !elementsEqual(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b []etree.Attr) bool {
	if len(a) != len(b) {
		return false
	}
	keyed := func(attrs []etree.Attr) []string {
		out := make([]string, len(attrs))
		for i, attr := range attrs {
			key := attr.Key
			if attr.Space != "" {
				key = attr.Space + ":" + attr.Key
			}
			out[i] = key + "=" + attr.Value
		}
		sort.Strings(out)
		return out
	}
	as, bs := keyed(a), keyed(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// elementHash mirrors elementsEqual: tag, sorted attributes, text, and
// children in order.
func elementHash(el *etree.Element) int {
	h := 17
	h = 31*h + stringHash(el.NamespaceURI()+":"+el.Tag)
	keys := make([]string, len(el.Attr))
	for i, attr := range el.Attr {
		key := attr.Key
		if attr.Space != "" {
			key = attr.Space + ":" + attr.Key
		}
		keys[i] = key + "=" + attr.Value
	}
	sort.Strings(keys)
	for _, k := range keys {
		h = 31*h + stringHash(k)
	}
	h = 31*h + stringHash(fullText(el))
	for _, child := range el.ChildElements() {
		h = 31*h + elementHash(child)
	}
	return h
}
