package xmlsig

import (
	"github.com/beevik/etree"
)

// XMLWriter is the output abstraction consumed during marshalling. It
// allows structures to be written to a streaming encoder or, as with
// EtreeWriter, assembled directly into a DOM fragment.
type XMLWriter interface {
	// WriteStartElement opens an element with the given prefix, local name
	// and namespace URI.
	WriteStartElement(prefix, localName, namespaceURI string)

	// WriteEndElement closes the most recently opened element.
	WriteEndElement()

	// WriteAttribute sets an attribute on the open element.
	WriteAttribute(name, value string)

	// WriteIDAttribute sets an attribute usable for fragment-identifier
	// lookup on the open element. A no-op when value is empty.
	WriteIDAttribute(prefix, namespaceURI, name, value string)

	// WriteElement appends a deep copy of an existing element subtree to
	// the open element.
	WriteElement(el *etree.Element)
}

// EtreeWriter builds an etree fragment from writer calls.
type EtreeWriter struct {
	root  *etree.Element
	stack []*etree.Element
}

// NewEtreeWriter creates a DOM-backed writer. The fragment root is
// available from Fragment once the outermost element has been closed.
func NewEtreeWriter() *EtreeWriter {
	return &EtreeWriter{}
}

// WriteStartElement opens an element, declaring the namespace on it unless
// an enclosing element already declares the same prefix binding.
func (w *EtreeWriter) WriteStartElement(prefix, localName, namespaceURI string) {
	tag := localName
	if prefix != "" {
		tag = prefix + ":" + localName
	}
	el := etree.NewElement(tag)

	if namespaceURI != "" && !w.declared(prefix, namespaceURI) {
		if prefix == "" {
			el.CreateAttr("xmlns", namespaceURI)
		} else {
			el.CreateAttr("xmlns:"+prefix, namespaceURI)
		}
	}

	if len(w.stack) > 0 {
		w.stack[len(w.stack)-1].AddChild(el)
	} else if w.root == nil {
		w.root = el
	}
	w.stack = append(w.stack, el)
}

// WriteEndElement closes the most recently opened element.
func (w *EtreeWriter) WriteEndElement() {
	if len(w.stack) > 0 {
		w.stack = w.stack[:len(w.stack)-1]
	}
}

// WriteAttribute sets an attribute on the open element.
func (w *EtreeWriter) WriteAttribute(name, value string) {
	if top := w.top(); top != nil {
		top.CreateAttr(name, value)
	}
}

// WriteIDAttribute sets a fragment-identifier attribute on the open
// element. A no-op when value is empty.
func (w *EtreeWriter) WriteIDAttribute(prefix, namespaceURI, name, value string) {
	if value == "" {
		return
	}
	key := name
	if prefix != "" {
		key = prefix + ":" + name
	}
	if top := w.top(); top != nil {
		top.CreateAttr(key, value)
	}
}

// WriteElement appends a deep copy of the element subtree to the open
// element.
func (w *EtreeWriter) WriteElement(el *etree.Element) {
	if el == nil {
		return
	}
	if top := w.top(); top != nil {
		top.AddChild(el.Copy())
	}
}

// Fragment returns the root element written so far.
func (w *EtreeWriter) Fragment() *etree.Element {
	return w.root
}

func (w *EtreeWriter) top() *etree.Element {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

// declared reports whether any open ancestor already binds the prefix to
// the same namespace URI.
func (w *EtreeWriter) declared(prefix, namespaceURI string) bool {
	key := "xmlns"
	if prefix != "" {
		key = "xmlns:" + prefix
	}
	for i := len(w.stack) - 1; i >= 0; i-- {
		if attr := w.stack[i].SelectAttr(key); attr != nil {
			return attr.Value == namespaceURI
		}
	}
	return false
}

// Ensure EtreeWriter implements XMLWriter
var _ XMLWriter = (*EtreeWriter)(nil)
