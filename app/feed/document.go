package feed

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"
	"github.com/mmcdole/gofeed"
)

// Document is a parsed Atom feed. The element tree keeps document order and
// every element and attribute it was read with, so whatever the normalizer
// does not touch is written back unchanged.
type Document struct {
	doc  *etree.Document
	root *etree.Element
}

var utf8BOM = []byte("\xef\xbb\xbf")

func Parse(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader

	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Reason: "malformed XML", Err: err}
	}

	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Reason: "document has no root element"}
	}

	if root.Tag != "feed" || root.NamespaceURI() != AtomNamespace {
		return nil, &ParseError{Reason: fmt.Sprintf("expected an Atom feed, got <%s> in namespace %q (detected %s)",
			root.Tag, root.NamespaceURI(), detectFeedType(data))}
	}

	return &Document{doc: doc, root: root}, nil
}

func (d *Document) Root() *etree.Element {
	return d.root
}

func (d *Document) Entries() []*etree.Element {
	return atomChildren(d.root, "entry")
}

// Bytes serializes the document as UTF-8 with an XML declaration. Any
// declaration read from the source is replaced since the source encoding may
// have been something other than UTF-8.
func (d *Document) Bytes() ([]byte, error) {
	hadDecl := false
	for i, token := range d.doc.Child {
		if pi, ok := token.(*etree.ProcInst); ok && pi.Target == "xml" {
			// Nothing may precede the new declaration.
			for j := i; j >= 0; j-- {
				d.doc.RemoveChildAt(j)
			}
			hadDecl = true
			break
		}
	}

	decl := etree.NewProcInst("xml", `version="1.0" encoding="UTF-8"`)
	if !hadDecl {
		d.doc.InsertChildAt(0, etree.NewText("\n"))
	}
	d.doc.InsertChildAt(0, decl)

	data, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize feed: %w", err)
	}
	return data, nil
}

func detectFeedType(data []byte) string {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeAtom:
		return "atom"
	case gofeed.FeedTypeRSS:
		return "rss"
	case gofeed.FeedTypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

func isAtom(e *etree.Element, local string) bool {
	return e.Tag == local && e.NamespaceURI() == AtomNamespace
}

func atomChildren(parent *etree.Element, local string) []*etree.Element {
	var children []*etree.Element
	for _, child := range parent.ChildElements() {
		if isAtom(child, local) {
			children = append(children, child)
		}
	}
	return children
}

func atomChild(parent *etree.Element, local string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if isAtom(child, local) {
			return child
		}
	}
	return nil
}

// newAtomElement creates an element in the same namespace prefix as parent,
// which for a default-namespace feed is no prefix at all.
func newAtomElement(parent *etree.Element, local string) *etree.Element {
	if parent.Space != "" {
		return etree.NewElement(parent.Space + ":" + local)
	}
	return etree.NewElement(local)
}

// attr returns the value of the unprefixed attribute key and whether it is
// present. SelectAttr would also match prefixed attributes such as xlink:href.
func attr(e *etree.Element, key string) (string, bool) {
	for _, a := range e.Attr {
		if a.Space == "" && a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func attrValue(e *etree.Element, key string) string {
	value, _ := attr(e, key)
	return value
}
