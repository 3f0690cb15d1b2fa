package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// AndroidNamespace is the namespace URI of android:* manifest attributes.
const AndroidNamespace = "http://schemas.android.com/apk/res/android"

// androidPrefix is the conventional prefix bound to AndroidNamespace.
const androidPrefix = "android"

// Node is the view of a manifest element the Walker needs.
type Node interface {
	// Tag returns the qualified tag, "{uri}local" when namespaced.
	Tag() string

	// MatchTag reports whether the tag's local name equals local, tolerating
	// any namespace qualification.
	MatchTag(local string) bool

	// Attr returns the value of the attribute namespace:local.
	Attr(namespace, local string) (string, bool)

	// Children returns the direct child elements in document order.
	Children() []Node
}

// Element is an attributed XML element.
type Element struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Elements []*Element
}

// Tag implements Node.
func (e *Element) Tag() string {
	if e.Name.Space == "" {
		return e.Name.Local
	}
	return "{" + e.Name.Space + "}" + e.Name.Local
}

// MatchTag implements Node.
func (e *Element) MatchTag(local string) bool {
	tag := e.Tag()
	return tag == local ||
		strings.HasSuffix(tag, "}"+local) ||
		strings.HasSuffix(tag, ":"+local)
}

// Attr implements Node.
func (e *Element) Attr(namespace, local string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Space == namespace && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Children implements Node.
func (e *Element) Children() []Node {
	nodes := make([]Node, len(e.Elements))
	for i, c := range e.Elements {
		nodes[i] = c
	}
	return nodes
}

// AttrOr returns the attribute namespace:local of n, or def when missing.
func AttrOr(n Node, namespace, local, def string) string {
	if v, ok := n.Attr(namespace, local); ok {
		return v
	}
	return def
}

// ParseXML decodes a text manifest into an element tree. An android prefix
// that the document never declares is resolved to AndroidNamespace.
func ParseXML(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: normalizeName(t.Name)}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				el.Attrs = append(el.Attrs, xml.Attr{Name: normalizeName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformedManifest)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Elements = append(parent.Elements, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedManifest)
	}
	return root, nil
}

func normalizeName(n xml.Name) xml.Name {
	if n.Space == androidPrefix {
		n.Space = AndroidNamespace
	}
	return n
}
