// Package scenario loads the scenario XML document and exposes it as a
// generic, order-preserving element tree for the compiler to walk.
package scenario

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stc-project/stc/pkg/stcerrors"
)

// Element is one node of the parsed scenario document: a tag name, its
// attributes, and its children in declaration order. Unlike the stdlib's
// struct-tag unmarshaling, Element makes no assumption about the schema
// of its children, which is what lets the Compiler walk <step>, <group>,
// <import>, <dependency> and <parameters> uniformly before elaboration.
type Element struct {
	Name     string
	Attrs    map[string]string
	Children []*Element
}

// UnmarshalXML builds the generic tree, preserving child declaration order.
func (e *Element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.Name = start.Name.Local
	e.Attrs = make(map[string]string, len(start.Attr))
	for _, a := range start.Attr {
		e.Attrs[a.Name.Local] = a.Value
	}

	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("unexpected EOF inside <%s>", e.Name)
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Element{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			e.Children = append(e.Children, child)
		case xml.EndElement:
			return nil
		}
	}
}

// Attr returns the named attribute and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.Attrs[name]
	return v, ok
}

// AttrDefault returns the named attribute or def if absent.
func (e *Element) AttrDefault(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr overwrites an attribute value in place; used by the compiler to
// record substituted and namespaced values directly in the parsed tree.
func (e *Element) SetAttr(name, value string) {
	if e.Attrs == nil {
		e.Attrs = make(map[string]string)
	}
	e.Attrs[name] = value
}

// Elements returns the direct children with the given tag name, in
// declaration order.
func (e *Element) Elements(tag string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.Name == tag {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy of the subtree rooted at e; changes to the
// copy's attributes or children do not affect e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	clone := &Element{Name: e.Name, Attrs: make(map[string]string, len(e.Attrs))}
	for k, v := range e.Attrs {
		clone.Attrs[k] = v
	}
	for _, c := range e.Children {
		clone.Children = append(clone.Children, c.Clone())
	}
	return clone
}

// Document is the parsed scenario file together with path-based query
// helpers: resolving an attribute by walking a sequence of tag names from
// the root, and listing the child subtrees found at such a path.
type Document struct {
	Root *Element
	Path string
}

// Load reads and parses a scenario XML document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stcerrors.NewParseError(path, err)
	}
	return Parse(path, data)
}

// Parse parses scenario XML from an in-memory buffer. path need not exist
// on disk; it appears in diagnostics and is stored as Document.Path, from
// which the compiler resolves relative imports by default.
func Parse(path string, data []byte) (*Document, error) {
	var root Element
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	tok, err := nextStart(dec)
	if err != nil {
		return nil, stcerrors.NewParseError(path, err)
	}
	if err := root.UnmarshalXML(dec, tok); err != nil {
		return nil, stcerrors.NewParseError(path, err)
	}
	if root.Name != "scenario" {
		return nil, stcerrors.NewParseError(path, fmt.Errorf("root element must be <scenario>, found <%s>", root.Name))
	}
	return &Document{Root: &root, Path: path}, nil
}

func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

// Attr resolves an attribute by walking path (a sequence of tag names
// starting from the root) and taking the first matching child at each
// step, then reading name off the final element.
func (doc *Document) Attr(path []string, name string) (string, bool) {
	el := doc.at(path)
	return el.Attr(name)
}

// ChildrenAt returns the children of the element found by walking path.
func (doc *Document) ChildrenAt(path []string) []*Element {
	el := doc.at(path)
	if el == nil {
		return nil
	}
	return el.Children
}

func (doc *Document) at(path []string) *Element {
	if doc == nil || doc.Root == nil || len(path) == 0 {
		return nil
	}
	if path[0] != doc.Root.Name {
		return nil
	}
	cur := doc.Root
	for _, tag := range path[1:] {
		children := cur.Elements(tag)
		if len(children) == 0 {
			return nil
		}
		cur = children[0]
	}
	return cur
}
