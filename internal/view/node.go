package view

import (
	"bytes"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is a renderable page fragment.
type Node = *html.Node

// Attr is a single element attribute.
type Attr = html.Attribute

// A builds an attribute.
func A(key, val string) Attr { return Attr{Key: key, Val: val} }

// Attrs builds attributes from key/value pairs. A trailing odd key is dropped.
func Attrs(kv ...string) []Attr {
	out := make([]Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Attr{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

// El builds an element. Nil children are skipped so optional sections can be
// passed inline.
func El(tag string, attrs []Attr, children ...Node) Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
	appendChildren(n, children)
	return n
}

// Text is an escaped text node.
func Text(s string) Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Raw inserts already sanitized markup without escaping.
func Raw(markup string) Node {
	if markup == "" {
		return nil
	}
	return &html.Node{Type: html.RawNode, Data: markup}
}

// Group wraps children in an element-less container; Render emits only the children.
func Group(children ...Node) Node {
	n := &html.Node{Type: html.DocumentNode}
	appendChildren(n, children)
	if n.FirstChild == nil {
		return nil
	}
	return n
}

// Document wraps root in a document with an HTML5 doctype.
func Document(root Node) Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	if root != nil {
		doc.AppendChild(root)
	}
	return doc
}

// Render writes n to w. Text and attribute values are escaped.
func Render(w io.Writer, n Node) error {
	if n == nil {
		return nil
	}
	return html.Render(w, n)
}

// String renders n to a string, mostly for tests.
func String(n Node) string {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func appendChildren(parent Node, children []Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		if c.Type == html.DocumentNode {
			// Hoist grouped children so the tree never nests documents.
			for gc := c.FirstChild; gc != nil; {
				next := gc.NextSibling
				c.RemoveChild(gc)
				parent.AppendChild(gc)
				gc = next
			}
			continue
		}
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		parent.AppendChild(c)
	}
}
