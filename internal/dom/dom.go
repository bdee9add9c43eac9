// Package dom wraps golang.org/x/net/html trees with the small subset of
// document operations the status widget needs: lookup by id, the <base>
// element, and inner-HTML replacement.
//
// A Document serializes all reads and mutations through one mutex, so
// concurrent widget invocations behave like callbacks on a browser's single
// event loop.
package dom

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML page together with the URL it was loaded from.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	location url.URL
}

// Parse reads an HTML document. location is the address the page was served
// from and anchors relative <base href> values; nil means "/".
func Parse(r io.Reader, location *url.URL) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	d := &Document{root: root}
	if location != nil {
		d.location = *location
	} else {
		d.location = url.URL{Path: "/"}
	}
	return d, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(markup string, location *url.URL) (*Document, error) {
	return Parse(strings.NewReader(markup), location)
}

// Location returns a copy of the document URL.
func (d *Document) Location() *url.URL {
	loc := d.location
	return &loc
}

// BaseHref returns the href of the first <base> element carrying one.
func (d *Document) BaseHref() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := findNode(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Base {
			return false
		}
		_, ok := attr(n, "href")
		return ok
	})
	if n == nil {
		return "", false
	}
	href, _ := attr(n, "href")
	return href, true
}

// ElementByID returns the first element whose id attribute equals id.
func (d *Document) ElementByID(id string) (*Element, bool) {
	if id == "" {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := findNode(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		v, ok := attr(n, "id")
		return ok && v == id
	})
	if n == nil {
		return nil, false
	}
	return &Element{doc: d, node: n}, true
}

// Render writes the serialized document to w.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String returns the serialized document.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Element is a handle to a node inside a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

// SetInnerHTML parses fragment in the element's context and replaces all of
// its children with the result.
func (e *Element) SetInnerHTML(fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), e.node)
	if err != nil {
		return err
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// InnerHTML serializes the element's children.
func (e *Element) InnerHTML() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

func findNode(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
