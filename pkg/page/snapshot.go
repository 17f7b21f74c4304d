package page

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// HTMLDocument is an in-memory Document backed by goquery. It stands in for
// the browser when rewriting saved pages and in tests, where Mutate and
// Navigate play the part of the host application.
type HTMLDocument struct {
	mu        sync.Mutex
	doc       *goquery.Document
	url       string
	observers Observers
}

// ParseHTML reads an HTML page and records url as its location.
func ParseHTML(r io.Reader, url string) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &HTMLDocument{doc: doc, url: url}, nil
}

// URL returns the document's current location.
func (d *HTMLDocument) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Query returns the first element matching selector.
func (d *HTMLDocument) Query(_ context.Context, selector string) (Node, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sel := d.doc.FindMatcher(m).First()
	if sel.Length() == 0 {
		return nil, nil
	}
	return &htmlNode{owner: d, sel: sel}, nil
}

// Subscribe registers fn to run after every mutation of the document.
func (d *HTMLDocument) Subscribe(fn func()) *Subscription {
	return d.observers.Subscribe(fn)
}

// Observers exposes the registry, mainly so callers can assert that nothing
// is left subscribed.
func (d *HTMLDocument) Observers() *Observers {
	return &d.observers
}

// Mutate applies fn to the underlying document and notifies subscribers.
func (d *HTMLDocument) Mutate(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	fn(d.doc)
	d.mu.Unlock()

	d.observers.Notify()
}

// Navigate changes the document location without reloading, the way a
// single-page application does, and notifies subscribers.
func (d *HTMLDocument) Navigate(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()

	d.observers.Notify()
}

// HTML serialises the whole document.
func (d *HTMLDocument) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

type htmlNode struct {
	owner *HTMLDocument
	sel   *goquery.Selection
}

func (n *htmlNode) Text(_ context.Context) (string, error) {
	n.owner.mu.Lock()
	defer n.owner.mu.Unlock()
	return n.sel.Text(), nil
}

func (n *htmlNode) ReplaceChildren(_ context.Context, keepSelector string, rows []*html.Node) error {
	var keep cascadia.Selector
	if keepSelector != "" {
		m, err := cascadia.Compile(keepSelector)
		if err != nil {
			return fmt.Errorf("invalid selector %q: %w", keepSelector, err)
		}
		keep = m
	}

	n.owner.mu.Lock()
	var kept *html.Node
	if keep != nil {
		if found := n.sel.FindMatcher(keep).First(); found.Length() > 0 {
			kept = found.Get(0)
			found.Remove()
		}
	}

	n.sel.Empty()
	if kept != nil {
		n.sel.AppendNodes(kept)
	}
	for _, row := range rows {
		markIsolated(row)
	}
	n.sel.AppendNodes(rows...)
	n.owner.mu.Unlock()

	n.owner.observers.Notify()
	return nil
}

func markIsolated(n *html.Node) {
	for _, a := range n.Attr {
		if a.Key == IsolateClickAttr {
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: IsolateClickAttr, Val: "true"})
}
