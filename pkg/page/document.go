// Package page defines the DOM surface the augmentation pipeline works against.
//
// A Document is either a live browser page (see pkg/browser) or an in-memory
// HTML snapshot (HTMLDocument). Both report structural changes through an
// Observers registry, which is what WaitFor and the navigation monitor in
// pkg/augment subscribe to.
package page

import (
	"context"

	"golang.org/x/net/html"
)

// IsolateClickAttr marks rows whose click events must not reach the host
// application's row handlers. Live documents attach a stopPropagation
// listener to every element carrying it.
const IsolateClickAttr = "data-vgtabs-isolate-click"

// Document is a page whose DOM can be queried and observed.
type Document interface {
	// URL returns the current location of the page.
	URL() string

	// Query returns the first element matching selector, or a nil Node
	// when nothing matches.
	Query(ctx context.Context, selector string) (Node, error)

	// Subscribe registers fn to run after DOM mutations.
	Subscribe(fn func()) *Subscription
}

// Node is a single element of a Document.
type Node interface {
	// Text returns the element's text content.
	Text(ctx context.Context) (string, error)

	// ReplaceChildren removes every child of the element except the first
	// descendant matching keepSelector (when keepSelector is non-empty and
	// matches), then appends rows in order.
	ReplaceChildren(ctx context.Context, keepSelector string, rows []*html.Node) error
}
