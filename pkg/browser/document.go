package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/net/html"

	"github.com/entrhq/vgtabs/pkg/logging"
	"github.com/entrhq/vgtabs/pkg/page"
)

// Document is a page.Document backed by a live Playwright page.
type Document struct {
	pg        playwright.Page
	log       *logging.Logger
	observers page.Observers
}

// Attach wires a Playwright page up as a Document: DOM mutations and
// main-frame navigations notify subscribers, and browser console output is
// forwarded to log.
func Attach(pg playwright.Page, log *logging.Logger) (*Document, error) {
	d := &Document{pg: pg, log: log}

	// Bindings run on the driver's dispatch goroutine. Notify only signals
	// channels, it never calls back into Playwright.
	err := pg.ExposeFunction(notifyBinding, func(args ...interface{}) interface{} {
		d.observers.Notify()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", notifyBinding, err)
	}

	script := observerScript
	if err := pg.AddInitScript(playwright.Script{Content: &script}); err != nil {
		return nil, fmt.Errorf("add observer init script: %w", err)
	}
	// The init script only covers future documents.
	if _, err := pg.Evaluate(observerScript); err != nil {
		return nil, fmt.Errorf("install observer: %w", err)
	}

	pg.OnFrameNavigated(func(f playwright.Frame) {
		if f.ParentFrame() == nil {
			d.observers.Notify()
		}
	})
	pg.OnConsole(d.forwardConsole)

	return d, nil
}

func (d *Document) forwardConsole(msg playwright.ConsoleMessage) {
	switch msg.Type() {
	case "error":
		d.log.Errorf("[console] %s", msg.Text())
	case "warning":
		d.log.Warnf("[console] %s", msg.Text())
	default:
		d.log.Debugf("[console.%s] %s", msg.Type(), msg.Text())
	}
}

// URL returns the page's current location, including same-document
// history navigations.
func (d *Document) URL() string {
	return d.pg.URL()
}

// Query returns the first element matching selector, or nil.
func (d *Document) Query(ctx context.Context, selector string) (page.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := d.pg.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if h == nil {
		return nil, nil
	}
	return &element{handle: h}, nil
}

// Subscribe registers fn to run after DOM mutations and navigations.
func (d *Document) Subscribe(fn func()) *page.Subscription {
	return d.observers.Subscribe(fn)
}

// Observers exposes the registry, mainly for diagnostics.
func (d *Document) Observers() *page.Observers {
	return &d.observers
}

type element struct {
	handle playwright.ElementHandle
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.handle.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

func (e *element) ReplaceChildren(ctx context.Context, keepSelector string, rows []*html.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.handle.Evaluate(replaceChildrenScript, map[string]interface{}{
		"keep": keepSelector,
		"rows": nodeTrees(rows),
		"attr": page.IsolateClickAttr,
	})
	if err != nil {
		return fmt.Errorf("replace rows: %w", err)
	}
	return nil
}
