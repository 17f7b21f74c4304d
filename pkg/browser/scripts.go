package browser

import (
	"strings"

	"golang.org/x/net/html"
)

// notifyBinding is the page-global function the observer script calls to
// reach Go.
const notifyBinding = "__vgtabsNotify"

// observerScript installs one MutationObserver per document. Bursts of
// mutations within a task are coalesced into a single binding call.
const observerScript = `(() => {
  if (window.__vgtabsObserver) return;
  let pending = false;
  const notify = () => {
    if (pending) return;
    pending = true;
    setTimeout(() => {
      pending = false;
      const fn = window.__vgtabsNotify;
      if (typeof fn === 'function') {
        Promise.resolve(fn()).catch(() => {});
      }
    }, 0);
  };
  window.__vgtabsObserver = new MutationObserver(notify);
  window.__vgtabsObserver.observe(document, { childList: true, subtree: true });
  window.addEventListener('popstate', notify);
  notify();
})()`

// replaceChildrenScript receives the tbody element and the rows as plain
// node trees. Elements are built with createElement and text with
// createTextNode, so nothing is ever parsed as markup.
const replaceChildrenScript = `(tbody, { keep, rows, attr }) => {
  const build = (n) => {
    if (n.text !== undefined) return document.createTextNode(n.text);
    const el = document.createElement(n.tag);
    for (const [k, v] of n.attrs || []) el.setAttribute(k, v);
    for (const c of n.children || []) el.appendChild(build(c));
    return el;
  };
  const spacer = keep ? tbody.querySelector(keep) : null;
  const built = rows.map(build);
  for (const row of built) {
    row.setAttribute(attr, 'true');
    row.addEventListener('click', (e) => e.stopPropagation());
  }
  tbody.replaceChildren(...(spacer ? [spacer] : []), ...built);
  return built.length;
}`

// nodeTree converts n into the plain structure replaceChildrenScript
// understands. Comments and doctype nodes are dropped.
func nodeTree(n *html.Node) map[string]interface{} {
	switch n.Type {
	case html.TextNode:
		return map[string]interface{}{"text": n.Data}
	case html.ElementNode:
		attrs := make([]interface{}, 0, len(n.Attr))
		for _, a := range n.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			attrs = append(attrs, []interface{}{key, a.Val})
		}
		children := make([]interface{}, 0)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := nodeTree(c); t != nil {
				children = append(children, t)
			}
		}
		return map[string]interface{}{
			"tag":      strings.ToLower(n.Data),
			"attrs":    attrs,
			"children": children,
		}
	default:
		return nil
	}
}

func nodeTrees(rows []*html.Node) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for _, r := range rows {
		if t := nodeTree(r); t != nil {
			out = append(out, t)
		}
	}
	return out
}
