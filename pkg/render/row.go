package render

import (
	"strconv"
	"strings"

	"github.com/entrhq/vgtabs/pkg/devops"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// UnknownModifier is shown when a group has no modifier display name.
const UnknownModifier = "Unknown"

// Class names of the host's bolt table markup.
const (
	cellClass        = "bolt-table-cell bolt-list-cell"
	spacerCellClass  = "bolt-table-cell-compact bolt-table-cell bolt-list-cell bolt-table-spacer-cell"
	cellContentClass = "bolt-table-cell-content flex-row flex-center"
)

// Row builds the table row for group at position index.
func (r *Renderer) Row(pc devops.PageContext, group devops.VariableGroup, index int) *html.Node {
	classes := []string{"bolt-table-row", "bolt-list-row"}
	if index == 0 {
		classes = append(classes, "first-row", "focused")
	}
	classes = append(classes, "single-click-activation")

	tr := elem(atom.Tr,
		"class", strings.Join(classes, " "),
		"aria-rowindex", strconv.Itoa(index+2),
		"data-focuszone", "focuszone-"+strconv.Itoa(index+5),
		"data-row-index", strconv.Itoa(index),
		"role", "row",
		"tabindex", "0",
	)

	appendChildren(tr.Node,
		spacerCell(),
		r.nameCell(pc, group),
		moreOptionsCell(index),
		gridCell(2, elem(atom.Span, "class", "lib-item-list-date").withText(r.weekday(group)).Node),
		r.modifiedByCell(pc, group),
		gridCell(4, elem(atom.Span, "class", "lib-item-desc").withText(group.Description).Node),
		spacerCell(),
	)

	return tr.Node
}

func (r *Renderer) nameCell(pc devops.PageContext, group devops.VariableGroup) *html.Node {
	icon := elem(atom.Span, "class", "fluent-icons-enabled")
	appendChildren(icon.Node, elem(atom.Span,
		"aria-hidden", "true",
		"class", "vg-item-name-icon flex-noshrink fabric-icon ms-Icon--Variable",
	).Node)

	link := elem(atom.A,
		"class", "lib-item-var-name",
		"href", r.GroupLink(pc, group),
		"target", "_blank",
		"rel", "noopener noreferrer",
	).withText(group.Name)

	return gridCell(0, icon.Node, link.Node)
}

func (r *Renderer) modifiedByCell(pc devops.PageContext, group devops.VariableGroup) *html.Node {
	name := UnknownModifier
	var children []*html.Node

	if by := group.ModifiedBy; by != nil {
		if by.DisplayName != "" {
			name = by.DisplayName
		}
		if by.ID != "" {
			children = append(children, elem(atom.Img,
				"class", "lib-item-modifiedby-img",
				"src", r.IdentityImageURL(pc, by.ID),
				"alt", "",
			).Node)
		}
	}

	children = append(children, elem(atom.Span, "class", "lib-item-modifiedby-name").withText(name).Node)
	return gridCell(3, children...)
}

func (r *Renderer) weekday(group devops.VariableGroup) string {
	if group.ModifiedOn.IsZero() {
		return ""
	}
	return group.ModifiedOn.In(r.location).Weekday().String()
}

func spacerCell() *html.Node {
	return elem(atom.Td,
		"aria-hidden", "true",
		"class", spacerCellClass,
		"role", "presentation",
	).Node
}

// gridCell wraps children in a data cell at the given column.
func gridCell(column int, children ...*html.Node) *html.Node {
	content := elem(atom.Div, "class", cellContentClass)
	appendChildren(content.Node, children...)

	td := elem(atom.Td,
		"aria-colindex", strconv.Itoa(column+1),
		"class", cellClass,
		"data-column-index", strconv.Itoa(column),
		"role", "gridcell",
	)
	appendChildren(td.Node, content.Node)
	return td.Node
}

func moreOptionsCell(index int) *html.Node {
	iconWrap := elem(atom.Span, "class", "fluent-icons-enabled")
	appendChildren(iconWrap.Node, elem(atom.Span,
		"aria-hidden", "true",
		"class", "small left-icon flex-noshrink fabric-icon ms-Icon--MoreVertical medium",
	).Node)

	button := elem(atom.Button,
		"aria-expanded", "false",
		"aria-haspopup", "true",
		"aria-label", "More options",
		"class", "icon-only bolt-button bolt-icon-button enabled subtle icon-only bolt-focus-treatment",
		"data-focuszone", "focuszone-"+strconv.Itoa(index+11),
		"data-is-focusable", "true",
		"role", "button",
		"tabindex", "-1",
		"type", "button",
	)
	appendChildren(button.Node, iconWrap.Node)

	expandable := elem(atom.Div, "class", "bolt-table-button-more bolt-expandable-button inline-flex-row")
	appendChildren(expandable.Node, button.Node)

	reveal := elem(atom.Div, "class", "bolt-table-cell-content-reveal flex-row justify-center")
	appendChildren(reveal.Node, expandable.Node)

	td := elem(atom.Td,
		"aria-colindex", "2",
		"class", "bolt-table-cell-side-action bolt-table-cell bolt-list-cell col-1",
		"data-column-index", "1",
	)
	appendChildren(td.Node, reveal.Node)
	return td.Node
}

// element is a small builder over html.Node.
type element struct {
	*html.Node
}

// elem creates an element node; attrs are key/value pairs.
func elem(a atom.Atom, attrs ...string) element {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return element{n}
}

func (e element) withText(s string) element {
	e.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	return e
}

func appendChildren(parent *html.Node, children ...*html.Node) {
	for _, c := range children {
		parent.AppendChild(c)
	}
}
