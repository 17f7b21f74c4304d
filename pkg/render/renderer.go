// Package render turns variable groups into rows of the host's library table
// and writes them into a table body.
package render

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/entrhq/vgtabs/pkg/devops"
	"github.com/entrhq/vgtabs/pkg/page"
	"golang.org/x/net/html"
)

// DefaultSpacerSelector matches the host's placeholder row, which survives
// every re-render.
const DefaultSpacerSelector = "tr.bolt-list-row-spacer"

// Renderer builds and writes variable group rows.
type Renderer struct {
	baseURL        string
	location       *time.Location
	spacerSelector string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBaseURL sets the host used for group links.
func WithBaseURL(baseURL string) Option {
	return func(r *Renderer) {
		if baseURL != "" {
			r.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithLocation sets the time zone used to derive the modification weekday.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithSpacerSelector overrides DefaultSpacerSelector.
func WithSpacerSelector(selector string) Option {
	return func(r *Renderer) {
		r.spacerSelector = selector
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		baseURL:        devops.DefaultBaseURL,
		location:       time.Local,
		spacerSelector: DefaultSpacerSelector,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GroupLink returns the library URL that opens group in the variable group editor.
func (r *Renderer) GroupLink(pc devops.PageContext, group devops.VariableGroup) string {
	return fmt.Sprintf("%s/%s/%s/_library?itemType=VariableGroups&view=VariableGroupView&variableGroupId=%s&path=%s",
		r.baseURL,
		url.PathEscape(pc.OrgName),
		url.PathEscape(pc.ProjectName),
		strconv.Itoa(group.ID),
		EncodeURIComponent(group.Name),
	)
}

// IdentityImageURL returns the host-relative avatar URL for an identity id.
func (r *Renderer) IdentityImageURL(pc devops.PageContext, id string) string {
	return fmt.Sprintf("/%s/%s/_api/_common/IdentityImage?id=%s",
		url.PathEscape(pc.OrgName),
		url.PathEscape(pc.ProjectName),
		url.QueryEscape(id),
	)
}

// Rows builds one row per group, in order.
func (r *Renderer) Rows(pc devops.PageContext, groups []devops.VariableGroup) []*html.Node {
	rows := make([]*html.Node, 0, len(groups))
	for i, g := range groups {
		rows = append(rows, r.Row(pc, g, i))
	}
	return rows
}

// Render replaces the rows of tbody with rows for groups, keeping the spacer
// row when there is one.
func (r *Renderer) Render(ctx context.Context, tbody page.Node, pc devops.PageContext, groups []devops.VariableGroup) error {
	if err := tbody.ReplaceChildren(ctx, r.spacerSelector, r.Rows(pc, groups)); err != nil {
		return fmt.Errorf("failed to populate table: %w", err)
	}
	return nil
}
