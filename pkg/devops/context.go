package devops

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/vgtabs/pkg/page"
	"github.com/tidwall/gjson"
)

// DataProvidersSelector locates the script element holding page state.
const DataProvidersSelector = "#dataProviders"

// gjson paths into the data providers map. Dots inside contribution ids
// are escaped.
const (
	orgNamePath     = `ms\.vss-web\.page-data.hostName`
	projectNamePath = `ms\.vss-tfs-web\.page-data.project.name`
)

var errNoDataProviders = errors.New("data providers element not found")

// ExtractContext reads the organization and project from the page's embedded
// data providers JSON. selector defaults to DataProvidersSelector.
func ExtractContext(ctx context.Context, doc page.Document, selector string) (PageContext, error) {
	if selector == "" {
		selector = DataProvidersSelector
	}

	node, err := doc.Query(ctx, selector)
	if err != nil {
		return PageContext{}, fmt.Errorf("query %q: %w", selector, err)
	}
	if node == nil {
		return PageContext{}, &ParseError{Source: "page data", Err: errNoDataProviders}
	}

	text, err := node.Text(ctx)
	if err != nil {
		return PageContext{}, &ParseError{Source: "page data", Err: err}
	}

	return ParseContext([]byte(text))
}

// ParseContext extracts the PageContext from a raw data providers payload.
// The providers map is read from the top-level "data" object when present,
// otherwise from the root.
func ParseContext(payload []byte) (PageContext, error) {
	if !gjson.ValidBytes(payload) {
		return PageContext{}, &ParseError{Source: "page data", Err: errors.New("invalid JSON")}
	}

	providers := gjson.ParseBytes(payload)
	if !providers.IsObject() {
		return PageContext{}, &ParseError{Source: "page data", Err: errors.New("payload is not an object")}
	}
	if data := providers.Get("data"); data.IsObject() {
		providers = data
	}

	org := providers.Get(orgNamePath).String()
	if org == "" {
		return PageContext{}, &MissingDataError{Field: "ms.vss-web.page-data.hostName"}
	}
	project := providers.Get(projectNamePath).String()
	if project == "" {
		return PageContext{}, &MissingDataError{Field: "ms.vss-tfs-web.page-data.project.name"}
	}

	return PageContext{OrgName: org, ProjectName: project}, nil
}
