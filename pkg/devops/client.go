package devops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	// DefaultBaseURL is the Azure DevOps Services host.
	DefaultBaseURL = "https://dev.azure.com"

	variableGroupsPath  = "_apis/distributedtask/variablegroups"
	variableGroupsQuery = "continuationToken=0&queryOrder=0"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches variable groups from the Azure DevOps REST API.
type Client struct {
	baseURL   string
	http      Doer
	pat       string
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the transport used for API calls.
func WithHTTPClient(d Doer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithPersonalAccessToken authenticates requests with a PAT via basic auth.
func WithPersonalAccessToken(pat string) ClientOption {
	return func(c *Client) {
		c.pat = pat
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// VariableGroupsURL returns the list endpoint for the given project.
func (c *Client) VariableGroupsURL(pc PageContext) string {
	return fmt.Sprintf("%s/%s/%s/%s?%s",
		c.baseURL,
		url.PathEscape(pc.OrgName),
		url.PathEscape(pc.ProjectName),
		variableGroupsPath,
		variableGroupsQuery,
	)
}

// VariableGroups performs a single GET for the project's variable groups and
// returns them ordered by name. There is no retry; any failure is returned.
func (c *Client) VariableGroups(ctx context.Context, pc PageContext) ([]VariableGroup, error) {
	endpoint := c.VariableGroupsURL(pc)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.pat != "" {
		req.SetBasicAuth("", c.pat)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch variable groups: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("failed to fetch variable groups: %w", &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        endpoint,
		})
	}

	groups, err := DecodeVariableGroups(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch variable groups: %w", err)
	}

	SortByName(groups)
	return groups, nil
}

// DecodeVariableGroups reads a list response body ({"count":n,"value":[...]}).
// The groups are returned in body order.
func DecodeVariableGroups(r io.Reader) ([]VariableGroup, error) {
	var body struct {
		Value *[]VariableGroup `json:"value"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, &ParseError{Source: "variable groups response", Err: err}
	}
	if body.Value == nil {
		return nil, &ParseError{Source: "variable groups response", Err: errors.New(`missing "value" array`)}
	}
	return *body.Value, nil
}

// SortByName orders groups by name, ignoring case and accents, using English
// collation. Groups with equal keys keep their relative order.
func SortByName(groups []VariableGroup) {
	c := collate.New(language.English, collate.Loose)
	sort.SliceStable(groups, func(i, j int) bool {
		return c.CompareString(groups[i].Name, groups[j].Name) < 0
	})
}
