package augment

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/vgtabs/pkg/devops"
)

// ViewParam is the query parameter that selects the library tab.
const ViewParam = "itemType"

// VariableGroupsView is the ViewParam value of the variable groups list.
const VariableGroupsView = "VariableGroups"

// DefaultLibraryPatterns match the Azure DevOps library page.
var DefaultLibraryPatterns = LibraryPatterns(devops.DefaultBaseURL)

// LibraryPatterns returns the library page pattern for organizations served
// from baseURL, e.g. https://tfs.example.com/tfs/*/*/_library*.
func LibraryPatterns(baseURL string) []string {
	return []string{strings.TrimRight(baseURL, "/") + "/*/*/_library*"}
}

// IsVariableGroupsView reports whether rawURL shows the variable groups list:
// the itemType parameter is either absent (the library's default tab) or
// exactly VariableGroups.
func IsVariableGroupsView(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	values, present := u.Query()[ViewParam]
	if !present {
		return true
	}
	return len(values) > 0 && values[0] == VariableGroupsView
}

// Matcher decides whether a URL is the library page the augmentation
// targets, using glob match patterns.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns; DefaultLibraryPatterns are used when none are given.
func NewMatcher(patterns ...string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultLibraryPatterns
	}

	m := &Matcher{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid URL pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether rawURL matches any pattern.
func (m *Matcher) Match(rawURL string) bool {
	for _, g := range m.globs {
		if g.Match(rawURL) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
