// Package devops reads Azure DevOps page state and talks to the
// distributed-task REST API for variable groups.
package devops

import (
	"fmt"
	"time"
)

// PageContext identifies the organization and project a page belongs to.
type PageContext struct {
	OrgName     string
	ProjectName string
}

// IdentityRef is the subset of an Azure DevOps identity used for display.
type IdentityRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// VariableGroup is a library variable group as returned by the API.
type VariableGroup struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	ModifiedOn  time.Time    `json:"modifiedOn"`
	ModifiedBy  *IdentityRef `json:"modifiedBy,omitempty"`
}

// ParseError reports page state or an API body that could not be decoded.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to parse %s", e.Source)
	}
	return fmt.Sprintf("failed to parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MissingDataError reports a required page-state field that is absent or empty.
type MissingDataError struct {
	Field string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("required page data %q is missing", e.Field)
}

// HTTPError reports a non-success API response.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API call failed: %s (%s)", e.Status, e.URL)
}
