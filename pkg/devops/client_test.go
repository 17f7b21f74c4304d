package devops

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(groups []VariableGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Name
	}
	return out
}

func TestClient_VariableGroups(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"count":3,"value":[
			{"id":2,"name":"Beta","modifiedOn":"2024-01-02T10:00:00.000Z","modifiedBy":{"id":"u1","displayName":"Ada"}},
			{"id":1,"name":"alpha","description":"first","modifiedOn":"2024-01-01T10:00:00Z"},
			{"id":3,"name":"Gamma","modifiedOn":"2024-01-03T10:00:00Z"}
		]}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL+"/"), WithHTTPClient(server.Client()))
	groups, err := client.VariableGroups(context.Background(), PageContext{OrgName: "org1", ProjectName: "My Project"})
	require.NoError(t, err)

	assert.Equal(t, "/org1/My%20Project/_apis/distributedtask/variablegroups", gotPath)
	assert.Equal(t, "continuationToken=0&queryOrder=0", gotQuery)
	assert.Equal(t, []string{"alpha", "Beta", "Gamma"}, names(groups))

	assert.Equal(t, 1, groups[0].ID)
	assert.Equal(t, "first", groups[0].Description)
	assert.Nil(t, groups[0].ModifiedBy)
	require.NotNil(t, groups[1].ModifiedBy)
	assert.Equal(t, "Ada", groups[1].ModifiedBy.DisplayName)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), groups[1].ModifiedOn.UTC())
}

func TestClient_VariableGroups_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	_, err := client.VariableGroups(context.Background(), PageContext{OrgName: "org1", ProjectName: "proj1"})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "404 Not Found", httpErr.Status)
	assert.Contains(t, err.Error(), "failed to fetch variable groups")
}

func TestClient_VariableGroups_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "truncated", body: `{"value":[{"id":1,`},
		{name: "missing value", body: `{"count":0}`},
		{name: "html login page", body: `<html>sign in</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
			_, err := client.VariableGroups(context.Background(), PageContext{OrgName: "o", ProjectName: "p"})

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "expected ParseError, got %v", err)
		})
	}
}

func TestClient_PersonalAccessToken(t *testing.T) {
	var gotAuth, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithPersonalAccessToken("secret"),
		WithUserAgent("vgtabs/test"),
	)
	groups, err := client.VariableGroups(context.Background(), PageContext{OrgName: "o", ProjectName: "p"})
	require.NoError(t, err)
	assert.Empty(t, groups)

	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte(":secret")), gotAuth)
	assert.Equal(t, "vgtabs/test", gotUA)
}

func TestClient_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	_, err := client.VariableGroups(ctx, PageContext{OrgName: "o", ProjectName: "p"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSortByName(t *testing.T) {
	groups := []VariableGroup{
		{Name: "Beta"},
		{Name: "alpha"},
		{Name: "Gamma"},
		{Name: "Éclair"},
		{Name: "delta"},
	}

	SortByName(groups)
	assert.Equal(t, []string{"alpha", "Beta", "delta", "Éclair", "Gamma"}, names(groups))
}

func TestSortByName_StableForEqualKeys(t *testing.T) {
	groups := []VariableGroup{
		{ID: 1, Name: "prod"},
		{ID: 2, Name: "PROD"},
		{ID: 3, Name: "dev"},
	}

	SortByName(groups)
	assert.Equal(t, []int{3, 1, 2}, []int{groups[0].ID, groups[1].ID, groups[2].ID})
}

func TestDecodeVariableGroups_KeepsBodyOrder(t *testing.T) {
	groups, err := DecodeVariableGroups(strings.NewReader(`{"value":[{"id":1,"name":"b"},{"id":2,"name":"a"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names(groups))
}
