package browser

import (
	"fmt"
	"net/http"

	"github.com/playwright-community/playwright-go"
)

// CookieSource returns the cookies a browser would send to the given URLs.
// playwright.BrowserContext satisfies it.
type CookieSource interface {
	Cookies(urls ...string) ([]playwright.Cookie, error)
}

// CookieTransport is an http.RoundTripper that sends API requests with the
// browser's cookies for the request URL, so calls made from Go carry the
// same signed-in session as the page itself.
type CookieTransport struct {
	Source CookieSource

	// Base performs the request. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// NewCookieClient returns an http.Client using a CookieTransport over src.
func NewCookieClient(src CookieSource) *http.Client {
	return &http.Client{Transport: &CookieTransport{Source: src}}
}

// RoundTrip implements http.RoundTripper.
func (t *CookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cookies, err := t.Source.Cookies(req.URL.String())
	if err != nil {
		return nil, fmt.Errorf("read browser cookies: %w", err)
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	for _, c := range cookies {
		out.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}
