package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session represents an active browser session with its associated resources.
type Session struct {
	// Name is the unique identifier for this session
	Name string

	// Browser is set when the session launched or connected to a browser.
	// Persistent-profile sessions only have a Context.
	Browser playwright.Browser

	// Context is the browser context holding the user's cookies
	Context playwright.BrowserContext

	// Page is the tab the augmentation runs in
	Page playwright.Page

	// Headless indicates if the browser is running in headless mode
	Headless bool

	// Attached is true when the session connected to an already running
	// browser over CDP. Such browsers are disconnected, never closed.
	Attached bool

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// ownsPage is false when Page was reused from an attached browser.
	ownsPage bool
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// ProfileDir keeps cookies and local storage between runs so a single
	// sign-in to Azure DevOps is enough. Empty means a throwaway profile.
	ProfileDir string

	// CDPEndpoint attaches to a running Chrome (for example
	// http://localhost:9222) instead of launching one.
	CDPEndpoint string

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// SlowMo slows every Playwright operation down by the given duration.
	SlowMo time.Duration

	// Timeout sets the default timeout for operations (in milliseconds)
	Timeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle", "commit"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// Default values for various operations
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultViewportWidth  = 1440
	DefaultViewportHeight = 900
	DefaultMaxSessions    = 2
)
