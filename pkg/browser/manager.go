package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/vgtabs/pkg/logging"
)

// SessionManager owns the Playwright driver and the browser sessions started
// through it.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	playwright  *playwright.Playwright
	maxSessions int
	log         *logging.Logger
	initialized bool
}

// NewSessionManager creates a new session manager.
func NewSessionManager(log *logging.Logger) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: DefaultMaxSessions,
		log:         log,
	}
}

// Initialize installs (when needed) and starts the Playwright driver. The
// Chromium download is skipped when installBrowser is false, which is the
// case when attaching to an existing Chrome over CDP.
func (m *SessionManager) Initialize(installBrowser bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Driver output would interleave with the console log sink.
	opts := &playwright.RunOptions{
		Browsers:            []string{"chromium"},
		SkipInstallBrowsers: !installBrowser,
		Verbose:             false,
		Stdout:              io.Discard,
		Stderr:              io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	m.log.Debugf("Playwright driver started.")
	return nil
}

// StartSession opens a browser session. It attaches over CDP when
// opts.CDPEndpoint is set, launches Chromium on a persistent profile when
// opts.ProfileDir is set, and otherwise launches a fresh browser.
func (m *SessionManager) StartSession(name string, opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("session name is required")
	}
	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}
	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}

	opts = withSessionDefaults(opts)

	var (
		session *Session
		err     error
	)
	switch {
	case opts.CDPEndpoint != "":
		session, err = m.attach(opts)
	case opts.ProfileDir != "":
		session, err = m.launchPersistent(opts)
	default:
		session, err = m.launch(opts)
	}
	if err != nil {
		return nil, err
	}

	session.Name = name
	session.Headless = opts.Headless
	session.CreatedAt = time.Now()
	session.Page.SetDefaultTimeout(opts.Timeout)

	m.sessions[name] = session
	m.log.Infof("Browser session %q started (headless=%t, attached=%t).", name, session.Headless, session.Attached)
	return session, nil
}

func withSessionDefaults(opts SessionOptions) SessionOptions {
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return opts
}

func slowMo(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func (m *SessionManager) launch(opts SessionOptions) (*Session, error) {
	browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   slowMo(opts.SlowMo),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	pg, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{Browser: browser, Context: bctx, Page: pg, ownsPage: true}, nil
}

func (m *SessionManager) launchPersistent(opts SessionOptions) (*Session, error) {
	bctx, err := m.playwright.Chromium.LaunchPersistentContext(opts.ProfileDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			SlowMo:   slowMo(opts.SlowMo),
			Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser with profile %s: %w", opts.ProfileDir, err)
	}

	// A persistent context opens with one blank tab.
	if pages := bctx.Pages(); len(pages) > 0 {
		return &Session{Context: bctx, Page: pages[0], ownsPage: true}, nil
	}
	pg, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &Session{Context: bctx, Page: pg, ownsPage: true}, nil
}

func (m *SessionManager) attach(opts SessionOptions) (*Session, error) {
	browser, err := m.playwright.Chromium.ConnectOverCDP(opts.CDPEndpoint,
		playwright.BrowserTypeConnectOverCDPOptions{SlowMo: slowMo(opts.SlowMo)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", opts.CDPEndpoint, err)
	}

	session := &Session{Browser: browser, Attached: true}
	if contexts := browser.Contexts(); len(contexts) > 0 {
		session.Context = contexts[0]
	} else {
		bctx, err := browser.NewContext()
		if err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
		session.Context = bctx
	}

	// Prefer a tab the user already has open.
	if pages := session.Context.Pages(); len(pages) > 0 {
		session.Page = pages[len(pages)-1]
		return session, nil
	}
	pg, err := session.Context.NewPage()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	session.Page = pg
	session.ownsPage = true
	return session, nil
}

// close releases what the session created. Attached browsers are only
// disconnected; the user's own tabs stay open.
func (s *Session) close() error {
	var errs []error
	if s.ownsPage && s.Attached {
		if err := s.Page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if !s.Attached {
		if err := s.Context.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Browser != nil {
		if err := s.Browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing session %q: %v", s.Name, errs)
	}
	return nil
}

// Shutdown closes all sessions and stops the Playwright driver.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, session := range m.sessions {
		if err := session.close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.sessions, name)
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.initialized = false
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
