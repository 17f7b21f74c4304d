package browser

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Navigate loads url in the session's page.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Closed returns a channel that is closed when the user closes the page or
// the browser goes away.
func (s *Session) Closed() <-chan struct{} {
	done := make(chan struct{})
	var once sync.Once
	signal := func() { once.Do(func() { close(done) }) }
	s.Page.OnClose(func(playwright.Page) { signal() })
	if s.Browser != nil {
		s.Browser.OnDisconnected(func(playwright.Browser) { signal() })
	} else {
		s.Context.OnClose(func(playwright.BrowserContext) { signal() })
	}
	return done
}
