// Package browser drives Chromium through Playwright for the live mode of
// vgtabs.
//
// # Sessions
//
// A SessionManager starts the Playwright driver and opens sessions in one of
// three ways:
//
//  1. Attach: connect to a Chrome the user already runs with
//     --remote-debugging-port, reusing its signed-in profile and open tab
//  2. Persistent profile: launch Chromium on a profile directory so the
//     Azure DevOps sign-in survives restarts
//  3. Fresh: launch a throwaway browser, mostly useful headless
//
// # Documents
//
// Attach turns a session's page into a page.Document. An init script installs
// a MutationObserver that calls back into Go through an exposed binding, so
// the navigation monitor and the readiness watcher see DOM changes as they
// happen. Rows are written with an in-page function that builds elements
// from plain node trees and isolates their clicks from the host grid.
//
// # API calls
//
// CookieTransport lets the devops client call the REST API with the cookies
// of the browser context, the same way the page's own scripts do.
//
// # Example Usage
//
//	manager := browser.NewSessionManager(log)
//	if err := manager.Initialize(true); err != nil {
//	    return err
//	}
//	session, err := manager.StartSession("main", browser.SessionOptions{
//	    ProfileDir: "~/.vgtabs/profile",
//	})
//	doc, err := browser.Attach(session.Page, log)
//	client := devops.NewClient(devops.WithHTTPClient(browser.NewCookieClient(session.Context)))
package browser
