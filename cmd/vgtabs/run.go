package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/vgtabs/pkg/augment"
	"github.com/entrhq/vgtabs/pkg/browser"
	"github.com/entrhq/vgtabs/pkg/config"
)

const sessionName = "main"

type runFlags struct {
	headless    bool
	cdpEndpoint string
	profileDir  string
	startURL    string
	patterns    []string
}

func newRunCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open a browser and keep the variable groups list rewritten",
		Long: `Launch Chromium (or attach to a running Chrome with --cdp) and watch it.
Whenever the tab shows the variable groups list of an Azure DevOps library,
the list is replaced with links that open each group in a new tab.

Sign in once; the session is kept in the profile directory.`,
		Example: `  vgtabs run --start-url https://dev.azure.com/myorg/myproject/_library
  vgtabs run --cdp http://localhost:9222`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := config.Overrides{
				CDPEndpoint: flags.cdpEndpoint,
				ProfileDir:  flags.profileDir,
				StartURL:    flags.startURL,
				URLPatterns: flags.patterns,
			}
			if cmd.Flags().Changed("headless") {
				overrides.Headless = &flags.headless
			}

			a, err := newApp(cmd, global, overrides)
			if err != nil {
				return err
			}
			defer a.Close()

			return runLive(cmd, a)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.headless, "headless", false, "run Chromium without a window")
	f.StringVar(&flags.cdpEndpoint, "cdp", "", "attach to a running Chrome at this DevTools endpoint")
	f.StringVar(&flags.profileDir, "profile", "", "browser profile directory (default: ~/.vgtabs/profile)")
	f.StringVar(&flags.startURL, "start-url", "", "page to open first")
	f.StringSliceVar(&flags.patterns, "match", nil, "library URL pattern, repeatable (default: https://dev.azure.com/*/*/_library*)")

	return cmd
}

func runLive(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	bs := a.settings.Browser

	matcher, err := augment.NewMatcher(a.settings.Augment.URLPatterns...)
	if err != nil {
		return err
	}

	if bs.CDPEndpoint == "" && bs.ProfileDir == "" {
		if bs.ProfileDir, err = config.DefaultProfileDir(); err != nil {
			return err
		}
	}

	manager := browser.NewSessionManager(a.log.Named("browser"))
	if err := manager.Initialize(bs.CDPEndpoint == ""); err != nil {
		return err
	}
	defer func() {
		if err := manager.Shutdown(); err != nil {
			a.log.Warnf("Browser shutdown: %v", err)
		}
	}()

	session, err := manager.StartSession(sessionName, browser.SessionOptions{
		Headless:    bs.Headless,
		ProfileDir:  bs.ProfileDir,
		CDPEndpoint: bs.CDPEndpoint,
		SlowMo:      bs.SlowMo,
	})
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	closed := session.Closed()

	doc, err := browser.Attach(session.Page, a.log.Named("page"))
	if err != nil {
		return fmt.Errorf("failed to attach to page: %w", err)
	}

	client := a.client(browser.NewCookieClient(session.Context))
	pipeline, err := a.newPipeline(doc, client)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	monitor, err := augment.NewMonitor(doc, pipeline, a.log.Named("monitor"), augment.MonitorOptions{
		Matcher: matcher,
		OnRunComplete: func(r augment.RunReport) {
			if r.Err == nil {
				fmt.Fprintf(out, "%s/%s: %d variable groups now open in new tabs\n",
					r.Result.Context.OrgName, r.Result.Context.ProjectName, r.Result.Groups)
			}
		},
	})
	if err != nil {
		return err
	}
	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	if bs.StartURL != "" {
		if err := session.Navigate(bs.StartURL, browser.NavigateOptions{WaitUntil: "domcontentloaded"}); err != nil {
			// The user can still navigate by hand.
			a.log.Warnf("Could not open %s: %v", bs.StartURL, err)
		}
	}

	a.log.Infof("Watching for %v. Press Ctrl+C to stop.", matcher.Patterns())
	select {
	case <-ctx.Done():
	case <-closed:
		a.log.Infof("Browser closed.")
	}
	return nil
}
