package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/vgtabs/pkg/augment"
	"github.com/entrhq/vgtabs/pkg/config"
	"github.com/entrhq/vgtabs/pkg/devops"
	"github.com/entrhq/vgtabs/pkg/logging"
	"github.com/entrhq/vgtabs/pkg/page"
	"github.com/entrhq/vgtabs/pkg/render"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	baseURL    string
	pat        string
	timezone   string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vgtabs",
		Short: "Open Azure DevOps variable groups in new tabs",
		Long: `vgtabs rewrites the variable groups list of the Azure DevOps library page so
that every group is a real link that opens in a new browser tab.

"vgtabs run" drives a Chromium window and keeps the list rewritten while you
navigate. "vgtabs render" rewrites a saved copy of the page.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("vgtabs v{{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file, JSON or YAML (default: ~/.vgtabs/config.json)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "show debug output on the console")
	pf.StringVar(&flags.baseURL, "base-url", "", "Azure DevOps base URL (default: https://dev.azure.com)")
	pf.StringVar(&flags.pat, "pat", "", "personal access token for API calls ($"+config.EnvPAT+")")
	pf.StringVar(&flags.timezone, "timezone", "", "IANA time zone for the modified weekday (default: local)")
	pf.DurationVar(&flags.timeout, "timeout", 0, "how long to wait for the library table (default: 10s)")

	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newRenderCmd(flags))
	rootCmd.AddCommand(newConfigCmd(flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// app is what every command builds from the flags before doing its work.
type app struct {
	log      *logging.Logger
	manager  *config.Manager
	settings config.Settings
}

// newApp loads configuration and opens the session log. The caller must
// Close it.
func newApp(cmd *cobra.Command, flags *globalFlags, extra config.Overrides) (*app, error) {
	log, _ := logging.NewLogger("vgtabs")
	log.SetConsole(cmd.ErrOrStderr(), flags.verbose)

	manager, err := config.Load(flags.configPath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	extra.BaseURL = flags.baseURL
	extra.PAT = flags.pat
	extra.Timezone = flags.timezone
	extra.Timeout = flags.timeout

	settings, err := config.Resolve(manager, extra)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if path := log.LogPath(); path != "" {
		log.Debugf("Logging to %s", path)
	}
	return &app{log: log, manager: manager, settings: settings}, nil
}

func (a *app) Close() error {
	return a.log.Close()
}

func (a *app) renderer() (*render.Renderer, error) {
	loc, err := a.settings.Augment.Location()
	if err != nil {
		return nil, err
	}
	return render.New(
		render.WithBaseURL(a.settings.Augment.BaseURL),
		render.WithLocation(loc),
		render.WithSpacerSelector(a.settings.Augment.SpacerSelector),
	), nil
}

func (a *app) pipelineOptions() augment.Options {
	return augment.Options{
		TableSelector:         a.settings.Augment.TableSelector,
		DataProvidersSelector: a.settings.Augment.DataProvidersSelector,
		Timeout:               a.settings.Augment.Timeout,
	}
}

// client builds the REST client. A personal access token wins over the
// given HTTP client (the browser's cookie transport in live mode).
func (a *app) client(httpClient devops.Doer) *devops.Client {
	opts := []devops.ClientOption{
		devops.WithBaseURL(a.settings.Augment.BaseURL),
		devops.WithUserAgent("vgtabs/" + version),
	}
	if pat := a.settings.Augment.PersonalAccessToken; pat != "" {
		opts = append(opts, devops.WithPersonalAccessToken(pat))
	} else if httpClient != nil {
		opts = append(opts, devops.WithHTTPClient(httpClient))
	}
	return devops.NewClient(opts...)
}

func (a *app) newPipeline(doc page.Document, fetcher augment.Fetcher) (*augment.Pipeline, error) {
	renderer, err := a.renderer()
	if err != nil {
		return nil, err
	}
	return augment.NewPipeline(doc, fetcher, renderer, a.log.Named("augment"), a.pipelineOptions()), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vgtabs v%s\n", version)
		},
	}
}

func writeOut(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
