package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/vgtabs/pkg/config"
)

func newConfigCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(global))
	cmd.AddCommand(newConfigShowCmd(global))
	return cmd
}

func newConfigInitCmd(global *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The existing file is never read, so --force also replaces one
			// that no longer parses.
			manager, err := config.Defaults(global.configPath)
			if err != nil {
				return err
			}

			path := manager.Store().(*config.FileStore).Path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := manager.SaveAll(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings after flags and environment are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := config.Load(global.configPath)
			if err != nil {
				return err
			}
			settings, err := config.Resolve(manager, config.Overrides{
				BaseURL:  global.baseURL,
				PAT:      global.pat,
				Timezone: global.timezone,
				Timeout:  global.timeout,
			})
			if err != nil {
				return err
			}

			a := settings.Augment
			b := settings.Browser
			view := map[string]map[string]interface{}{
				config.SectionIDAugment: {
					"base_url":                a.BaseURL,
					"table_selector":          a.TableSelector,
					"data_providers_selector": a.DataProvidersSelector,
					"spacer_selector":         a.SpacerSelector,
					"timeout":                 a.Timeout.String(),
					"timezone":                a.Timezone,
					"url_patterns":            a.URLPatterns,
					"personal_access_token":   mask(a.PersonalAccessToken),
				},
				config.SectionIDBrowser: {
					"headless":     b.Headless,
					"cdp_endpoint": b.CDPEndpoint,
					"profile_dir":  b.ProfileDir,
					"start_url":    b.StartURL,
					"slow_mo":      b.SlowMo.String(),
				},
			}

			out := cmd.OutOrStdout()
			for _, section := range manager.GetSections() {
				fmt.Fprintf(out, "# %s (%s): %s\n", section.Title(), section.ID(), section.Description())
			}

			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(view); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
