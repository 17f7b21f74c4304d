package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/vgtabs/pkg/augment"
	"github.com/entrhq/vgtabs/pkg/config"
	"github.com/entrhq/vgtabs/pkg/devops"
	"github.com/entrhq/vgtabs/pkg/page"
)

type renderFlags struct {
	input  string
	output string
	url    string
	groups string
}

func newRenderCmd(global *globalFlags) *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Rewrite a saved library page",
		Long: `Read a saved copy of the library page, fetch its variable groups (or read
them from --groups), and write the page back with the rewritten table.`,
		Example: `  vgtabs render --input library.html --groups groups.json > out.html
  AZURE_DEVOPS_EXT_PAT=... vgtabs render --input library.html --output out.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, global, config.Overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			return renderOffline(cmd.Context(), a, flags, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "-", "saved page HTML, - for stdin")
	f.StringVarP(&flags.output, "output", "o", "-", "where to write the result, - for stdout")
	f.StringVar(&flags.url, "url", "", "URL the page was saved from, checked against the view guard (default: the variable groups view)")
	f.StringVar(&flags.groups, "groups", "", "variable groups API response (JSON) to use instead of calling the API")

	return cmd
}

func renderOffline(ctx context.Context, a *app, flags *renderFlags, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if flags.input != "-" {
		f, err := os.Open(flags.input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	url := flags.url
	if url == "" {
		// Saved pages carry no location; assume the variable groups view.
		url = a.settings.Augment.BaseURL + "/_library?itemType=VariableGroups"
	}

	doc, err := page.ParseHTML(in, url)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", flags.input, err)
	}

	var fetcher augment.Fetcher = a.client(nil)
	if flags.groups != "" {
		fetcher = fileFetcher{path: flags.groups}
	}

	pipeline, err := a.newPipeline(doc, fetcher)
	if err != nil {
		return err
	}
	if _, err := pipeline.RunOnce(ctx); err != nil {
		return err
	}

	out, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("failed to serialize page: %w", err)
	}

	if flags.output == "-" {
		return writeOut(stdout, out)
	}
	if err := os.WriteFile(flags.output, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	a.log.Infof("Wrote %s", flags.output)
	return nil
}

// fileFetcher serves a saved variable groups API response.
type fileFetcher struct {
	path string
}

func (f fileFetcher) VariableGroups(_ context.Context, _ devops.PageContext) ([]devops.VariableGroup, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open groups file: %w", err)
	}
	defer file.Close()

	groups, err := devops.DecodeVariableGroups(file)
	if err != nil {
		return nil, err
	}
	devops.SortByName(groups)
	return groups, nil
}
