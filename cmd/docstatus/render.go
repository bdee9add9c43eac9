package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finitefield.org/doc-status/internal/docstatus"
	"finitefield.org/doc-status/internal/manifest"
	"finitefield.org/doc-status/internal/site"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		siteDir string
		siteURL string
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Renders the status widget into a built site in place",
		Long: `render walks the built site directory, renders the status widget into every
HTML page carrying the mount element, and rewrites those pages. The manifest is
read from the site directory itself.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("site") {
				a.cfg.Site.Dir = siteDir
			}
			if flags.Changed("site-url") {
				a.cfg.Site.URL = siteURL
			}
			dir := a.cfg.Site.Dir
			if _, err := os.Stat(dir); err != nil {
				return fmt.Errorf("site directory '%s' not found: %w", dir, err)
			}

			fetcher := manifest.FSFetcher{FS: os.DirFS(dir), Prefix: sitePrefix(a.cfg.Site.URL)}
			renderer, err := a.newRenderer(fetcher)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintln(out, "(dry run, no files will be written)")
			}
			results, err := site.Prerender(cmd.Context(), dir, renderer, a.cfg.Site.URL, dryRun)
			fallbacks := 0
			for _, res := range results {
				fmt.Fprintf(out, "  %s: %s\n", res.Path, res.Outcome)
				if res.Outcome == docstatus.OutcomeFallback {
					fallbacks++
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Done. %d page(s) rendered under '%s'.\n", len(results), dir)
			if fallbacks > 0 {
				return fmt.Errorf("%d page(s) rendered the unavailable warning", fallbacks)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&siteDir, "site", "", "built site directory")
	cmd.Flags().StringVar(&siteURL, "site-url", "", "public URL of the site")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report pages without writing")
	return cmd
}
