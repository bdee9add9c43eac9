package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/doc-status/internal/config"
	"finitefield.org/doc-status/internal/docstatus"
	"finitefield.org/doc-status/internal/manifest"
	"finitefield.org/doc-status/internal/observability"
)

// app carries state resolved once by the root command for its subcommands.
type app struct {
	configFile string
	logLevel   string

	cfg     config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "docstatus",
		Short: "Renders the documentation status widget",
		Long: `docstatus renders the documentation status table from repo-versions.json
into the home page of a built documentation site, either while serving the
site or as a post-build step, and maintains figure markup in the markdown sources.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(a), newRenderCmd(a), newFiguresCmd())
	return root
}

func (a *app) init() error {
	var opts []config.Option
	if a.configFile != "" {
		opts = append(opts, config.WithFile(a.configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	a.metrics = observability.NewMetrics()
	return nil
}

// newRenderer wires the widget renderer for fetcher using the widget config.
func (a *app) newRenderer(fetcher manifest.Fetcher) (*docstatus.Renderer, error) {
	intro, err := docstatus.RenderIntro(a.cfg.Widget.Intro)
	if err != nil {
		return nil, err
	}
	return docstatus.New(fetcher,
		docstatus.WithLogger(a.logger),
		docstatus.WithMountID(a.cfg.Widget.MountID),
		docstatus.WithManifestName(a.cfg.Widget.ManifestName),
		docstatus.WithIntro(intro),
		docstatus.WithRecorder(a.metrics),
	), nil
}

// serveFetcher fetches over HTTP only when a public site URL is configured;
// otherwise the manifest is read from the site directory being served.
func (a *app) serveFetcher() manifest.Fetcher {
	if a.cfg.Site.URL == "" {
		return manifest.FSFetcher{FS: os.DirFS(a.cfg.Site.Dir)}
	}
	return manifest.NewClient(&http.Client{Timeout: a.cfg.Widget.FetchTimeout})
}

// sitePrefix is the path component of the public site URL.
func sitePrefix(publicURL string) string {
	if publicURL == "" {
		return ""
	}
	u, err := url.Parse(publicURL)
	if err != nil {
		return ""
	}
	return u.Path
}
