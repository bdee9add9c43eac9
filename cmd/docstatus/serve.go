package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/doc-status/internal/config"
	mw "finitefield.org/doc-status/internal/middleware"
	"finitefield.org/doc-status/internal/site"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		siteDir string
		siteURL string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves a built site, rendering the status widget into each page",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if flags.Changed("site") {
				a.cfg.Site.Dir = siteDir
			}
			if flags.Changed("site-url") {
				a.cfg.Site.URL = siteURL
			}
			if err := config.Validate(a.cfg); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&siteDir, "site", "", "built site directory")
	cmd.Flags().StringVar(&siteURL, "site-url", "", "public URL of the site")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	info, err := os.Stat(a.cfg.Site.Dir)
	if err != nil {
		return fmt.Errorf("site directory '%s' not found: %w", a.cfg.Site.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("site path '%s' is not a directory", a.cfg.Site.Dir)
	}

	renderer, err := a.newRenderer(a.serveFetcher())
	if err != nil {
		return err
	}
	pages, err := site.NewHandler(os.DirFS(a.cfg.Site.Dir), renderer, a.cfg.Site.URL)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           newRouter(a.cfg, a.logger, pages, a.metrics.Handler()),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       a.cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	a.logger.Info("docstatus listening",
		zap.String("addr", a.cfg.Server.Addr),
		zap.String("site_dir", a.cfg.Site.Dir),
		zap.String("site_url", a.cfg.Site.URL),
	)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.logger.Info("docstatus stopped")
	return nil
}

func newRouter(cfg config.Config, logger *zap.Logger, pages, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(mw.Navigation)
	r.Use(mw.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Handle("/*", pages)
	return r
}
