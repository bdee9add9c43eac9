// Package site serves and post-processes a built documentation site, rendering
// the status widget into every HTML page that carries its mount element.
package site

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/doc-status/internal/docstatus"
	"finitefield.org/doc-status/internal/dom"
	"finitefield.org/doc-status/internal/lifecycle"
	"finitefield.org/doc-status/internal/middleware"
	"finitefield.org/doc-status/internal/observability"
)

// Handler serves files from a built site. HTML pages are parsed and the
// widget is rendered into them before they are written.
type Handler struct {
	files     fs.FS
	renderer  *docstatus.Renderer
	publicURL *url.URL
	assets    http.Handler
}

// NewHandler builds a site handler. publicURL is the address the site is
// reachable at; when empty it is derived from each request.
func NewHandler(files fs.FS, renderer *docstatus.Renderer, publicURL string) (*Handler, error) {
	h := &Handler{
		files:    files,
		renderer: renderer,
		assets:   middleware.AssetsWithCache(files),
	}
	if strings.TrimSpace(publicURL) != "" {
		u, err := url.Parse(publicURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("site: public url must be absolute")
		}
		h.publicURL = u
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	info, err := fs.Stat(h.files, name)
	if err == nil && info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = path.Join(name, "index.html")
	}
	if !isHTML(name) {
		h.assets.ServeHTTP(w, r)
		return
	}
	h.servePage(w, r, name)
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	raw, err := fs.ReadFile(h.files, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		logger.Error("open page", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Add("Vary", middleware.NavigationHeader)
	if r.Method == http.MethodHead {
		return
	}

	mountID := h.renderer.MountID()
	if !bytes.Contains(raw, []byte(mountID)) {
		writeRaw(w, logger, name, raw)
		return
	}
	doc, err := dom.Parse(bytes.NewReader(raw), h.pageURL(r))
	if err != nil {
		logger.Error("parse page", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if _, ok := doc.ElementByID(mountID); !ok {
		writeRaw(w, logger, name, raw)
		return
	}

	kind := lifecycle.DocumentReady
	if middleware.IsNavigation(ctx) {
		kind = lifecycle.ContentNavigated
	}
	RenderDocument(ctx, h.renderer, doc, kind)

	if err := doc.Render(w); err != nil {
		logger.Warn("write page", zap.String("page", name), zap.Error(err))
	}
}

// writeRaw sends a page without the mount element exactly as built.
func writeRaw(w http.ResponseWriter, logger *zap.Logger, name string, raw []byte) {
	if _, err := w.Write(raw); err != nil {
		logger.Warn("write page", zap.String("page", name), zap.Error(err))
	}
}

// pageURL is the location the widget resolves the manifest against. Without a
// configured public URL it is host-relative: the request's Host header never
// decides where the manifest is fetched from.
func (h *Handler) pageURL(r *http.Request) *url.URL {
	if h.publicURL != nil {
		loc := *h.publicURL
		loc.Path = joinURLPath(h.publicURL.Path, r.URL.Path)
		loc.RawPath = ""
		loc.RawQuery, loc.Fragment = "", ""
		return &loc
	}
	return &url.URL{Path: r.URL.Path}
}

// RenderDocument attaches a widget to doc, publishes kind on a fresh lifecycle
// source and waits for the render to finish.
func RenderDocument(ctx context.Context, renderer *docstatus.Renderer, doc *dom.Document, kind lifecycle.Kind) {
	src := lifecycle.NewSource()
	unbind := docstatus.Bind(src, renderer.Attach(docstatus.FromDocument(doc)))
	defer unbind()
	<-src.Publish(ctx, kind)
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

func joinURLPath(base, p string) string {
	joined := path.Join("/", base, p)
	if strings.HasSuffix(p, "/") && joined != "/" {
		joined += "/"
	}
	return joined
}
