package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"finitefield.org/doc-status/internal/config"
	"finitefield.org/doc-status/internal/docstatus"
	"finitefield.org/doc-status/internal/manifest"
	"finitefield.org/doc-status/internal/middleware"
	"finitefield.org/doc-status/internal/observability"
	"finitefield.org/doc-status/internal/site"
	"finitefield.org/doc-status/internal/testutil"
)

const homePage = `<!doctype html><html><head><title>Docs</title></head>
<body><div id="doc-status"></div></body></html>`

const versions = `{"docs_built":"2024-03-01","repositories":[
{"name":"Core","icon":"🧩","version":"1.4.0","commit":"abc1234","repo_url":"https://example.com/c/abc1234","commit_date":"2024-02-27"}]}`

func newTestRouter(t *testing.T, files fstest.MapFS) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RequestTimeout = 5 * time.Second
	metrics := observability.NewMetrics()
	renderer := docstatus.New(manifest.FSFetcher{FS: files},
		docstatus.WithLogger(zap.NewNop()),
		docstatus.WithRecorder(metrics),
	)
	pages, err := site.NewHandler(files, renderer, "")
	require.NoError(t, err)
	return newRouter(cfg, zap.NewNop(), pages, metrics.Handler())
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"index.html":         &fstest.MapFile{Data: []byte(homePage)},
		"repo-versions.json": &fstest.MapFile{Data: []byte(versions)},
	}
}

func TestHealthzOK(t *testing.T) {
	srv := newTestRouter(t, testFiles())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestHomeRendersStatusTable(t *testing.T) {
	srv := newTestRouter(t, testFiles())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, "Documentation built on 1 March 2024", strings.TrimSpace(doc.Find("#doc-status .admonition-title").Text()))
	require.Equal(t, 1, doc.Find("#doc-status tbody tr").Length())
	href, ok := doc.Find("#doc-status tbody a").Attr("href")
	require.True(t, ok)
	require.Equal(t, "https://example.com/c/abc1234", href)
}

func TestNavigationRequestRendersWarningWithoutManifest(t *testing.T) {
	files := testFiles()
	delete(files, "repo-versions.json")
	srv := newTestRouter(t, files)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.NavigationHeader, "true")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := testutil.ParseHTML(t, rec.Body.Bytes())
	require.Equal(t, 1, doc.Find("#doc-status .admonition.warning").Length())
	require.Contains(t, doc.Find("#doc-status").Text(), "HTTP 404")
}

func TestMetricsCountHomeRenders(t *testing.T) {
	srv := newTestRouter(t, testFiles())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `docstatus_renders_total{outcome="rendered"} 1`)
}

func TestManifestServedWithoutCaching(t *testing.T) {
	srv := newTestRouter(t, testFiles())
	req := httptest.NewRequest(http.MethodGet, "/repo-versions.json", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

func TestServeFetcherReadsSiteDirWithoutPublicURL(t *testing.T) {
	a := &app{cfg: config.Default()}
	a.cfg.Site.Dir = t.TempDir()
	_, ok := a.serveFetcher().(manifest.FSFetcher)
	require.True(t, ok)

	a.cfg.Site.URL = "https://docs.example.com/"
	_, ok = a.serveFetcher().(*manifest.Client)
	require.True(t, ok)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRenderCommandRewritesHomePage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(homePage), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repo-versions.json"), []byte(versions), 0o644))

	out, err := runCLI(t, "render", "--site", dir)
	require.NoError(t, err, out)
	require.Contains(t, out, "rendered")
	require.Contains(t, out, "Done. 1 page(s)")

	raw, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	doc := testutil.ParseHTML(t, raw)
	require.Equal(t, 1, doc.Find("#doc-status table.doc-status-table").Length())
}

func TestRenderCommandReportsFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(homePage), 0o644))

	out, err := runCLI(t, "render", "--site", dir)
	require.Error(t, err)
	require.Contains(t, out, "fallback")
}

func TestFiguresConvertCommand(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.md")
	require.NoError(t, os.WriteFile(page, []byte("![A](a.png)\n*Caption*\n"), 0o644))

	out, err := runCLI(t, "figures", "convert", dir, "--dry-run")
	require.NoError(t, err, out)
	require.Contains(t, out, "[DRY RUN]")
	raw, err := os.ReadFile(page)
	require.NoError(t, err)
	require.Equal(t, "![A](a.png)\n*Caption*\n", string(raw))

	out, err = runCLI(t, "figures", "convert", dir)
	require.NoError(t, err, out)
	require.Contains(t, out, "Done. 1 change(s) in 1 of 1 file(s).")
	raw, err = os.ReadFile(page)
	require.NoError(t, err)
	require.Contains(t, string(raw), "<figcaption>Caption</figcaption>")
}
