// Package docstatus renders the documentation status widget: it fetches the
// repo-versions manifest and injects a status table (or a warning) into the
// page's mount element.
package docstatus

import (
	"context"
	"html/template"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"finitefield.org/doc-status/internal/dom"
	"finitefield.org/doc-status/internal/lifecycle"
	"finitefield.org/doc-status/internal/manifest"
	"finitefield.org/doc-status/internal/observability"
)

// DefaultMountID is the id of the element the widget renders into.
const DefaultMountID = "doc-status"

// Mount is the element receiving the widget markup.
type Mount interface {
	SetInnerHTML(fragment string) error
}

// Page is the document a widget is attached to.
type Page interface {
	Mount(id string) (Mount, bool)
	BaseHref() (string, bool)
	Location() *url.URL
}

// FromDocument adapts a parsed document to Page.
func FromDocument(doc *dom.Document) Page {
	return documentPage{doc: doc}
}

type documentPage struct {
	doc *dom.Document
}

func (p documentPage) Mount(id string) (Mount, bool) {
	el, ok := p.doc.ElementByID(id)
	if !ok {
		return nil, false
	}
	return el, true
}

func (p documentPage) BaseHref() (string, bool) { return p.doc.BaseHref() }

func (p documentPage) Location() *url.URL { return p.doc.Location() }

// Outcome describes what a single render invocation did.
type Outcome int

const (
	// OutcomeSkipped means the page has no mount element.
	OutcomeSkipped Outcome = iota
	// OutcomeRendered means the status table was written.
	OutcomeRendered
	// OutcomeFallback means the warning admonition was written.
	OutcomeFallback
	// OutcomeStale means a newer invocation had already written its result.
	OutcomeStale
	// OutcomeFailed means the mount element rejected the markup.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRendered:
		return "rendered"
	case OutcomeFallback:
		return "fallback"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Renderer holds the collaborators shared by every widget.
type Renderer struct {
	fetcher  manifest.Fetcher
	logger   *zap.Logger
	mountID  string
	fileName string
	intro    template.HTML
	recorder Recorder
}

// Recorder observes completed renders.
type Recorder interface {
	ObserveRender(outcome string, elapsed time.Duration)
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithLogger sets the fallback logger used when the render context carries none.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMountID overrides the mount element id.
func WithMountID(id string) Option {
	return func(r *Renderer) {
		if id = strings.TrimSpace(id); id != "" {
			r.mountID = id
		}
	}
}

// WithManifestName overrides the manifest file name appended to the base URL.
func WithManifestName(name string) Option {
	return func(r *Renderer) {
		if name = strings.Trim(strings.TrimSpace(name), "/"); name != "" {
			r.fileName = name
		}
	}
}

// WithIntro replaces the paragraph shown above the table.
func WithIntro(intro template.HTML) Option {
	return func(r *Renderer) {
		if strings.TrimSpace(string(intro)) != "" {
			r.intro = intro
		}
	}
}

// WithRecorder reports every render outcome and its duration to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Renderer) {
		r.recorder = rec
	}
}

// New builds a Renderer fetching manifests through fetcher.
func New(fetcher manifest.Fetcher, opts ...Option) *Renderer {
	r := &Renderer{
		fetcher:  fetcher,
		logger:   zap.NewNop(),
		mountID:  DefaultMountID,
		fileName: manifest.DefaultFileName,
		intro:    DefaultIntro,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MountID returns the id of the element widgets render into.
func (r *Renderer) MountID() string { return r.mountID }

// ManifestName returns the manifest file name.
func (r *Renderer) ManifestName() string { return r.fileName }

// Attach binds the renderer to page.
func (r *Renderer) Attach(page Page) *Widget {
	return &Widget{renderer: r, page: page}
}

// Widget is a Renderer bound to one page. Render may be called any number of
// times, concurrently; the last-started invocation that completes wins.
type Widget struct {
	renderer *Renderer
	page     Page
	seq      atomic.Uint64

	mu        sync.Mutex
	committed uint64
}

// Render fetches the manifest and replaces the mount element's content with
// the status table, or with a warning when loading fails. Failures never
// propagate; the outcome is returned for logging and tests.
func (w *Widget) Render(ctx context.Context) Outcome {
	start := time.Now()
	outcome := w.render(ctx)
	if rec := w.renderer.recorder; rec != nil {
		rec.ObserveRender(outcome.String(), time.Since(start))
	}
	return outcome
}

func (w *Widget) render(ctx context.Context) Outcome {
	r := w.renderer
	mount, ok := w.page.Mount(r.mountID)
	if !ok {
		return OutcomeSkipped
	}
	seq := w.seq.Add(1)

	base, _ := w.page.BaseHref()
	manifestURL := ResolveManifestURL(w.page.Location(), base, r.fileName)
	logger := r.loggerFor(ctx).With(
		zap.String("manifest_url", manifestURL),
		zap.Uint64("render_seq", seq),
	)

	outcome := OutcomeRendered
	fragment, err := r.load(ctx, manifestURL)
	if err != nil {
		logger.Warn("doc status unavailable", zap.Error(err))
		fragment = FallbackFragment(r.fileName, err)
		outcome = OutcomeFallback
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq < w.committed {
		logger.Debug("discarding stale doc status render", zap.Uint64("committed_seq", w.committed))
		return OutcomeStale
	}
	w.committed = seq
	if err := mount.SetInnerHTML(fragment); err != nil {
		logger.Error("write doc status", zap.Error(err))
		return OutcomeFailed
	}
	logger.Debug("doc status rendered", zap.Stringer("outcome", outcome))
	return outcome
}

func (r *Renderer) load(ctx context.Context, manifestURL string) (string, error) {
	m, err := r.fetcher.Fetch(ctx, manifestURL)
	if err != nil {
		return "", err
	}
	return BuildFragment(m, r.intro)
}

func (r *Renderer) loggerFor(ctx context.Context) *zap.Logger {
	if logger, ok := observability.LoggerFromContext(ctx); ok {
		return logger
	}
	return r.logger
}

// ResolveManifestURL computes the manifest address: the base href (or "/")
// resolved against the document location, without a trailing slash, followed
// by "/" and fileName.
func ResolveManifestURL(location *url.URL, baseHref, fileName string) string {
	if strings.TrimSpace(baseHref) == "" {
		baseHref = "/"
	}
	ref, err := url.Parse(strings.TrimSpace(baseHref))
	if err != nil {
		ref = &url.URL{Path: "/"}
	}
	if location == nil {
		location = &url.URL{Path: "/"}
	}
	resolved := location.ResolveReference(ref)
	resolved.RawQuery = ""
	resolved.Fragment = ""
	return strings.TrimSuffix(resolved.String(), "/") + "/" + fileName
}

// Bind subscribes the widget to both page lifecycle events and returns a
// function cancelling both subscriptions.
func Bind(src *lifecycle.Source, w *Widget) (unbind func()) {
	handler := func(ctx context.Context) { w.Render(ctx) }
	offReady := src.Subscribe(lifecycle.DocumentReady, handler)
	offNavigated := src.Subscribe(lifecycle.ContentNavigated, handler)
	return func() {
		offReady()
		offNavigated()
	}
}
