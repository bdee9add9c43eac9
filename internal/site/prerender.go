package site

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"finitefield.org/doc-status/internal/docstatus"
	"finitefield.org/doc-status/internal/dom"
	"finitefield.org/doc-status/internal/lifecycle"
)

// PageResult reports what prerendering did to one HTML file.
type PageResult struct {
	Path    string
	Outcome docstatus.Outcome
	Written bool
}

// Prerender renders the widget into every HTML file under root that carries
// the renderer's mount element, rewriting the files in place unless dryRun.
// Pages without the mount element are left untouched and not reported.
func Prerender(ctx context.Context, root string, renderer *docstatus.Renderer, publicURL string, dryRun bool) ([]PageResult, error) {
	var base *url.URL
	if strings.TrimSpace(publicURL) != "" {
		u, err := url.Parse(publicURL)
		if err != nil {
			return nil, fmt.Errorf("parse public url: %w", err)
		}
		base = u
	}

	marker := []byte(renderer.MountID())
	var results []PageResult
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error accessing path '%s' during walk: %w", p, walkErr)
		}
		if d.IsDir() || !isHTML(d.Name()) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		// cheap pre-filter; the document lookup below is authoritative
		if !bytes.Contains(raw, marker) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		doc, err := dom.Parse(bytes.NewReader(raw), pageLocation(base, filepath.ToSlash(rel)))
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		if _, ok := doc.ElementByID(renderer.MountID()); !ok {
			return nil
		}

		widget := renderer.Attach(docstatus.FromDocument(doc))
		src := lifecycle.NewSource()
		outcome := make(chan docstatus.Outcome, 1)
		src.Subscribe(lifecycle.DocumentReady, func(ctx context.Context) { outcome <- widget.Render(ctx) })
		<-src.Publish(ctx, lifecycle.DocumentReady)

		res := PageResult{Path: p, Outcome: <-outcome}
		if !dryRun {
			var buf bytes.Buffer
			if err := doc.Render(&buf); err != nil {
				return fmt.Errorf("render %s: %w", p, err)
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.WriteFile(p, buf.Bytes(), info.Mode().Perm()); err != nil {
				return fmt.Errorf("write %s: %w", p, err)
			}
			res.Written = true
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, err
	}
	return results, nil
}

// pageLocation maps a site-relative file path to the URL it is served at.
// "guide/index.html" is served as "guide/".
func pageLocation(base *url.URL, rel string) *url.URL {
	p := "/" + rel
	if path.Base(p) == "index.html" {
		p = path.Dir(p)
		if p != "/" {
			p += "/"
		}
	}
	if base == nil {
		return &url.URL{Path: p}
	}
	loc := *base
	loc.Path = joinURLPath(base.Path, p)
	loc.RawPath, loc.RawQuery, loc.Fragment = "", "", ""
	return &loc
}
