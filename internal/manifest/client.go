package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// Client fetches manifests over HTTP. Every call issues a fresh request.
type Client struct {
	http *http.Client
}

// NewClient builds an HTTP manifest client. A nil httpClient gets a 5s timeout client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{http: httpClient}
}

// Fetch GETs rawURL and decodes the body as a manifest.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Manifest{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := c.http.Do(req)
	if err != nil {
		return Manifest{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Manifest{}, &StatusError{Code: resp.StatusCode}
	}
	return Decode(resp.Body)
}

// FSFetcher resolves manifest URLs against a built site on disk.
// Only the URL path is used; Prefix is the site's mount path (e.g. "/docs") and is
// stripped first when the path lies under it.
type FSFetcher struct {
	FS     fs.FS
	Prefix string
}

// Fetch reads the file addressed by rawURL's path. A missing file reports HTTP 404.
func (f FSFetcher) Fetch(ctx context.Context, rawURL string) (Manifest, error) {
	if err := ctx.Err(); err != nil {
		return Manifest{}, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Manifest{}, err
	}
	name := path.Clean("/" + u.Path)
	if prefix := strings.TrimRight(path.Clean("/"+f.Prefix), "/"); prefix != "" {
		if name == prefix {
			name = "/"
		} else if strings.HasPrefix(name, prefix+"/") {
			name = name[len(prefix):]
		}
	}
	name = strings.TrimPrefix(name, "/")
	if name == "" || !fs.ValidPath(name) {
		return Manifest{}, &StatusError{Code: http.StatusNotFound}
	}
	file, err := f.FS.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, &StatusError{Code: http.StatusNotFound}
		}
		return Manifest{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()
	return Decode(file)
}
