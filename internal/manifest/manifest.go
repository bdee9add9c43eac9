package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultFileName is the manifest file served at the site root.
const DefaultFileName = "repo-versions.json"

// Manifest describes which component versions and commits the docs were last synced from.
type Manifest struct {
	// DocsBuilt is the date-only ISO string of the last documentation build.
	DocsBuilt    string
	Repositories []RepoEntry
}

// RepoEntry is a single component row. Order within Manifest.Repositories is display order.
type RepoEntry struct {
	Name       string
	Icon       string
	Version    string
	Commit     string
	RepoURL    string
	CommitDate string
}

// HasLink reports whether the commit should be rendered as a hyperlink.
func (e RepoEntry) HasLink() bool {
	return e.RepoURL != ""
}

// Fetcher loads a manifest from a resolved URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Manifest, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, rawURL string) (Manifest, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (Manifest, error) {
	return f(ctx, rawURL)
}

// ErrNotFound matches a StatusError carrying 404.
var ErrNotFound = errors.New("manifest: not found")

// StatusError is returned when the manifest endpoint answers with a non-success status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}

// Decode reads a JSON manifest from r.
func Decode(r io.Reader) (Manifest, error) {
	var payload remoteManifest
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return Manifest{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return mapRemoteManifest(payload), nil
}

func mapRemoteManifest(raw remoteManifest) Manifest {
	m := Manifest{
		DocsBuilt:    strings.TrimSpace(raw.DocsBuilt),
		Repositories: make([]RepoEntry, 0, len(raw.Repositories)),
	}
	for _, repo := range raw.Repositories {
		entry := RepoEntry{
			Name:       strings.TrimSpace(repo.Name),
			Icon:       repo.Icon,
			Version:    strings.TrimSpace(repo.Version),
			Commit:     strings.TrimSpace(repo.Commit),
			CommitDate: strings.TrimSpace(repo.CommitDate),
		}
		if repo.RepoURL != nil {
			entry.RepoURL = strings.TrimSpace(*repo.RepoURL)
		}
		m.Repositories = append(m.Repositories, entry)
	}
	return m
}

type remoteManifest struct {
	DocsBuilt    string       `json:"docs_built"`
	Repositories []remoteRepo `json:"repositories"`
}

type remoteRepo struct {
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Version    string  `json:"version"`
	Commit     string  `json:"commit"`
	RepoURL    *string `json:"repo_url"`
	CommitDate string  `json:"commit_date"`
}
