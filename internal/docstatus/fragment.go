package docstatus

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"finitefield.org/doc-status/internal/format"
	"finitefield.org/doc-status/internal/manifest"
)

// DefaultIntro is the sentence shown between the admonition title and the table.
const DefaultIntro template.HTML = `<p>The table below records the component version and commit this documentation was last synced from.</p>`

const fragmentHTML = `{{define "status"}}<div class="admonition info doc-status-admonition">
<p class="admonition-title">Documentation built on {{.Built}}</p>
{{.Intro}}
<table class="doc-status-table">
<thead><tr><th>Component</th><th>Version</th><th>Commit</th><th>Commit date</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Icon}}&nbsp;{{.Name}}</td><td><code>{{.Version}}</code></td><td>{{if .URL}}<a href="{{.URL}}" target="_blank" rel="noopener">{{.Commit}}</a>{{else}}{{.Commit}}{{end}}</td><td>{{.Date}}</td></tr>
{{- end}}
</tbody>
</table>
</div>{{end}}
{{define "unavailable"}}<div class="admonition warning">
<p class="admonition-title">Documentation status unavailable</p>
<p>Could not load <code>{{.File}}</code>: {{.Message}}</p>
</div>{{end}}`

var fragments = template.Must(template.New("docstatus").Parse(fragmentHTML))

// icons may carry emoji or small inline markup such as theme icon spans.
var iconPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("span", "i", "img")
	return p
}()

var introPolicy = bluemonday.UGCPolicy()

type statusView struct {
	Built string
	Intro template.HTML
	Rows  []rowView
}

type rowView struct {
	Icon    template.HTML
	Name    string
	Version string
	Commit  string
	URL     string
	Date    string
}

type unavailableView struct {
	File    string
	Message string
}

// FormatDate renders a date-only ISO string as "1 March 2024" in UTC.
func FormatDate(isoDate string) (string, error) {
	return format.ISOLongDate(isoDate)
}

// BuildFragment renders the status admonition for m. Rows keep manifest order.
// Text fields are HTML-escaped; icons are sanitised and kept as markup.
func BuildFragment(m manifest.Manifest, intro template.HTML) (string, error) {
	built, err := FormatDate(m.DocsBuilt)
	if err != nil {
		return "", fmt.Errorf("docs_built: %w", err)
	}
	view := statusView{
		Built: built,
		Intro: intro,
		Rows:  make([]rowView, 0, len(m.Repositories)),
	}
	for i, repo := range m.Repositories {
		date, err := FormatDate(repo.CommitDate)
		if err != nil {
			return "", fmt.Errorf("repositories[%d].commit_date: %w", i, err)
		}
		view.Rows = append(view.Rows, rowView{
			Icon:    template.HTML(iconPolicy.Sanitize(repo.Icon)),
			Name:    repo.Name,
			Version: repo.Version,
			Commit:  repo.Commit,
			URL:     repo.RepoURL,
			Date:    date,
		})
	}
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, "status", view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FallbackFragment renders the warning shown when the manifest cannot be loaded.
func FallbackFragment(fileName string, cause error) string {
	view := unavailableView{File: fileName}
	if cause != nil {
		view.Message = cause.Error()
	}
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, "unavailable", view); err != nil {
		return `<div class="admonition warning"><p class="admonition-title">Documentation status unavailable</p></div>`
	}
	return buf.String()
}

// RenderIntro converts a markdown intro paragraph into sanitised HTML.
// Blank input yields DefaultIntro.
func RenderIntro(markdown string) (template.HTML, error) {
	if strings.TrimSpace(markdown) == "" {
		return DefaultIntro, nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render intro: %w", err)
	}
	return template.HTML(introPolicy.SanitizeBytes(buf.Bytes())), nil
}
