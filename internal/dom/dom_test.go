package dom

import (
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/doc-status/internal/testutil"
)

const page = `<!doctype html>
<html><head><base href="/en/"><title>Home</title></head>
<body><main><div id="doc-status"><p>loading</p></div><p id="other">x</p></main></body></html>`

func TestElementByID(t *testing.T) {
	doc, err := ParseString(page, nil)
	require.NoError(t, err)

	el, ok := doc.ElementByID("doc-status")
	require.True(t, ok)
	require.Equal(t, "<p>loading</p>", el.InnerHTML())

	_, ok = doc.ElementByID("missing")
	require.False(t, ok)
	_, ok = doc.ElementByID("")
	require.False(t, ok)
}

func TestBaseHref(t *testing.T) {
	doc, err := ParseString(page, nil)
	require.NoError(t, err)
	href, ok := doc.BaseHref()
	require.True(t, ok)
	require.Equal(t, "/en/", href)

	doc, err = ParseString(`<html><head><base target="_blank"></head><body></body></html>`, nil)
	require.NoError(t, err)
	_, ok = doc.BaseHref()
	require.False(t, ok, "base without href must be ignored")
}

func TestLocationDefaultsToRoot(t *testing.T) {
	doc, err := ParseString(page, nil)
	require.NoError(t, err)
	require.Equal(t, "/", doc.Location().Path)

	loc, _ := url.Parse("https://docs.example.com/fr/guide/")
	doc, err = ParseString(page, loc)
	require.NoError(t, err)
	got := doc.Location()
	got.Path = "/mutated"
	require.Equal(t, "/fr/guide/", doc.Location().Path, "Location must return a copy")
}

func TestSetInnerHTMLReplacesChildren(t *testing.T) {
	doc, err := ParseString(page, nil)
	require.NoError(t, err)
	el, _ := doc.ElementByID("doc-status")

	require.NoError(t, el.SetInnerHTML(`<table><tbody><tr><td>a</td></tr></tbody></table>`))
	require.NoError(t, el.SetInnerHTML(`<table><tbody><tr><td>b</td></tr></tbody></table>`))

	q := testutil.ParseHTML(t, []byte(doc.String()))
	require.Equal(t, 1, q.Find("#doc-status table").Length())
	require.Equal(t, "b", q.Find("#doc-status td").Text())
	require.Equal(t, 0, q.Find("#doc-status p").Length())
	require.Equal(t, "x", q.Find("#other").Text(), "siblings must be untouched")
}

func TestConcurrentSetInnerHTML(t *testing.T) {
	doc, err := ParseString(page, nil)
	require.NoError(t, err)
	el, _ := doc.ElementByID("doc-status")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = el.SetInnerHTML(`<span>v</span>`)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, strings.Count(el.InnerHTML(), "<span>"))
}
