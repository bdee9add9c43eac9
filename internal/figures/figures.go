// Package figures rewrites figure markup in the documentation's markdown
// sources: image-plus-italic-caption pairs become <figure markdown> blocks,
// and bare <figure> tags receive the theme's full-width style.
package figures

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	// image followed by *caption* on the same line
	sameLinePattern = regexp.MustCompile(`(!\[[^\]]*\]\([^)]*\))[ \t]*\*([^*\n]+)\*`)
	// image on one line, *caption* on the very next line
	nextLinePattern = regexp.MustCompile(`(!\[[^\]]*\]\([^)]*\))[ \t]*\n\*([^*\n]+)\*`)
	figureTag       = regexp.MustCompile(`<figure([^>]*)>`)
)

const (
	figureReplacement = "<figure markdown>\n  ${1}\n  <figcaption>${2}</figcaption>\n</figure>"
	figureStyle       = `style="width:100%; margin:0;"`
)

// Convert rewrites image+caption pairs into figure blocks and returns the new
// text with the number of replacements. The next-line variant is applied
// first so a caption on its own line is not split by the same-line pass.
func Convert(text string) (string, int) {
	count := 0
	result := nextLinePattern.ReplaceAllStringFunc(text, func(m string) string {
		count++
		return nextLinePattern.ReplaceAllString(m, figureReplacement)
	})
	result = sameLinePattern.ReplaceAllStringFunc(result, func(m string) string {
		count++
		return sameLinePattern.ReplaceAllString(m, figureReplacement)
	})
	return result, count
}

// FixStyles adds the full-width style to every <figure> tag lacking a style
// attribute and returns the new text with the number of tags changed.
func FixStyles(text string) (string, int) {
	count := 0
	result := figureTag.ReplaceAllStringFunc(text, func(tag string) string {
		attrs := figureTag.FindStringSubmatch(tag)[1]
		if strings.Contains(attrs, "style=") {
			return tag
		}
		count++
		return "<figure" + attrs + " " + figureStyle + ">"
	})
	return result, count
}

// Transform is a text rewrite returning the new text and a change count.
type Transform func(string) (string, int)

// Summary totals a directory run.
type Summary struct {
	Scanned      int
	Files        int
	Replacements int
}

// ProcessDir applies transform to every .md file under root in lexical order.
// Changed files are rewritten unless dryRun; one line per changed file is
// written to out.
func ProcessDir(root string, transform Transform, dryRun bool, out io.Writer) (Summary, error) {
	var summary Summary
	info, err := os.Stat(root)
	if err != nil {
		return summary, fmt.Errorf("directory '%s' not found: %w", root, err)
	}
	if !info.IsDir() {
		return summary, fmt.Errorf("'%s' is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	sort.Strings(files)
	summary.Scanned = len(files)

	for _, p := range files {
		raw, err := os.ReadFile(p)
		if err != nil {
			return summary, fmt.Errorf("read %s: %w", p, err)
		}
		converted, n := transform(string(raw))
		if n == 0 {
			continue
		}
		if dryRun {
			fmt.Fprintf(out, "  [DRY RUN] %s: %d change(s)\n", p, n)
		} else {
			st, err := os.Stat(p)
			if err != nil {
				return summary, err
			}
			if err := os.WriteFile(p, []byte(converted), st.Mode().Perm()); err != nil {
				return summary, fmt.Errorf("write %s: %w", p, err)
			}
			fmt.Fprintf(out, "  %s: %d change(s)\n", p, n)
		}
		summary.Files++
		summary.Replacements += n
	}
	return summary, nil
}
