// Package marker defines the sentinel strings that bound a hub-managed
// region inside an otherwise user-owned file, and operations to find,
// strip, and build such regions.
package marker

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Style selects the sentinel pair appropriate for a target file.
type Style int

const (
	// StyleLine uses line-comment sentinels (shell, yaml, conf, ...).
	StyleLine Style = iota
	// StyleMarkup uses HTML-comment sentinels (markdown, html, xml).
	StyleMarkup
)

const (
	lineStart   = "# === graft:start ==="
	lineEnd     = "# === graft:end ==="
	markupStart = "<!-- graft:start -->"
	markupEnd   = "<!-- graft:end -->"

	// HookSentinel identifies a hook script as hub-managed. Hook files
	// embed it themselves; it is matched verbatim at the start of a line.
	HookSentinel = "# graft:managed"
)

// markupExtensions are file extensions that take HTML-comment sentinels.
var markupExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".xml":      true,
	".svg":      true,
}

// Sentinels must start their own line. The region body is everything
// between the start sentinel's line break and the end sentinel's line.
var (
	lineRegion   = compileRegion(lineStart, lineEnd)
	markupRegion = compileRegion(markupStart, markupEnd)
)

func compileRegion(start, end string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?ms)^` + regexp.QuoteMeta(start) + `[ \t]*\r?\n(.*?)^` + regexp.QuoteMeta(end) + `[ \t]*(?:\r?\n|\z)`,
	)
}

// StyleFor returns the sentinel style for a target file based on its
// extension.
func StyleFor(path string) Style {
	if markupExtensions[strings.ToLower(filepath.Ext(path))] {
		return StyleMarkup
	}
	return StyleLine
}

// Start returns the start sentinel for the style.
func (s Style) Start() string {
	if s == StyleMarkup {
		return markupStart
	}
	return lineStart
}

// End returns the end sentinel for the style.
func (s Style) End() string {
	if s == StyleMarkup {
		return markupEnd
	}
	return lineEnd
}

func (s Style) region() *regexp.Regexp {
	if s == StyleMarkup {
		return markupRegion
	}
	return lineRegion
}

// Wrap surrounds content with the style's sentinels. The content is
// normalized to end with exactly one newline; the returned block ends
// with a newline after the end sentinel.
func Wrap(s Style, content string) string {
	return s.Start() + "\n" + Normalize(content) + s.End() + "\n"
}

// Normalize ensures content ends with exactly one trailing newline.
// Empty content stays empty.
func Normalize(content string) string {
	if content == "" {
		return ""
	}
	return strings.TrimRight(content, "\n") + "\n"
}

// Find returns the body of the first marked region in text along with the
// total number of regions present.
func Find(s Style, text string) (body string, count int, found bool) {
	matches := s.region().FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", 0, false
	}
	return matches[0][1], len(matches), true
}

// Strip removes every marked region from text and returns the remainder
// and the number of regions removed.
func Strip(s Style, text string) (string, int) {
	count := len(s.region().FindAllStringIndex(text, -1))
	if count == 0 {
		return text, 0
	}
	return s.region().ReplaceAllString(text, ""), count
}
