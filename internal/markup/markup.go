package markup

import (
	"bytes"
	"log"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)

	// UGC allowlist: common formatting tags, no scripts, no event handlers.
	policy = bluemonday.UGCPolicy()

	// Default goldmark escapes raw HTML blocks, so markdown input cannot
	// smuggle tags past the renderer. The bluemonday pass below still runs
	// on the output as a second guard.
	markdown = goldmark.New()
)

// IsHTML reports whether the value already contains markup, using the
// tag-strip heuristic: if removing every <...> run changes the string, it
// is treated as HTML. A stray "<3" in plain text makes this return true
// only when a closing ">" follows somewhere; "i <3 go" stays markdown.
// That false-negative family is accepted behavior.
func IsHTML(s string) bool {
	return tagPattern.ReplaceAllString(s, "") != s
}

// Normalize turns untrusted description text into sanitized HTML.
// Markdown is rendered first unless the input already looks like HTML;
// both paths end in the same sanitization allowlist.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if IsHTML(s) {
		return strings.TrimSpace(policy.Sanitize(s))
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		// conversion failing on plain text is unexpected; keep the raw
		// value but never skip sanitization
		log.Printf("[markup] markdown convert failed: %v", err)
		return strings.TrimSpace(policy.Sanitize(s))
	}
	return strings.TrimSpace(policy.Sanitize(buf.String()))
}
