// Package sanitize makes untrusted HTML fragments safe to embed in the
// Confluence storage format.
//
// Everything is escaped first; only a fixed allow-list of bare structural
// tags (headings, paragraphs, lists, emphasis, br, hr, div, span) is turned
// back into markup. Anything else, <script> included, stays escaped text.
package sanitize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

const emptyFallback = "<p>No content provided</p>"

var (
	// & followed by an entity is left alone; a bare & is escaped.
	ampersandRe = regexp.MustCompile(`&(#[0-9]+;|#[xX][0-9a-fA-F]+;|[a-zA-Z][a-zA-Z0-9]*;)?`)

	// Allow-listed tags without attributes, optionally self-closed.
	allowedTagRe = regexp.MustCompile(`(?i)&lt;(/?(?:h[1-6]|p|ul|ol|li|strong|em|br|hr|div|span))\s*(/?)&gt;`)

	tagRe = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9]*)[^>]*?(/?)>`)
)

var selfClosing = map[string]bool{"br": true, "hr": true, "img": true}

// HTML sanitizes raw. It never panics; on an internal failure it returns a
// paragraph describing the error.
func HTML(raw string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = "<p>Error processing content: " + html.EscapeString(fmt.Sprint(r)) + "</p>"
		}
	}()

	if strings.TrimSpace(raw) == "" {
		return emptyFallback
	}

	s := ampersandRe.ReplaceAllStringFunc(raw, func(m string) string {
		if m == "&" {
			return "&amp;"
		}
		return m
	})
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")

	s = allowedTagRe.ReplaceAllString(s, "<${1}${2}>")

	if !tagRe.MatchString(s) {
		return "<p>" + s + "</p>"
	}

	if !Balanced(s) {
		s = "<div>" + s + "</div>"
	}
	return s
}

// Balanced reports whether s has as many opening as closing tags, ignoring
// self-closing ones. Nesting order is not checked.
func Balanced(s string) bool {
	var opens, closes int
	for _, m := range tagRe.FindAllStringSubmatch(s, -1) {
		closing, name, selfClose := m[1] == "/", strings.ToLower(m[2]), m[3] == "/"
		switch {
		case closing:
			closes++
		case selfClose || selfClosing[name]:
		default:
			opens++
		}
	}
	return opens == closes
}

// Escape escapes plain text for use inside an element.
func Escape(s string) string {
	return html.EscapeString(s)
}
