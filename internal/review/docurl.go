package review

import (
	"regexp"
	"strings"
)

// MissingDesignDocMessage is posted on pull requests whose description does
// not link a design document.
const MissingDesignDocMessage = "No design document is linked to this pull request, so the design review was skipped. " +
	"Add a line such as `confluence_design_document_url: https://<site>.atlassian.net/wiki/spaces/<SPACE>/pages/<id>` " +
	"to the description and push again."

// Keys are tried in order; the first one present in the description wins.
var docKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)confluence_design_document_url\**\s*[:=]\s*(.+)`),
	regexp.MustCompile(`(?i)confluence[ _-]+design[ _-]+document[ _-]+url\**\s*[:=]\s*(.+)`),
	regexp.MustCompile(`(?i)design[ _-]+document[ _-]+url\**\s*[:=]\s*(.+)`),
	regexp.MustCompile(`(?i)confluence[ _-]+url\**\s*[:=]\s*(.+)`),
}

// A value is a Markdown link, an angle-bracketed URL or a bare URL.
var docValueRe = regexp.MustCompile(`^\s*(?:\[[^\]]*\]\((https?://[^)\s]+)\)|<(https?://[^>\s]+)>|(https?://[^\s<>()\[\]]+))`)

// ExtractDesignDocURL finds the design document link in a pull request
// description.
func ExtractDesignDocURL(description string) (string, bool) {
	for _, re := range docKeyPatterns {
		for _, m := range re.FindAllStringSubmatch(description, -1) {
			v := docValueRe.FindStringSubmatch(m[1])
			if v == nil {
				continue
			}
			for _, g := range v[1:] {
				if g != "" {
					return strings.TrimRight(g, ".,;"), true
				}
			}
		}
	}
	return "", false
}
