package confluence

import "regexp"

// Tried in order; the first match wins.
var pageIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/pages/(\d+)(?:[/?#]|$)`),
	regexp.MustCompile(`[?&]pageId=(\d+)`),
	regexp.MustCompile(`/(\d+)/[^/?#]+/?$`),
}

// ExtractPageID pulls the numeric page ID out of a Confluence page URL.
func ExtractPageID(url string) (string, bool) {
	for _, re := range pageIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}
