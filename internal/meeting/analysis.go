package meeting

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dshills/designsync/internal/apperr"
)

// FallbackSummary is used when the model reply has neither a JSON block nor
// any prose to summarize.
const FallbackSummary = "The model reply could not be parsed; no summary is available."

const maxFallbackSummary = 500

// Analysis is the model's reading of one meeting.
type Analysis struct {
	Summary        string   `json:"summary"`
	DesignChanges  []string `json:"designChanges"`
	ActionItems    []string `json:"actionItems"`
	ShouldUpdate   bool     `json:"shouldUpdate"`
	UpdatedContent string   `json:"updatedContent"`
	Reasoning      string   `json:"reasoning"`
	// Structured is false when the fields came from the line-scanning
	// fallback rather than a decoded JSON object.
	Structured bool `json:"-"`
}

// ParseAnalysis reads a model reply. It decodes the first balanced JSON
// object; when there is none, or it does not decode, it falls back to
// scanning lines and never fails. The returned error is the PARSE error that
// triggered the fallback, for logging.
func ParseAnalysis(content string) (Analysis, error) {
	a, err := decodeAnalysis(content)
	if err == nil {
		return a, nil
	}
	return heuristicAnalysis(content), err
}

func decodeAnalysis(content string) (Analysis, error) {
	block, ok := firstJSONObject(content)
	if !ok {
		return Analysis{}, apperr.NewParse(nil)
	}
	var a Analysis
	if err := json.Unmarshal([]byte(block), &a); err != nil {
		return Analysis{}, apperr.NewParse(err)
	}
	a.Structured = true
	a.Summary = strings.TrimSpace(a.Summary)
	if a.Summary == "" {
		a.Summary = FallbackSummary
	}
	if a.DesignChanges == nil {
		a.DesignChanges = []string{}
	}
	if a.ActionItems == nil {
		a.ActionItems = []string{}
	}
	return a, nil
}

// firstJSONObject returns the first balanced {...} block in s. Braces inside
// JSON strings are ignored.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	var (
		depth    int
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var (
	checkboxRe = regexp.MustCompile(`\[[ xX]\]`)
	bulletRe   = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)
)

func heuristicAnalysis(content string) Analysis {
	a := Analysis{DesignChanges: []string{}, ActionItems: []string{}}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "action") && !strings.Contains(lower, "todo") && !checkboxRe.MatchString(line) {
			continue
		}
		item := bulletRe.ReplaceAllString(line, "")
		item = strings.TrimSpace(checkboxRe.ReplaceAllString(item, ""))
		if item != "" {
			a.ActionItems = append(a.ActionItems, item)
		}
	}

	a.Summary = firstParagraph(content)
	if a.Summary == "" {
		a.Summary = FallbackSummary
	}
	a.Reasoning = "Model reply was not valid JSON; action items were extracted line by line and the document was left unchanged."
	return a
}

func firstParagraph(content string) string {
	for _, para := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n") {
		p := strings.Join(strings.Fields(para), " ")
		if p == "" {
			continue
		}
		if len(p) > maxFallbackSummary {
			cut := maxFallbackSummary
			for cut > 0 && !utf8.RuneStart(p[cut]) {
				cut--
			}
			p = strings.TrimSpace(p[:cut]) + "..."
		}
		return p
	}
	return ""
}
