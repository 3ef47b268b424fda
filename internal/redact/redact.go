package redact

import (
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for secrets that tend to leak into
// diffs and meeting transcripts.
var secretPatterns = []*regexp.Regexp{
	// key/secret assignments with a long opaque value
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret|client[_-]?secret)\s*[:=]\s*["']?[A-Za-z0-9/+=_-]{20,}["']?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key\s*[:=]\s*["']?[A-Za-z0-9/+=]{40}["']?`),
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["'][^"']{8,}["']`),
	regexp.MustCompile(`(?i)(Bearer|Basic)\s+[A-Za-z0-9._~+/=-]{20,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+([A-Z]+\s+)?PRIVATE KEY-----`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
	// Atlassian API tokens
	regexp.MustCompile(`ATATT3[A-Za-z0-9_=-]{20,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`sk-(proj-)?[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)(postgres|mysql|mongodb(\+srv)?|redis)://[^:\s]+:[^@\s]+@`),
}

// Secrets replaces detected secrets in text and reports how many
// replacements were made.
func Secrets(text string) (string, int) {
	var n int
	for _, pat := range secretPatterns {
		text = pat.ReplaceAllStringFunc(text, func(string) string {
			n++
			return placeholder
		})
	}
	return text, n
}

// ShouldRedactPath reports whether path matches any of the glob patterns.
// A leading "**/" matches at any depth.
func ShouldRedactPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, path); err == nil && ok {
			return true
		}
		if trimmed, found := strings.CutPrefix(pattern, "**/"); found {
			if ok, err := filepath.Match(trimmed, filepath.Base(path)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// Diff redacts a unified diff. File sections whose path matches
// sensitivePaths are replaced wholesale; the rest go through Secrets.
func Diff(diff string, sensitivePaths []string) (string, int) {
	sections := splitDiff(diff)
	var (
		b     strings.Builder
		total int
	)
	for _, sec := range sections {
		if path := sectionPath(sec); path != "" && ShouldRedactPath(path, sensitivePaths) {
			b.WriteString(headerLine(sec))
			b.WriteString(placeholder + " (file content redacted by path policy)\n")
			total++
			continue
		}
		out, n := Secrets(sec)
		total += n
		b.WriteString(out)
	}
	return b.String(), total
}

// splitDiff cuts a diff into sections starting at each "diff --git" line.
// Text before the first header is its own section.
func splitDiff(diff string) []string {
	var sections []string
	start := 0
	for i := 0; i < len(diff); {
		end := strings.IndexByte(diff[i:], '\n')
		next := len(diff)
		if end >= 0 {
			next = i + end + 1
		}
		if strings.HasPrefix(diff[i:], "diff --git ") && i > start {
			sections = append(sections, diff[start:i])
			start = i
		}
		i = next
	}
	if start < len(diff) {
		sections = append(sections, diff[start:])
	}
	return sections
}

func headerLine(section string) string {
	if i := strings.IndexByte(section, '\n'); i >= 0 {
		return section[:i+1]
	}
	return section + "\n"
}

// sectionPath returns the b/ path of a "diff --git a/x b/x" header.
func sectionPath(section string) string {
	header := strings.TrimSuffix(headerLine(section), "\n")
	rest, ok := strings.CutPrefix(header, "diff --git ")
	if !ok {
		return ""
	}
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return rest[i+3:]
	}
	return ""
}
