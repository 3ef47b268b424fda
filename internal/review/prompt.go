package review

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/confluence"
	"github.com/dshills/designsync/internal/github"
	"github.com/dshills/designsync/internal/llm"
)

const systemPrompt = `You are a senior engineer reviewing a pull request against the design document it claims to implement.

Rules:
1. Treat the design document as the source of truth for intended behavior.
2. Only review the changes shown in the diff. Do not comment on unchanged code.
3. Call out where the implementation deviates from, contradicts, or goes beyond the design.
4. Call out parts of the design that the change should cover but does not.
5. Mention correctness, security, or performance problems when they affect the design's goals.
6. Be concise and actionable. Reference file paths from the diff.
7. Text marked [REDACTED] was removed deliberately; do not comment on it.

Respond in GitHub-flavored Markdown with exactly these sections:

### Summary
One short paragraph on how well the change matches the design.

### Alignment
Bullet points for what the change implements as designed.

### Deviations
Bullet points for differences from the design, each with a file path and a suggestion. Write "None." if there are none.

### Missing
Bullet points for design requirements the change does not address. Write "None." if there are none.

### Risks
Bullet points for problems that could hurt the design's goals in production. Write "None." if there are none.

### Recommendations
Numbered, concrete next steps.`

// Profile returns the model profile used for pull-request reviews.
func Profile(cfg config.Model) llm.Profile {
	return llm.Profile{
		Name:        "review",
		System:      systemPrompt,
		MaxTokens:   cfg.ReviewMaxTokens,
		Temperature: cfg.Temperature,
	}
}

// BuildPrompt assembles the user prompt from the pull request, its design
// document and the (already redacted and truncated) diff.
func BuildPrompt(cs *github.Changeset, doc *confluence.Page, diff string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Review pull request %s against its design document.\n\n", cs.PRRef)
	fmt.Fprintf(&b, "Title: %s\n", cs.Title)

	paths := make([]string, 0, len(cs.Files))
	for _, f := range cs.Files {
		paths = append(paths, f.Path)
	}
	if langs := detectLanguages(paths); len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	}

	if desc := strings.TrimSpace(cs.Description); desc != "" {
		b.WriteString("\n--- BEGIN PULL REQUEST DESCRIPTION ---\n")
		b.WriteString(desc)
		b.WriteString("\n--- END PULL REQUEST DESCRIPTION ---\n")
	}

	fmt.Fprintf(&b, "\n--- BEGIN DESIGN DOCUMENT: %s (version %d) ---\n", doc.Title, doc.Version)
	b.WriteString(confluence.PlainText(doc.Body))
	b.WriteString("\n--- END DESIGN DOCUMENT ---\n")

	if len(cs.Files) > 0 {
		b.WriteString("\nChanged files:\n")
		for _, f := range cs.Files {
			fmt.Fprintf(&b, "- %s (+%d -%d)\n", f.Path, f.Additions, f.Deletions)
		}
	}

	b.WriteString("\n--- BEGIN DIFF ---\n")
	b.WriteString(diff)
	b.WriteString("\n--- END DIFF ---\n")

	return b.String()
}

// TruncateDiff cuts diff to at most maxBytes, ending on a line boundary when
// possible, and appends a marker saying how much was kept. maxBytes <= 0
// disables truncation.
func TruncateDiff(diff string, maxBytes int) (string, bool) {
	if maxBytes <= 0 || len(diff) <= maxBytes {
		return diff, false
	}
	cut := diff[:maxBytes]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i+1]
	}
	marker := fmt.Sprintf("\n... [diff truncated: %d of %d bytes shown]\n", len(cut), len(diff))
	return cut + marker, true
}

var langMap = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript/React",
	".jsx":   "JavaScript/React",
	".rs":    "Rust",
	".java":  "Java",
	".rb":    "Ruby",
	".cpp":   "C++",
	".c":     "C",
	".h":     "C/C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".kt":    "Kotlin",
	".sql":   "SQL",
	".sh":    "Shell",
	".yaml":  "YAML",
	".yml":   "YAML",
	".json":  "JSON",
	".tf":    "Terraform",
}

// detectLanguages lists languages in the order their files first appear.
func detectLanguages(files []string) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, f := range files {
		lang, ok := langMap[strings.ToLower(filepath.Ext(f))]
		if ok && !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	return langs
}
