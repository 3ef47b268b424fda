package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) WriteReview(w io.Writer, r *ReviewReport) error {
	ew := &errWriter{w: w}

	ew.printf("## Design Review\n\n")

	switch {
	case r.Error != "":
		ew.printf(":warning: The design review for %s could not be completed.\n\n", r.PR)
		ew.printf("```\n%s\n```\n\n", r.Error)
		mdFooter(ew, r)
		return ew.err
	case !r.Success:
		ew.printf(":information_source: %s\n\n", r.Message)
		mdFooter(ew, r)
		return ew.err
	}

	if r.DocumentURL != "" {
		title := r.DocumentTitle
		if title == "" {
			title = "design document"
		}
		ew.printf("Compared against [%s](%s)", mdEscape(title), r.DocumentURL)
		if r.DocumentVersion > 0 {
			ew.printf(" (version %d)", r.DocumentVersion)
		}
		ew.printf(".\n\n")
	}

	if len(r.Files) > 0 {
		ew.printf("<details>\n<summary>Files reviewed (%d)</summary>\n\n", len(r.Files))
		ew.printf("| File | + | - |\n")
		ew.printf("|------|---|---|\n")
		for _, f := range r.Files {
			ew.printf("| `%s` | %d | %d |\n", f.Path, f.Additions, f.Deletions)
		}
		ew.printf("\n</details>\n\n")
	}

	var notes []string
	if r.Redactions > 0 {
		notes = append(notes, fmt.Sprintf("%d secret(s) were redacted before review", r.Redactions))
	}
	if r.Truncated {
		notes = append(notes, "the diff was truncated to the configured size limit")
	}
	if len(notes) > 0 {
		ew.printf("> **Note:** %s.\n\n", strings.Join(notes, "; "))
	}

	ew.println(strings.TrimSpace(r.Review))
	ew.println("")
	mdFooter(ew, r)
	return ew.err
}

func (m *MarkdownWriter) WriteMeeting(w io.Writer, mt *MeetingReport) error {
	ew := &errWriter{w: w}

	ew.printf("## Meeting Analysis\n\n")
	if mt.DocumentURL != "" {
		title := mt.DocumentTitle
		if title == "" {
			title = "design document"
		}
		ew.printf("Design document: [%s](%s)\n\n", mdEscape(title), mt.DocumentURL)
	}

	ew.printf("### Summary\n\n%s\n\n", strings.TrimSpace(mt.Summary))
	mdList(ew, "Design changes", mt.DesignChanges)
	mdList(ew, "Action items", mt.ActionItems)
	if mt.Reasoning != "" {
		ew.printf("### Reasoning\n\n%s\n\n", strings.TrimSpace(mt.Reasoning))
	}

	switch {
	case mt.Updated:
		ew.printf("*Document updated to version %d.*\n", mt.NewVersion)
	case mt.ShouldUpdate && mt.DryRun:
		ew.printf("*Dry run: document update skipped.*\n")
	default:
		ew.printf("*Document not updated.*\n")
	}
	return ew.err
}

// RenderComment returns the pull-request comment body for r.
func RenderComment(r *ReviewReport) string {
	var buf bytes.Buffer
	// bytes.Buffer writes never fail.
	_ = (&MarkdownWriter{}).WriteReview(&buf, r)
	return buf.String()
}

func mdFooter(ew *errWriter, r *ReviewReport) {
	ew.printf("---\n*designsync run %s", r.RunID)
	if r.Model != "" {
		ew.printf(" · %s", r.Model)
	}
	ew.printf("*\n")
}

func mdList(ew *errWriter, title string, items []string) {
	ew.printf("### %s\n\n", title)
	if len(items) == 0 {
		ew.printf("None.\n\n")
		return
	}
	for _, it := range items {
		ew.printf("- %s\n", it)
	}
	ew.println("")
}

// mdEscape escapes characters that would break a markdown link label.
func mdEscape(s string) string {
	r := strings.NewReplacer("[", `\[`, "]", `\]`)
	return r.Replace(s)
}
