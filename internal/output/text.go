package output

import (
	"fmt"
	"io"
	"strings"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) WriteReview(w io.Writer, r *ReviewReport) error {
	ew := &errWriter{w: w}

	ew.printf("designsync review: %s", r.PR)
	if r.PRTitle != "" {
		ew.printf(" (%s)", r.PRTitle)
	}
	ew.println("")
	if r.DocumentURL != "" {
		ew.printf("Design document: %s\n", docLabel(r.DocumentTitle, r.DocumentURL, r.DocumentVersion))
	}
	ew.println(strings.Repeat("─", 60))

	switch {
	case r.Error != "":
		ew.printf("Review failed: %s\n", r.Error)
		return ew.err
	case !r.Success:
		ew.printf("Review not run: %s\n", r.Message)
		return ew.err
	}

	ew.printf("Files: %d changed\n", len(r.Files))
	for _, f := range r.Files {
		ew.printf("  %-50s +%d -%d\n", f.Path, f.Additions, f.Deletions)
	}
	if r.Redactions > 0 {
		ew.printf("Redacted %d secret(s) before sending the diff\n", r.Redactions)
	}
	if r.Truncated {
		ew.println("Diff was truncated to the configured size limit")
	}
	ew.println(strings.Repeat("─", 60))
	ew.println(r.Review)
	ew.println(strings.Repeat("─", 60))

	ew.printf("Run %s completed in %dms", r.RunID, r.ElapsedMs)
	switch {
	case r.DryRun:
		ew.printf("; dry run, comment not posted\n")
	case r.CommentURL != "":
		ew.printf("; comment posted: %s\n", r.CommentURL)
	default:
		ew.println("")
	}
	return ew.err
}

func (t *TextWriter) WriteMeeting(w io.Writer, m *MeetingReport) error {
	ew := &errWriter{w: w}

	ew.printf("designsync meeting: %s\n", docLabel(m.DocumentTitle, m.DocumentURL, 0))
	ew.println(strings.Repeat("─", 60))

	ew.println("Summary:")
	for _, line := range wrapText(m.Summary, 70) {
		ew.printf("  %s\n", line)
	}
	writeList(ew, "Design changes", m.DesignChanges)
	writeList(ew, "Action items", m.ActionItems)
	if m.Reasoning != "" {
		ew.println("Reasoning:")
		for _, line := range wrapText(m.Reasoning, 70) {
			ew.printf("  %s\n", line)
		}
	}
	if !m.Structured {
		ew.println("(model reply was not structured; results extracted heuristically)")
	}
	ew.println(strings.Repeat("─", 60))

	switch {
	case m.Updated:
		ew.printf("Document updated to version %d\n", m.NewVersion)
	case m.ShouldUpdate && m.DryRun:
		ew.println("Dry run: document update skipped")
	default:
		ew.println("Document not updated")
	}
	return ew.err
}

func writeList(ew *errWriter, title string, items []string) {
	ew.printf("%s (%d):\n", title, len(items))
	for _, it := range items {
		ew.printf("  - %s\n", it)
	}
}

func docLabel(title, url string, version int) string {
	switch {
	case title == "":
		return url
	case version > 0:
		return fmt.Sprintf("%s (%s, version %d)", title, url, version)
	default:
		return fmt.Sprintf("%s (%s)", title, url)
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
