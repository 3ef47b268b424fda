package output

import (
	"fmt"
	"io"
	"os"
)

// Writer renders reports in a specific format.
type Writer interface {
	WriteReview(w io.Writer, r *ReviewReport) error
	WriteMeeting(w io.Writer, m *MeetingReport) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReview writes r to outPath, or to stdout when outPath is empty.
func WriteReview(r *ReviewReport, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	return withDestination(outPath, func(w io.Writer) error { return writer.WriteReview(w, r) })
}

// WriteMeeting writes m to outPath, or to stdout when outPath is empty.
func WriteMeeting(m *MeetingReport, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	return withDestination(outPath, func(w io.Writer) error { return writer.WriteMeeting(w, m) })
}

func withDestination(outPath string, fn func(io.Writer) error) error {
	if outPath == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
