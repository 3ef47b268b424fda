// Package output formats review and meeting reports for display, machine
// consumption and pull-request comments.
//
// Three formats are supported:
//   - text: human-readable terminal output (default)
//   - json: full structured JSON report
//   - markdown: the pull-request comment body
//
// Use [GetWriter] to obtain a [Writer] for a given format string.
// [WriteReview] and [WriteMeeting] are convenience helpers that handle
// destination selection.
package output
