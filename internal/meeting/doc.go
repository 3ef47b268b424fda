// Package meeting folds meeting notes into design documents.
//
// A [Pipeline] reads the document, asks the model whether the meeting changed
// the design, and appends a timestamped section when it did. The model is
// asked for a JSON object; [ParseAnalysis] decodes the first balanced object
// in the reply and falls back to scanning for action items when there is
// none, in which case the document is never written.
package meeting
