package output

// FileChange is one changed file with its line counts.
type FileChange struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// ReviewReport is the outcome of reviewing one pull request against its
// design document.
type ReviewReport struct {
	RunID   string `json:"runId"`
	PR      string `json:"pr"`
	PRTitle string `json:"prTitle,omitempty"`
	PRURL   string `json:"prUrl,omitempty"`
	// Success is false when the review could not run, for example because
	// the pull request names no design document. Message says why.
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	DocumentURL     string `json:"documentUrl,omitempty"`
	DocumentTitle   string `json:"documentTitle,omitempty"`
	DocumentVersion int    `json:"documentVersion,omitempty"`

	Files      []FileChange `json:"files,omitempty"`
	Redactions int          `json:"redactions,omitempty"`
	Truncated  bool         `json:"truncated,omitempty"`

	Model      string `json:"model,omitempty"`
	TokensUsed int    `json:"tokensUsed,omitempty"`
	Review     string `json:"review,omitempty"`

	// Comment is the markdown posted (or, in a dry run, not posted) to the
	// pull request.
	Comment    string `json:"comment,omitempty"`
	CommentURL string `json:"commentUrl,omitempty"`
	DryRun     bool   `json:"dryRun,omitempty"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

// MeetingReport is the outcome of folding one meeting into a design document.
type MeetingReport struct {
	RunID         string   `json:"runId"`
	DocumentURL   string   `json:"documentUrl"`
	DocumentTitle string   `json:"documentTitle,omitempty"`
	Summary       string   `json:"summary"`
	DesignChanges []string `json:"designChanges"`
	ActionItems   []string `json:"actionItems"`
	Reasoning     string   `json:"reasoning,omitempty"`
	// Structured is false when the model reply was not valid JSON and the
	// fields above came from the line-scanning fallback.
	Structured   bool  `json:"structured"`
	ShouldUpdate bool  `json:"shouldUpdate"`
	Updated      bool  `json:"updated"`
	NewVersion   int   `json:"newVersion,omitempty"`
	DryRun       bool  `json:"dryRun,omitempty"`
	ElapsedMs    int64 `json:"elapsedMs"`
}
