package meeting

import (
	"fmt"
	"strings"

	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/confluence"
	"github.com/dshills/designsync/internal/llm"
)

const systemPrompt = `You maintain a software design document. You are given the current document and the notes of a meeting about it.

Decide whether the meeting changed the design. Only decisions the participants agreed on count as design changes; open questions and brainstorming do not.

You MUST respond with ONLY a JSON object. No markdown fences, no explanation, no preamble.

The object must have this exact structure:
{
  "summary": "Two or three sentences on what the meeting covered",
  "designChanges": ["Each agreed change to the design"],
  "actionItems": ["Owner: task"],
  "shouldUpdate": true,
  "updatedContent": "Markdown or HTML to append to the document, describing the changes. Empty when shouldUpdate is false.",
  "reasoning": "Why the document should or should not be updated"
}

Set "shouldUpdate" to false when no design change was agreed. Never repeat the existing document in "updatedContent"; it is appended as a new section.`

// Profile returns the model profile used for meeting analysis.
func Profile(cfg config.Model) llm.Profile {
	return llm.Profile{
		Name:        "meeting",
		System:      systemPrompt,
		MaxTokens:   cfg.MeetingMaxTokens,
		Temperature: cfg.Temperature,
	}
}

// BuildPrompt assembles the user prompt from the design document and the
// meeting text. Either summary or transcript may be empty.
func BuildPrompt(doc *confluence.Page, summary, transcript string) string {
	var b strings.Builder

	b.WriteString("Analyze the following meeting against the design document.\n")

	fmt.Fprintf(&b, "\n--- BEGIN DESIGN DOCUMENT: %s (version %d) ---\n", doc.Title, doc.Version)
	b.WriteString(confluence.PlainText(doc.Body))
	b.WriteString("\n--- END DESIGN DOCUMENT ---\n")

	if s := strings.TrimSpace(summary); s != "" {
		b.WriteString("\n--- BEGIN MEETING SUMMARY ---\n")
		b.WriteString(s)
		b.WriteString("\n--- END MEETING SUMMARY ---\n")
	}
	if t := strings.TrimSpace(transcript); t != "" {
		b.WriteString("\n--- BEGIN MEETING TRANSCRIPT ---\n")
		b.WriteString(t)
		b.WriteString("\n--- END MEETING TRANSCRIPT ---\n")
	}
	return b.String()
}
