package usecase

import (
	"fmt"
	"strings"
)

const (
	questionPlaceholder = "(Interviewer unavailable: %s)"
	feedbackPlaceholder = "Could not get feedback: %s"

	unknownFailure = "unknown error"
)

// Generation is the result of asking the language model for text. Exactly one
// of Text or Failure is set.
type Generation struct {
	Text    string `json:"text,omitempty"`
	Failure string `json:"failure,omitempty"`
}

// Ok returns a successful generation
func Ok(text string) Generation {
	return Generation{Text: text}
}

// Failed returns a failed generation carrying the reason. A blank reason is
// replaced so the generation never reads as Ok.
func Failed(reason string) Generation {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = unknownFailure
	}
	return Generation{Failure: reason}
}

// IsOk reports whether the generation succeeded
func (g Generation) IsOk() bool {
	return g.Failure == ""
}

// Render returns the generated text, or the placeholder built from format and
// the failure reason when the generation failed
func (g Generation) Render(format string) string {
	if g.IsOk() {
		return g.Text
	}
	return fmt.Sprintf(format, g.Failure)
}

// RenderQuestion renders an interviewer question generation
func RenderQuestion(g Generation) string {
	return g.Render(questionPlaceholder)
}

// RenderFeedback renders a feedback generation
func RenderFeedback(g Generation) string {
	return g.Render(feedbackPlaceholder)
}
