package shared

import (
	"context"
	"strings"

	"github.com/mikan-dev/splice/internal/domain"
)

// HeuristicClassifier decides the post-run status from the final assistant
// message without another model call: ready_for_review unless the message
// clearly asks the user something or presents a plan awaiting approval.
type HeuristicClassifier struct{}

var _ domain.ResponseClassifier = (*HeuristicClassifier)(nil)

// NewHeuristicClassifier creates a HeuristicClassifier.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// planMarkers are phrases an assistant uses when it has produced a plan
// and is waiting for a go-ahead rather than having edited anything.
var planMarkers = []string{
	"## plan",
	"# plan",
	"proposed plan",
	"implementation plan",
	"shall i proceed",
	"should i proceed",
	"ready to implement",
}

// questionMarkers are phrases that ask the user for missing information.
var questionMarkers = []string{
	"could you clarify",
	"can you clarify",
	"could you provide",
	"can you provide",
	"which of these",
	"do you want me to",
	"would you like me to",
	"need more information",
	"more details",
}

// Classify inspects the last assistant message and picks the post-run status.
func (c *HeuristicClassifier) Classify(_ context.Context, msg *domain.ContextMessage) (domain.Status, error) {
	if msg == nil {
		return domain.StatusReadyForReview, nil
	}
	text := strings.ToLower(msg.PlainText())
	if text == "" {
		return domain.StatusReadyForReview, nil
	}

	for _, marker := range planMarkers {
		if strings.Contains(text, marker) {
			return domain.StatusReadyForImpl, nil
		}
	}

	// A trailing question means the assistant stopped to ask, not a
	// rhetorical aside mid-response.
	tail := lastNonEmptyLine(text)
	if strings.HasSuffix(tail, "?") {
		return domain.StatusMoreInfoNeeded, nil
	}
	for _, marker := range questionMarkers {
		if strings.Contains(tail, marker) {
			return domain.StatusMoreInfoNeeded, nil
		}
	}

	return domain.StatusReadyForReview, nil
}

func lastNonEmptyLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
