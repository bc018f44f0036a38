package disputes

import (
	"strings"

	"github.com/yungbote/disputeflow-backend/internal/domain"
)

// summaryCandidate picks the text a new email contributes to its dispute's
// summary: the subject when present, otherwise a prefix of the body.
func summaryCandidate(email *domain.Email, bodyPrefixLen int) string {
	subject := strings.TrimSpace(email.Subject)
	if subject != "" {
		return subject
	}
	body := strings.TrimSpace(email.Body)
	if body == "" {
		return ""
	}
	runes := []rune(body)
	if len(runes) > bodyPrefixLen {
		runes = runes[:bodyPrefixLen]
	}
	return string(runes)
}

// shouldReplaceSummary decides whether the candidate displaces the current
// summary. A candidate that is already contained in the summary
// (case-insensitive) or would shrink it is rejected, so summaries grow
// richer without cycling between near-duplicate phrasings.
func shouldReplaceSummary(current, candidate string) bool {
	if candidate == "" {
		return false
	}
	if strings.TrimSpace(current) == "" {
		return true
	}
	if strings.Contains(strings.ToLower(current), strings.ToLower(candidate)) {
		return false
	}
	return len(candidate) >= len(current)
}
