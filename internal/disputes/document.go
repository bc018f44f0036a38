package disputes

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/disputeflow-backend/internal/domain"
)

// RenderDocumentText builds the canonical document record for one email.
// The layout is load-bearing: the exact-text fast path and the per-dispute
// document dedup both compare this string byte-for-byte, so any change here
// invalidates stored documents.
func RenderDocumentText(email *domain.Email) string {
	received := ""
	if email.ReceivedAt != nil {
		received = email.ReceivedAt.UTC().Format(time.RFC3339)
	}
	text := fmt.Sprintf(`Subject: %s
Sender: %s
Date: %s

Email Content:
%s`, email.Subject, email.Sender, received, email.Body)
	return strings.TrimSpace(text)
}
