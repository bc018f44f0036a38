package ingestion

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/net/html"
	"google.golang.org/api/gmail/v1"

	"github.com/yungbote/disputeflow-backend/internal/domain"
)

// ParseMessage converts a Gmail API message (format "full") into the internal
// normalized email record.
func ParseMessage(msg *gmail.Message) *domain.Email {
	var payload *gmail.MessagePart
	if msg != nil {
		payload = msg.Payload
	}
	var headers []*gmail.MessagePartHeader
	if payload != nil {
		headers = payload.Headers
	}

	var receivedAt *time.Time
	if raw := headerValue(headers, "Date"); raw != "" {
		if t, err := mail.ParseDate(raw); err == nil {
			receivedAt = &t
		}
	}

	email := &domain.Email{
		Sender:     headerValue(headers, "From"),
		Subject:    headerValue(headers, "Subject"),
		Body:       extractBody(payload),
		ReceivedAt: receivedAt,
	}
	if msg != nil {
		email.ID = msg.Id
		email.ThreadID = msg.ThreadId
	}
	return email
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func decodeBase64(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

// extractBody pulls the message body out of a Gmail payload, preferring
// text/plain parts and falling back to text/html stripped to plain text.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	if len(payload.Parts) > 0 {
		var plainText, htmlText string
		for _, part := range payload.Parts {
			if part == nil || part.Body == nil || part.Body.Data == "" {
				continue
			}
			decoded := decodeBase64(part.Body.Data)
			switch part.MimeType {
			case "text/plain":
				plainText = decoded
			case "text/html":
				htmlText = decoded
			}
		}
		if strings.TrimSpace(plainText) != "" {
			return strings.TrimSpace(plainText)
		}
		if htmlText != "" {
			return strings.TrimSpace(htmlToText(htmlText))
		}
	}

	// Single-part messages carry the body directly on the payload.
	if payload.Body != nil && payload.Body.Data != "" {
		return strings.TrimSpace(decodeBase64(payload.Body.Data))
	}
	return ""
}

func htmlToText(raw string) string {
	node, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return strings.Join(parts, "\n")
}
