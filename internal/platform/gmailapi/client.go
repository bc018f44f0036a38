package gmailapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/yungbote/disputeflow-backend/internal/platform/envutil"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// Client is a thin wrapper around the Gmail API, responsible only for
// fetching messages.
type Client interface {
	ListMessageIDs(ctx context.Context, days int, maxResults int) ([]*gmail.Message, error)
	FetchMessage(ctx context.Context, messageID string) (*gmail.Message, error)
	FetchMessagesBatch(ctx context.Context, days int, maxResults int) ([]*gmail.Message, error)
}

type client struct {
	log *logger.Logger
	svc *gmail.Service
}

// NewClient authenticates with an installed-app OAuth credential plus a
// previously issued user token (the same credentials.json / token.json pair
// the Gmail quickstart produces).
func NewClient(ctx context.Context, log *logger.Logger) (Client, error) {
	credentialsPath := envutil.Str("GMAIL_CREDENTIALS_PATH", "credentials.json")
	tokenPath := envutil.Str("GMAIL_TOKEN_PATH", "token.json")

	credBytes, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read gmail credentials: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(credBytes, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse gmail credentials: %w", err)
	}

	tokenBytes, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read gmail token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("parse gmail token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("build gmail service: %w", err)
	}

	return &client{
		log: log.With("service", "GmailClient"),
		svc: svc,
	}, nil
}

// NewClientFromService wires an existing service, used by tests.
func NewClientFromService(log *logger.Logger, svc *gmail.Service) Client {
	return &client{log: log.With("service", "GmailClient"), svc: svc}
}

func (c *client) ListMessageIDs(ctx context.Context, days int, maxResults int) ([]*gmail.Message, error) {
	query := fmt.Sprintf("newer_than:%dd", days)
	resp, err := c.svc.Users.Messages.List("me").
		Q(query).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list messages: %w", err)
	}
	return resp.Messages, nil
}

func (c *client) FetchMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Users.Messages.Get("me", messageID).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gmail fetch message %s: %w", messageID, err)
	}
	return msg, nil
}

func (c *client) FetchMessagesBatch(ctx context.Context, days int, maxResults int) ([]*gmail.Message, error) {
	refs, err := c.ListMessageIDs(ctx, days, maxResults)
	if err != nil {
		return nil, err
	}
	messages := make([]*gmail.Message, 0, len(refs))
	for _, ref := range refs {
		full, err := c.FetchMessage(ctx, ref.Id)
		if err != nil {
			return nil, err
		}
		messages = append(messages, full)
	}
	return messages, nil
}
