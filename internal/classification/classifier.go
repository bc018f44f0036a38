package classification

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/data/repos"
	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// AIClient is the classifier's view of the LLM provider.
type AIClient interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

// DisputeStorer routes dispute-labeled emails into the canonicalization
// engine.
type DisputeStorer interface {
	StoreDisputeDocument(ctx context.Context, email *domain.Email) error
}

// Classifier labels unprocessed emails and feeds disputes into the engine.
type Classifier struct {
	db     *gorm.DB
	log    *logger.Logger
	ai     AIClient
	emails repos.EmailRepo
	storer DisputeStorer
}

func NewClassifier(db *gorm.DB, baseLog *logger.Logger, ai AIClient, emails repos.EmailRepo, storer DisputeStorer) *Classifier {
	return &Classifier{
		db:     db,
		log:    baseLog.With("service", "Classifier"),
		ai:     ai,
		emails: emails,
		storer: storer,
	}
}

// ClassifyPendingEmails classifies emails where processed = false and returns
// how many were handled. Dispute-labeled emails go straight into the engine.
func (c *Classifier) ClassifyPendingEmails(ctx context.Context, limit int) (int, error) {
	dbc := dbctx.Context{Ctx: ctx}
	pending, err := c.emails.ListUnprocessed(dbc, limit)
	if err != nil {
		return 0, fmt.Errorf("list unprocessed emails: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	for _, email := range pending {
		result, raw, err := c.classifyText(ctx, email.Body)
		if err != nil {
			return 0, fmt.Errorf("classify email %s: %w", email.ID, err)
		}

		if err := c.emails.SetClassification(dbc, email.ID, result, raw); err != nil {
			return 0, fmt.Errorf("store classification for %s: %w", email.ID, err)
		}
		email.Label = result.Label
		email.Confidence = result.Confidence
		email.ClassificationReason = result.Reason
		email.Processed = true

		c.log.Info("email classified",
			"email_id", email.ID,
			"label", result.Label,
			"confidence", result.Confidence,
		)

		// Only disputes enter the canonical store.
		if result.Label == domain.LabelDispute {
			if err := c.storer.StoreDisputeDocument(ctx, email); err != nil {
				return 0, fmt.Errorf("canonicalize dispute email %s: %w", email.ID, err)
			}
		}
	}
	return len(pending), nil
}

// classifyText calls the LLM with one retry for transiently malformed
// responses; structured output makes these rare but not impossible.
func (c *Classifier) classifyText(ctx context.Context, body string) (domain.Classification, datatypes.JSON, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		obj, err := c.ai.GenerateJSON(ctx, systemPrompt, buildPrompt(body), "email_classification", classificationSchema)
		if err != nil {
			lastErr = err
			continue
		}
		result, err := parseClassification(obj)
		if err != nil {
			lastErr = err
			continue
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return domain.Classification{}, nil, err
		}
		return result, datatypes.JSON(raw), nil
	}
	return domain.Classification{}, nil, fmt.Errorf("llm returned invalid classification after retries: %w", lastErr)
}

func parseClassification(obj map[string]any) (domain.Classification, error) {
	label, ok := obj["label"].(string)
	if !ok {
		return domain.Classification{}, fmt.Errorf("classification missing required field 'label'")
	}
	switch label {
	case domain.LabelDispute, domain.LabelAmbiguous, domain.LabelNonDispute:
	default:
		return domain.Classification{}, fmt.Errorf("classification label %q not recognized", label)
	}
	confidence, ok := obj["confidence"].(float64)
	if !ok {
		return domain.Classification{}, fmt.Errorf("classification missing required field 'confidence'")
	}
	if confidence < 0 || confidence > 1 {
		return domain.Classification{}, fmt.Errorf("classification confidence %v out of range", confidence)
	}
	reason, ok := obj["reason"].(string)
	if !ok {
		return domain.Classification{}, fmt.Errorf("classification missing required field 'reason'")
	}
	return domain.Classification{Label: label, Confidence: confidence, Reason: reason}, nil
}
