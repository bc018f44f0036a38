package ingestion

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/data/repos"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/gmailapi"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// Service fetches supplier emails from Gmail, parses them, and stores the
// normalized records. Deduplication rides on the email_id primary key.
type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	gmail  gmailapi.Client
	emails repos.EmailRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, gmail gmailapi.Client, emails repos.EmailRepo) *Service {
	return &Service{
		db:     db,
		log:    baseLog.With("service", "IngestionService"),
		gmail:  gmail,
		emails: emails,
	}
}

// Ingest pulls messages newer than the given number of days and returns how
// many were newly inserted.
func (s *Service) Ingest(ctx context.Context, days int, maxResults int) (int, error) {
	messages, err := s.gmail.FetchMessagesBatch(ctx, days, maxResults)
	if err != nil {
		return 0, fmt.Errorf("fetch gmail messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	inserted := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		for _, msg := range messages {
			email := ParseMessage(msg)
			if email.ID == "" {
				s.log.Warn("skipping gmail message without id")
				continue
			}
			created, err := s.emails.Create(dbc, email)
			if err != nil {
				return fmt.Errorf("insert email %s: %w", email.ID, err)
			}
			if created {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("ingestion finished", "fetched", len(messages), "inserted", inserted)
	return inserted, nil
}
