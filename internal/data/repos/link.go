package repos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// ErrEmailAlreadyLinked surfaces a lost race on the email_id primary key:
// another worker linked the same email first. The caller's transaction is
// poisoned at that point; re-processing the email resolves idempotently.
var ErrEmailAlreadyLinked = errors.New("email already linked to a dispute")

type DisputeEmailLinkRepo interface {
	// GetByEmailID returns (nil, nil) when the email has no link yet.
	GetByEmailID(dbc dbctx.Context, emailID string) (*domain.DisputeEmailLink, error)
	Create(dbc dbctx.Context, link *domain.DisputeEmailLink) error
	ListByDispute(dbc dbctx.Context, disputeID uuid.UUID) ([]*domain.DisputeEmailLink, error)
	// Relink re-points every link on the source dispute at the target.
	Relink(dbc dbctx.Context, fromDisputeID, toDisputeID uuid.UUID) (int64, error)
}

type disputeEmailLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDisputeEmailLinkRepo(db *gorm.DB, baseLog *logger.Logger) DisputeEmailLinkRepo {
	return &disputeEmailLinkRepo{db: db, log: baseLog.With("repo", "DisputeEmailLinkRepo")}
}

func (r *disputeEmailLinkRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *disputeEmailLinkRepo) GetByEmailID(dbc dbctx.Context, emailID string) (*domain.DisputeEmailLink, error) {
	var link domain.DisputeEmailLink
	err := r.conn(dbc).WithContext(dbc.Ctx).First(&link, "email_id = ?", emailID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *disputeEmailLinkRepo) Create(dbc dbctx.Context, link *domain.DisputeEmailLink) error {
	err := r.conn(dbc).WithContext(dbc.Ctx).Create(link).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrEmailAlreadyLinked, link.EmailID)
	}
	return err
}

func (r *disputeEmailLinkRepo) ListByDispute(dbc dbctx.Context, disputeID uuid.UUID) ([]*domain.DisputeEmailLink, error) {
	var results []*domain.DisputeEmailLink
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("dispute_id = ?", disputeID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *disputeEmailLinkRepo) Relink(dbc dbctx.Context, fromDisputeID, toDisputeID uuid.UUID) (int64, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.DisputeEmailLink{}).
		Where("dispute_id = ?", fromDisputeID).
		Update("dispute_id", toDisputeID)
	return res.RowsAffected, res.Error
}
