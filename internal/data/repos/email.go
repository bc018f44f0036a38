package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type EmailRepo interface {
	// Create inserts the email and reports whether a row was actually
	// written. Re-ingesting a known email_id is a no-op (false, nil).
	Create(dbc dbctx.Context, email *domain.Email) (bool, error)
	GetByID(dbc dbctx.Context, id string) (*domain.Email, error)
	GetByIDs(dbc dbctx.Context, ids []string) ([]*domain.Email, error)
	ListUnprocessed(dbc dbctx.Context, limit int) ([]*domain.Email, error)
	ListRecentDisputes(dbc dbctx.Context, since time.Time, limit int) ([]*domain.Email, error)
	SetClassification(dbc dbctx.Context, id string, c domain.Classification, raw datatypes.JSON) error
	SetSupplier(dbc dbctx.Context, id string, supplierID uuid.UUID) error
}

type emailRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmailRepo(db *gorm.DB, baseLog *logger.Logger) EmailRepo {
	return &emailRepo{db: db, log: baseLog.With("repo", "EmailRepo")}
}

func (r *emailRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *emailRepo) Create(dbc dbctx.Context, email *domain.Email) (bool, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email_id"}},
		DoNothing: true,
	}).Create(email)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *emailRepo) GetByID(dbc dbctx.Context, id string) (*domain.Email, error) {
	var email domain.Email
	err := r.conn(dbc).WithContext(dbc.Ctx).First(&email, "email_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

func (r *emailRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*domain.Email, error) {
	var results []*domain.Email
	if len(ids) == 0 {
		return results, nil
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("email_id IN ?", ids).
		Order("received_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *emailRepo) ListUnprocessed(dbc dbctx.Context, limit int) ([]*domain.Email, error) {
	var results []*domain.Email
	q := r.conn(dbc).WithContext(dbc.Ctx).
		Where("processed = ?", false).
		Order("received_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *emailRepo) ListRecentDisputes(dbc dbctx.Context, since time.Time, limit int) ([]*domain.Email, error) {
	var results []*domain.Email
	q := r.conn(dbc).WithContext(dbc.Ctx).
		Where("processed = ? AND label = ? AND received_at >= ?", true, domain.LabelDispute, since).
		Order("received_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *emailRepo) SetClassification(dbc dbctx.Context, id string, c domain.Classification, raw datatypes.JSON) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Email{}).
		Where("email_id = ?", id).
		Updates(map[string]interface{}{
			"label":                 c.Label,
			"confidence":            c.Confidence,
			"classification_reason": c.Reason,
			"classification_raw":    raw,
			"processed":             true,
		}).Error
}

func (r *emailRepo) SetSupplier(dbc dbctx.Context, id string, supplierID uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Email{}).
		Where("email_id = ?", id).
		Update("supplier_id", supplierID).Error
}
