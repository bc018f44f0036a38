package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type CanonicalDisputeRepo interface {
	Create(dbc dbctx.Context, dispute *domain.CanonicalDispute) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CanonicalDispute, error)
	UpdateSummary(dbc dbctx.Context, id uuid.UUID, summary string) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type canonicalDisputeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCanonicalDisputeRepo(db *gorm.DB, baseLog *logger.Logger) CanonicalDisputeRepo {
	return &canonicalDisputeRepo{db: db, log: baseLog.With("repo", "CanonicalDisputeRepo")}
}

func (r *canonicalDisputeRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *canonicalDisputeRepo) Create(dbc dbctx.Context, dispute *domain.CanonicalDispute) error {
	return r.conn(dbc).WithContext(dbc.Ctx).Create(dispute).Error
}

func (r *canonicalDisputeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.CanonicalDispute, error) {
	var dispute domain.CanonicalDispute
	err := r.conn(dbc).WithContext(dbc.Ctx).First(&dispute, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *canonicalDisputeRepo) UpdateSummary(dbc dbctx.Context, id uuid.UUID, summary string) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.CanonicalDispute{}).
		Where("id = ?", id).
		Update("dispute_summary", summary).Error
}

func (r *canonicalDisputeRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Delete(&domain.CanonicalDispute{}, "id = ?", id).Error
}
