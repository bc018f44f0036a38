package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type DisputeDocumentRepo interface {
	Create(dbc dbctx.Context, doc *domain.DisputeDocument) error
	// GetBySupplierAndText is the exact-text fast path lookup. Returns
	// (nil, nil) when no identical document exists in the supplier scope.
	GetBySupplierAndText(dbc dbctx.Context, supplierID uuid.UUID, text string) (*domain.DisputeDocument, error)
	ExistsByDisputeAndText(dbc dbctx.Context, disputeID uuid.UUID, text string) (bool, error)
	ListByDispute(dbc dbctx.Context, disputeID uuid.UUID) ([]*domain.DisputeDocument, error)
	Reparent(dbc dbctx.Context, docID, toDisputeID uuid.UUID) error
	Delete(dbc dbctx.Context, docID uuid.UUID) error
}

type disputeDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDisputeDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DisputeDocumentRepo {
	return &disputeDocumentRepo{db: db, log: baseLog.With("repo", "DisputeDocumentRepo")}
}

func (r *disputeDocumentRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *disputeDocumentRepo) Create(dbc dbctx.Context, doc *domain.DisputeDocument) error {
	return r.conn(dbc).WithContext(dbc.Ctx).Create(doc).Error
}

func (r *disputeDocumentRepo) GetBySupplierAndText(dbc dbctx.Context, supplierID uuid.UUID, text string) (*domain.DisputeDocument, error) {
	var doc domain.DisputeDocument
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("supplier_id = ? AND document_text = ?", supplierID, text).
		Order("created_at ASC").
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *disputeDocumentRepo) ExistsByDisputeAndText(dbc dbctx.Context, disputeID uuid.UUID, text string) (bool, error) {
	var count int64
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.DisputeDocument{}).
		Where("dispute_id = ? AND document_text = ?", disputeID, text).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *disputeDocumentRepo) ListByDispute(dbc dbctx.Context, disputeID uuid.UUID) ([]*domain.DisputeDocument, error) {
	var results []*domain.DisputeDocument
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("dispute_id = ?", disputeID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *disputeDocumentRepo) Reparent(dbc dbctx.Context, docID, toDisputeID uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.DisputeDocument{}).
		Where("id = ?", docID).
		Update("dispute_id", toDisputeID).Error
}

func (r *disputeDocumentRepo) Delete(dbc dbctx.Context, docID uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Delete(&domain.DisputeDocument{}, "id = ?", docID).Error
}
