package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type SupplierRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Supplier, error)
	// FindOrCreateByName returns the supplier with the given name, inserting
	// it first if absent. Concurrent resolvers converge on one row via the
	// unique index on name.
	FindOrCreateByName(dbc dbctx.Context, name string) (*domain.Supplier, error)
}

type supplierRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSupplierRepo(db *gorm.DB, baseLog *logger.Logger) SupplierRepo {
	return &supplierRepo{db: db, log: baseLog.With("repo", "SupplierRepo")}
}

func (r *supplierRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *supplierRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	err := r.conn(dbc).WithContext(dbc.Ctx).First(&supplier, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepo) FindOrCreateByName(dbc dbctx.Context, name string) (*domain.Supplier, error) {
	conn := r.conn(dbc).WithContext(dbc.Ctx)

	candidate := domain.Supplier{ID: uuid.New(), Name: name}
	if err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&candidate).Error; err != nil {
		return nil, err
	}

	var supplier domain.Supplier
	if err := conn.First(&supplier, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}
