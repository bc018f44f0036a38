package repos

import (
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type DisputeEmbeddingRepo interface {
	Create(dbc dbctx.Context, emb *domain.DisputeEmbedding) error
	// Nearest is the similarity oracle: the closest disputes in one supplier
	// scope, best similarity per dispute, ordered descending. Exact ties
	// break on dispute_id so results are stable across runs. Pass uuid.Nil
	// as excludeDisputeID to search the whole scope.
	Nearest(dbc dbctx.Context, supplierID uuid.UUID, query pgvector.Vector, k int, excludeDisputeID uuid.UUID) ([]domain.DisputeNeighbor, error)
	// NearestAcrossSuppliers backs the ad-hoc retrieval API; the engine
	// itself only ever searches supplier-scoped.
	NearestAcrossSuppliers(dbc dbctx.Context, query pgvector.Vector, k int) ([]domain.DisputeNeighbor, error)
	Relink(dbc dbctx.Context, fromDisputeID, toDisputeID uuid.UUID) (int64, error)
}

type disputeEmbeddingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDisputeEmbeddingRepo(db *gorm.DB, baseLog *logger.Logger) DisputeEmbeddingRepo {
	return &disputeEmbeddingRepo{db: db, log: baseLog.With("repo", "DisputeEmbeddingRepo")}
}

func (r *disputeEmbeddingRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *disputeEmbeddingRepo) Create(dbc dbctx.Context, emb *domain.DisputeEmbedding) error {
	return r.conn(dbc).WithContext(dbc.Ctx).Create(emb).Error
}

func (r *disputeEmbeddingRepo) Nearest(dbc dbctx.Context, supplierID uuid.UUID, query pgvector.Vector, k int, excludeDisputeID uuid.UUID) ([]domain.DisputeNeighbor, error) {
	if k <= 0 {
		k = 1
	}
	var results []domain.DisputeNeighbor
	sql := `
		SELECT dispute_id, MAX(1 - (embedding <=> ?::vector)) AS similarity
		FROM dispute_embedding
		WHERE supplier_id = ?`
	args := []interface{}{query, supplierID}
	if excludeDisputeID != uuid.Nil {
		sql += ` AND dispute_id <> ?`
		args = append(args, excludeDisputeID)
	}
	sql += `
		GROUP BY dispute_id
		ORDER BY similarity DESC, dispute_id ASC
		LIMIT ?`
	args = append(args, k)

	if err := r.conn(dbc).WithContext(dbc.Ctx).Raw(sql, args...).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *disputeEmbeddingRepo) NearestAcrossSuppliers(dbc dbctx.Context, query pgvector.Vector, k int) ([]domain.DisputeNeighbor, error) {
	if k <= 0 {
		k = 5
	}
	var results []domain.DisputeNeighbor
	if err := r.conn(dbc).WithContext(dbc.Ctx).Raw(`
		SELECT dispute_id, MAX(1 - (embedding <=> ?::vector)) AS similarity
		FROM dispute_embedding
		GROUP BY dispute_id
		ORDER BY similarity DESC, dispute_id ASC
		LIMIT ?`, query, k).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *disputeEmbeddingRepo) Relink(dbc dbctx.Context, fromDisputeID, toDisputeID uuid.UUID) (int64, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.DisputeEmbedding{}).
		Where("dispute_id = ?", fromDisputeID).
		Update("dispute_id", toDisputeID)
	return res.RowsAffected, res.Error
}
