package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/data/repos"
	"github.com/yungbote/disputeflow-backend/internal/disputes"
	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// Result is one similar canonical dispute for an ad-hoc query.
type Result struct {
	DisputeID  uuid.UUID `json:"dispute_id"`
	SupplierID uuid.UUID `json:"supplier_id"`
	Summary    string    `json:"summary"`
	Similarity float64   `json:"similarity"`
}

// Service answers "which existing disputes look like this text" queries
// across all suppliers.
type Service struct {
	db         *gorm.DB
	log        *logger.Logger
	embedder   disputes.Embedder
	embeddings repos.DisputeEmbeddingRepo
	disputes   repos.CanonicalDisputeRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, embedder disputes.Embedder, embeddings repos.DisputeEmbeddingRepo, disputeRepo repos.CanonicalDisputeRepo) *Service {
	return &Service{
		db:         db,
		log:        baseLog.With("service", "RetrievalService"),
		embedder:   embedder,
		embeddings: embeddings,
		disputes:   disputeRepo,
	}
}

func (s *Service) RetrieveSimilarDisputes(ctx context.Context, query string, topK int) ([]Result, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}

	dbc := dbctx.Context{Ctx: ctx}
	neighbors, err := s.embeddings.NearestAcrossSuppliers(dbc, pgvector.NewVector(vecs[0]), topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]Result, 0, len(neighbors))
	for _, n := range neighbors {
		dispute, err := s.disputes.GetByID(dbc, n.DisputeID)
		if errors.Is(err, domain.ErrNotFound) {
			// Merged away between search and load; harmless.
			continue
		}
		if err != nil {
			return nil, err
		}
		summary := ""
		if dispute.DisputeSummary != nil {
			summary = *dispute.DisputeSummary
		}
		results = append(results, Result{
			DisputeID:  dispute.ID,
			SupplierID: dispute.SupplierID,
			Summary:    summary,
			Similarity: n.Similarity,
		})
	}
	return results, nil
}
