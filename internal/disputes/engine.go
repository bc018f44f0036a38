package disputes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/data/repos"
	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// Embedder is the engine's view of the embedding provider. The engine issues
// at most one Embed call per email, after the exact-text fast path misses.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	EmbedModel() string
}

// Config is the engine's explicit configuration; there is no ambient state.
type Config struct {
	// SimilarityThreshold governs both reuse and merge aggressiveness.
	// A candidate at exactly the threshold is a match (inclusive >=).
	SimilarityThreshold float64
	// SweepCandidates caps how many nearest disputes the post-write merge
	// sweep considers.
	SweepCandidates int
	// SummaryBodyPrefixLen is how much of the body stands in for an empty
	// subject when maintaining summaries.
	SummaryBodyPrefixLen int
}

func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:  0.82,
		SweepCandidates:      5,
		SummaryBodyPrefixLen: 280,
	}
}

// Engine folds classified dispute emails into deduplicated canonical
// disputes. All work for one email happens inside one transaction; there is
// no cross-email mutual exclusion. Two workers racing on near-identical
// emails may create duplicate disputes, which a later merge sweep reconciles.
type Engine struct {
	db       *gorm.DB
	log      *logger.Logger
	cfg      Config
	embedder Embedder
	tracer   trace.Tracer

	suppliers  repos.SupplierRepo
	emails     repos.EmailRepo
	disputes   repos.CanonicalDisputeRepo
	links      repos.DisputeEmailLinkRepo
	documents  repos.DisputeDocumentRepo
	embeddings repos.DisputeEmbeddingRepo
}

func NewEngine(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg Config,
	embedder Embedder,
	suppliers repos.SupplierRepo,
	emails repos.EmailRepo,
	disputes repos.CanonicalDisputeRepo,
	links repos.DisputeEmailLinkRepo,
	documents repos.DisputeDocumentRepo,
	embeddings repos.DisputeEmbeddingRepo,
) *Engine {
	return &Engine{
		db:         db,
		log:        baseLog.With("service", "DisputeEngine"),
		cfg:        cfg,
		embedder:   embedder,
		tracer:     otel.Tracer("disputes"),
		suppliers:  suppliers,
		emails:     emails,
		disputes:   disputes,
		links:      links,
		documents:  documents,
		embeddings: embeddings,
	}
}

// StoreDisputeDocument is the engine's public operation. It is idempotent:
// a second call with the same email short-circuits on the existing link.
// Any failure rolls the email's transaction back; there is no partial write.
func (e *Engine) StoreDisputeDocument(ctx context.Context, email *domain.Email) error {
	if email == nil {
		return fmt.Errorf("email required")
	}
	ctx, span := e.tracer.Start(ctx, "disputes.store_dispute_document",
		trace.WithAttributes(attribute.String("email.id", email.ID)))
	defer span.End()

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		disputeID, err := e.storeTx(dbctx.Context{Ctx: ctx, Tx: tx}, email)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("dispute.id", disputeID.String()))
		return nil
	})
}

func (e *Engine) storeTx(dbc dbctx.Context, email *domain.Email) (uuid.UUID, error) {
	// Idempotent re-processing: the link is the anchor.
	existing, err := e.links.GetByEmailID(dbc, email.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("link lookup: %w", err)
	}
	if existing != nil {
		e.log.Debug("email already canonicalized", "email_id", email.ID, "dispute_id", existing.DisputeID)
		return existing.DisputeID, nil
	}

	supplierID, err := e.resolveSupplier(dbc, email)
	if err != nil {
		return uuid.Nil, err
	}

	text := RenderDocumentText(email)

	// Exact-text fast path: identical content for this supplier means no
	// embedding call and no similarity search. Float rounding can never
	// split two identical texts across disputes this way.
	doc, err := e.documents.GetBySupplierAndText(dbc, supplierID, text)
	if err != nil {
		return uuid.Nil, fmt.Errorf("fast path lookup: %w", err)
	}
	if doc != nil {
		if err := e.links.Create(dbc, &domain.DisputeEmailLink{EmailID: email.ID, DisputeID: doc.DisputeID}); err != nil {
			return uuid.Nil, err
		}
		if err := e.updateSummary(dbc, doc.DisputeID, email); err != nil {
			return uuid.Nil, err
		}
		e.log.Info("dispute email attached via exact-text fast path",
			"email_id", email.ID, "dispute_id", doc.DisputeID)
		return doc.DisputeID, nil
	}

	vec, err := e.embedDocument(dbc.Ctx, text)
	if err != nil {
		return uuid.Nil, err
	}

	disputeID, created, err := e.canonicalize(dbc, email, supplierID, vec)
	if err != nil {
		return uuid.Nil, err
	}

	if err := e.links.Create(dbc, &domain.DisputeEmailLink{EmailID: email.ID, DisputeID: disputeID}); err != nil {
		return uuid.Nil, err
	}

	// Sweep before persisting, so the dispute's very first embedding is the
	// one near-duplicates get merged toward rather than a stale one.
	if err := e.mergeSweep(dbc, disputeID, supplierID, vec); err != nil {
		return uuid.Nil, err
	}

	if err := e.updateSummary(dbc, disputeID, email); err != nil {
		return uuid.Nil, err
	}

	exists, err := e.documents.ExistsByDisputeAndText(dbc, disputeID, text)
	if err != nil {
		return uuid.Nil, fmt.Errorf("document dedup check: %w", err)
	}
	if !exists {
		if err := e.documents.Create(dbc, &domain.DisputeDocument{
			ID:           uuid.New(),
			DisputeID:    disputeID,
			SupplierID:   supplierID,
			DocumentText: text,
		}); err != nil {
			return uuid.Nil, fmt.Errorf("document insert: %w", err)
		}
		if err := e.embeddings.Create(dbc, &domain.DisputeEmbedding{
			ID:         uuid.New(),
			DisputeID:  disputeID,
			SupplierID: supplierID,
			Embedding:  vec,
			ModelName:  e.embedder.EmbedModel(),
		}); err != nil {
			return uuid.Nil, fmt.Errorf("embedding insert: %w", err)
		}
	}

	e.log.Info("dispute email canonicalized",
		"email_id", email.ID,
		"dispute_id", disputeID,
		"created_new_dispute", created,
	)
	return disputeID, nil
}

// resolveSupplier keeps a known supplier id and otherwise falls back to the
// sentinel supplier, persisting the resolution back onto the email row.
func (e *Engine) resolveSupplier(dbc dbctx.Context, email *domain.Email) (uuid.UUID, error) {
	if email.SupplierID != nil && *email.SupplierID != uuid.Nil {
		return *email.SupplierID, nil
	}

	sentinel, err := e.suppliers.FindOrCreateByName(dbc, domain.UnknownSupplierName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: sentinel supplier: %v", domain.ErrConfiguration, err)
	}
	if sentinel == nil || sentinel.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: sentinel supplier unreadable", domain.ErrConfiguration)
	}

	if err := e.emails.SetSupplier(dbc, email.ID, sentinel.ID); err != nil {
		return uuid.Nil, fmt.Errorf("persist resolved supplier: %w", err)
	}
	id := sentinel.ID
	email.SupplierID = &id
	return id, nil
}

func (e *Engine) embedDocument(ctx context.Context, text string) (pgvector.Vector, error) {
	ctx, span := e.tracer.Start(ctx, "disputes.embed_document")
	defer span.End()

	vecs, err := e.embedder.Embed(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return pgvector.Vector{}, fmt.Errorf("%w: empty embedding response", domain.ErrEmbeddingUnavailable)
	}
	return pgvector.NewVector(vecs[0]), nil
}

// canonicalize decides the owning dispute for a new email: reuse the single
// nearest dispute when it clears the threshold, otherwise create a fresh one
// seeded with the subject.
func (e *Engine) canonicalize(dbc dbctx.Context, email *domain.Email, supplierID uuid.UUID, vec pgvector.Vector) (uuid.UUID, bool, error) {
	if supplierID == uuid.Nil {
		return uuid.Nil, false, domain.ErrMissingSupplier
	}

	neighbors, err := e.embeddings.Nearest(dbc, supplierID, vec, 1, uuid.Nil)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("similarity search: %w", err)
	}
	if len(neighbors) > 0 && neighbors[0].Similarity >= e.cfg.SimilarityThreshold {
		e.log.Debug("reusing dispute by similarity",
			"email_id", email.ID,
			"dispute_id", neighbors[0].DisputeID,
			"similarity", neighbors[0].Similarity,
		)
		return neighbors[0].DisputeID, false, nil
	}

	dispute := &domain.CanonicalDispute{ID: uuid.New(), SupplierID: supplierID}
	if subject := strings.TrimSpace(email.Subject); subject != "" {
		dispute.DisputeSummary = &subject
	}
	if err := e.disputes.Create(dbc, dispute); err != nil {
		return uuid.Nil, false, fmt.Errorf("create dispute: %w", err)
	}
	return dispute.ID, true, nil
}

func (e *Engine) updateSummary(dbc dbctx.Context, disputeID uuid.UUID, email *domain.Email) error {
	candidate := summaryCandidate(email, e.cfg.SummaryBodyPrefixLen)
	if candidate == "" {
		return nil
	}
	dispute, err := e.disputes.GetByID(dbc, disputeID)
	if err != nil {
		return fmt.Errorf("summary load: %w", err)
	}
	current := ""
	if dispute.DisputeSummary != nil {
		current = *dispute.DisputeSummary
	}
	if !shouldReplaceSummary(current, candidate) {
		return nil
	}
	return e.disputes.UpdateSummary(dbc, disputeID, candidate)
}
