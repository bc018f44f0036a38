package disputes

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
)

// mergeSweep scans for near-duplicate disputes after a new embedding has been
// computed for disputeID. Every candidate at or above the threshold is merged
// into disputeID: the just-reinforced dispute is always the target, so the
// freshest embedding becomes canonical. Candidates below threshold are left
// untouched.
func (e *Engine) mergeSweep(dbc dbctx.Context, disputeID, supplierID uuid.UUID, vec pgvector.Vector) error {
	neighbors, err := e.embeddings.Nearest(dbc, supplierID, vec, e.cfg.SweepCandidates, disputeID)
	if err != nil {
		return fmt.Errorf("merge sweep search: %w", err)
	}
	for _, n := range neighbors {
		if n.Similarity < e.cfg.SimilarityThreshold {
			// Ordered descending; nothing further can qualify.
			break
		}
		if err := e.merge(dbc, n.DisputeID, disputeID); err != nil {
			return err
		}
		e.log.Info("merged near-duplicate dispute",
			"source_dispute_id", n.DisputeID,
			"target_dispute_id", disputeID,
			"similarity", n.Similarity,
		)
	}
	return nil
}

// merge absorbs source into target: summaries reconcile toward the longer
// text, links and embeddings re-point, documents re-parent with dedup on
// identical text, and the source dispute record is deleted. Runs inside the
// caller's transaction.
func (e *Engine) merge(dbc dbctx.Context, sourceID, targetID uuid.UUID) error {
	_, span := e.tracer.Start(dbc.Ctx, "disputes.merge",
		trace.WithAttributes(
			attribute.String("source.dispute_id", sourceID.String()),
			attribute.String("target.dispute_id", targetID.String()),
		))
	defer span.End()

	source, err := e.disputes.GetByID(dbc, sourceID)
	if err != nil {
		return fmt.Errorf("merge source load: %w", err)
	}
	target, err := e.disputes.GetByID(dbc, targetID)
	if err != nil {
		return fmt.Errorf("merge target load: %w", err)
	}
	if source.SupplierID != target.SupplierID {
		return fmt.Errorf("merge across suppliers refused: source=%s target=%s", source.SupplierID, target.SupplierID)
	}

	if winner := reconcileSummaries(target.DisputeSummary, source.DisputeSummary); winner != nil {
		if target.DisputeSummary == nil || *winner != *target.DisputeSummary {
			if err := e.disputes.UpdateSummary(dbc, targetID, *winner); err != nil {
				return fmt.Errorf("merge summary update: %w", err)
			}
		}
	}

	if _, err := e.links.Relink(dbc, sourceID, targetID); err != nil {
		return fmt.Errorf("merge relink emails: %w", err)
	}

	docs, err := e.documents.ListByDispute(dbc, sourceID)
	if err != nil {
		return fmt.Errorf("merge list documents: %w", err)
	}
	for _, doc := range docs {
		exists, err := e.documents.ExistsByDisputeAndText(dbc, targetID, doc.DocumentText)
		if err != nil {
			return fmt.Errorf("merge document dedup check: %w", err)
		}
		if exists {
			if err := e.documents.Delete(dbc, doc.ID); err != nil {
				return fmt.Errorf("merge document delete: %w", err)
			}
			continue
		}
		if err := e.documents.Reparent(dbc, doc.ID, targetID); err != nil {
			return fmt.Errorf("merge document reparent: %w", err)
		}
	}

	if _, err := e.embeddings.Relink(dbc, sourceID, targetID); err != nil {
		return fmt.Errorf("merge relink embeddings: %w", err)
	}

	if err := e.disputes.Delete(dbc, sourceID); err != nil {
		return fmt.Errorf("merge delete source: %w", err)
	}
	return nil
}

// reconcileSummaries keeps whichever summary is non-nil, preferring the
// longer when both are present. Ties keep the target's.
func reconcileSummaries(target, source *string) *string {
	if source == nil {
		return target
	}
	if target == nil {
		return source
	}
	if len(*source) > len(*target) {
		return source
	}
	return target
}
