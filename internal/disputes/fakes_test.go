package disputes

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// memStore is an in-memory stand-in for the Postgres tables. The repo fakes
// below all share one store so cross-table behavior (merges, relinks) is
// observable from tests.
type memStore struct {
	suppliers  map[uuid.UUID]*domain.Supplier
	emails     map[string]*domain.Email
	disputes   map[uuid.UUID]*domain.CanonicalDispute
	links      map[string]uuid.UUID
	documents  map[uuid.UUID]*domain.DisputeDocument
	embeddings map[uuid.UUID]*domain.DisputeEmbedding
}

func newMemStore() *memStore {
	return &memStore{
		suppliers:  map[uuid.UUID]*domain.Supplier{},
		emails:     map[string]*domain.Email{},
		disputes:   map[uuid.UUID]*domain.CanonicalDispute{},
		links:      map[string]uuid.UUID{},
		documents:  map[uuid.UUID]*domain.DisputeDocument{},
		embeddings: map[uuid.UUID]*domain.DisputeEmbedding{},
	}
}

type fakeSupplierRepo struct{ store *memStore }

func (r *fakeSupplierRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Supplier, error) {
	s, ok := r.store.suppliers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (r *fakeSupplierRepo) FindOrCreateByName(_ dbctx.Context, name string) (*domain.Supplier, error) {
	for _, s := range r.store.suppliers {
		if s.Name == name {
			return s, nil
		}
	}
	s := &domain.Supplier{ID: uuid.New(), Name: name}
	r.store.suppliers[s.ID] = s
	return s, nil
}

type fakeEmailRepo struct{ store *memStore }

func (r *fakeEmailRepo) Create(_ dbctx.Context, email *domain.Email) (bool, error) {
	if _, ok := r.store.emails[email.ID]; ok {
		return false, nil
	}
	r.store.emails[email.ID] = email
	return true, nil
}

func (r *fakeEmailRepo) GetByID(_ dbctx.Context, id string) (*domain.Email, error) {
	e, ok := r.store.emails[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (r *fakeEmailRepo) GetByIDs(dbc dbctx.Context, ids []string) ([]*domain.Email, error) {
	var out []*domain.Email
	for _, id := range ids {
		if e, ok := r.store.emails[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEmailRepo) ListUnprocessed(dbctx.Context, int) ([]*domain.Email, error) {
	return nil, nil
}

func (r *fakeEmailRepo) ListRecentDisputes(dbctx.Context, time.Time, int) ([]*domain.Email, error) {
	return nil, nil
}

func (r *fakeEmailRepo) SetClassification(_ dbctx.Context, id string, c domain.Classification, raw datatypes.JSON) error {
	e, ok := r.store.emails[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Label = c.Label
	e.Confidence = c.Confidence
	e.ClassificationReason = c.Reason
	e.ClassificationRaw = raw
	e.Processed = true
	return nil
}

func (r *fakeEmailRepo) SetSupplier(_ dbctx.Context, id string, supplierID uuid.UUID) error {
	e, ok := r.store.emails[id]
	if !ok {
		return domain.ErrNotFound
	}
	sid := supplierID
	e.SupplierID = &sid
	return nil
}

type fakeDisputeRepo struct{ store *memStore }

func (r *fakeDisputeRepo) Create(_ dbctx.Context, d *domain.CanonicalDispute) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.store.disputes[d.ID] = d
	return nil
}

func (r *fakeDisputeRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.CanonicalDispute, error) {
	d, ok := r.store.disputes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (r *fakeDisputeRepo) UpdateSummary(_ dbctx.Context, id uuid.UUID, summary string) error {
	d, ok := r.store.disputes[id]
	if !ok {
		return domain.ErrNotFound
	}
	s := summary
	d.DisputeSummary = &s
	return nil
}

func (r *fakeDisputeRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	delete(r.store.disputes, id)
	return nil
}

type fakeLinkRepo struct{ store *memStore }

func (r *fakeLinkRepo) GetByEmailID(_ dbctx.Context, emailID string) (*domain.DisputeEmailLink, error) {
	disputeID, ok := r.store.links[emailID]
	if !ok {
		return nil, nil
	}
	return &domain.DisputeEmailLink{EmailID: emailID, DisputeID: disputeID}, nil
}

func (r *fakeLinkRepo) Create(_ dbctx.Context, link *domain.DisputeEmailLink) error {
	if _, ok := r.store.links[link.EmailID]; ok {
		return fmt.Errorf("duplicate link for email %s", link.EmailID)
	}
	r.store.links[link.EmailID] = link.DisputeID
	return nil
}

func (r *fakeLinkRepo) ListByDispute(_ dbctx.Context, disputeID uuid.UUID) ([]*domain.DisputeEmailLink, error) {
	var out []*domain.DisputeEmailLink
	for emailID, dID := range r.store.links {
		if dID == disputeID {
			out = append(out, &domain.DisputeEmailLink{EmailID: emailID, DisputeID: dID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmailID < out[j].EmailID })
	return out, nil
}

func (r *fakeLinkRepo) Relink(_ dbctx.Context, fromDisputeID, toDisputeID uuid.UUID) (int64, error) {
	var moved int64
	for emailID, dID := range r.store.links {
		if dID == fromDisputeID {
			r.store.links[emailID] = toDisputeID
			moved++
		}
	}
	return moved, nil
}

type fakeDocumentRepo struct{ store *memStore }

func (r *fakeDocumentRepo) Create(_ dbctx.Context, doc *domain.DisputeDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	r.store.documents[doc.ID] = doc
	return nil
}

func (r *fakeDocumentRepo) GetBySupplierAndText(_ dbctx.Context, supplierID uuid.UUID, text string) (*domain.DisputeDocument, error) {
	var ids []uuid.UUID
	for id, doc := range r.store.documents {
		if doc.SupplierID == supplierID && doc.DocumentText == text {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Slice(ids, func(i, j int) bool {
		return strings.Compare(ids[i].String(), ids[j].String()) < 0
	})
	return r.store.documents[ids[0]], nil
}

func (r *fakeDocumentRepo) ExistsByDisputeAndText(_ dbctx.Context, disputeID uuid.UUID, text string) (bool, error) {
	for _, doc := range r.store.documents {
		if doc.DisputeID == disputeID && doc.DocumentText == text {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeDocumentRepo) ListByDispute(_ dbctx.Context, disputeID uuid.UUID) ([]*domain.DisputeDocument, error) {
	var out []*domain.DisputeDocument
	for _, doc := range r.store.documents {
		if doc.DisputeID == disputeID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
	})
	return out, nil
}

func (r *fakeDocumentRepo) Reparent(_ dbctx.Context, docID, toDisputeID uuid.UUID) error {
	doc, ok := r.store.documents[docID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.DisputeID = toDisputeID
	return nil
}

func (r *fakeDocumentRepo) Delete(_ dbctx.Context, docID uuid.UUID) error {
	delete(r.store.documents, docID)
	return nil
}

type fakeEmbeddingRepo struct{ store *memStore }

func (r *fakeEmbeddingRepo) Create(_ dbctx.Context, emb *domain.DisputeEmbedding) error {
	if emb.ID == uuid.Nil {
		emb.ID = uuid.New()
	}
	r.store.embeddings[emb.ID] = emb
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (r *fakeEmbeddingRepo) nearest(query pgvector.Vector, k int, filter func(*domain.DisputeEmbedding) bool) []domain.DisputeNeighbor {
	best := map[uuid.UUID]float64{}
	q := query.Slice()
	for _, emb := range r.store.embeddings {
		if !filter(emb) {
			continue
		}
		sim := cosineSimilarity(q, emb.Embedding.Slice())
		if cur, ok := best[emb.DisputeID]; !ok || sim > cur {
			best[emb.DisputeID] = sim
		}
	}
	out := make([]domain.DisputeNeighbor, 0, len(best))
	for id, sim := range best {
		out = append(out, domain.DisputeNeighbor{DisputeID: id, Similarity: sim})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return strings.Compare(out[i].DisputeID.String(), out[j].DisputeID.String()) < 0
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func (r *fakeEmbeddingRepo) Nearest(_ dbctx.Context, supplierID uuid.UUID, query pgvector.Vector, k int, excludeDisputeID uuid.UUID) ([]domain.DisputeNeighbor, error) {
	return r.nearest(query, k, func(emb *domain.DisputeEmbedding) bool {
		if emb.SupplierID != supplierID {
			return false
		}
		return excludeDisputeID == uuid.Nil || emb.DisputeID != excludeDisputeID
	}), nil
}

func (r *fakeEmbeddingRepo) NearestAcrossSuppliers(_ dbctx.Context, query pgvector.Vector, k int) ([]domain.DisputeNeighbor, error) {
	return r.nearest(query, k, func(*domain.DisputeEmbedding) bool { return true }), nil
}

func (r *fakeEmbeddingRepo) Relink(_ dbctx.Context, fromDisputeID, toDisputeID uuid.UUID) (int64, error) {
	var moved int64
	for _, emb := range r.store.embeddings {
		if emb.DisputeID == fromDisputeID {
			emb.DisputeID = toDisputeID
			moved++
		}
	}
	return moved, nil
}

// fakeEmbedder returns canned vectors by exact text match and counts calls so
// tests can assert the fast path issued none.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	calls    int
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		if vec, ok := f.vectors[text]; ok {
			out[i] = vec
			continue
		}
		out[i] = f.fallback
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedModel() string { return "fake-embedding-model" }

func nopLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func newTestEngine(cfg Config, embedder Embedder) (*Engine, *memStore) {
	store := newMemStore()
	engine := NewEngine(
		nil,
		nopLogger(),
		cfg,
		embedder,
		&fakeSupplierRepo{store: store},
		&fakeEmailRepo{store: store},
		&fakeDisputeRepo{store: store},
		&fakeLinkRepo{store: store},
		&fakeDocumentRepo{store: store},
		&fakeEmbeddingRepo{store: store},
	)
	return engine, store
}
