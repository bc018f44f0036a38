package disputes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/yungbote/disputeflow-backend/internal/domain"
)

func strptr(s string) *string { return &s }

func TestReconcileSummaries(t *testing.T) {
	cases := []struct {
		name   string
		target *string
		source *string
		want   *string
	}{
		{name: "both nil", target: nil, source: nil, want: nil},
		{name: "source nil keeps target", target: strptr("target"), source: nil, want: strptr("target")},
		{name: "target nil takes source", target: nil, source: strptr("source"), want: strptr("source")},
		{name: "longer source wins", target: strptr("short"), source: strptr("a longer summary"), want: strptr("a longer summary")},
		{name: "longer target wins", target: strptr("a longer summary"), source: strptr("short"), want: strptr("a longer summary")},
		{name: "tie keeps target", target: strptr("aaaa"), source: strptr("bbbb"), want: strptr("aaaa")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reconcileSummaries(tc.target, tc.source)
			switch {
			case tc.want == nil && got != nil:
				t.Fatalf("want=nil got=%q", *got)
			case tc.want != nil && got == nil:
				t.Fatalf("want=%q got=nil", *tc.want)
			case tc.want != nil && *got != *tc.want:
				t.Fatalf("want=%q got=%q", *tc.want, *got)
			}
		})
	}
}

func TestMergeMovesEverythingAndDeletesSource(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}
	engine, store := newTestEngine(DefaultConfig(), embedder)

	supplierID := seedSupplier(store, "Acme Parts")
	target := seedDispute(store, supplierID, "short", []float32{1, 0, 0, 0}, "shared document text")
	source := seedDispute(store, supplierID, "a much longer dispute summary", []float32{0, 1, 0, 0}, "shared document text")

	sourceOnlyDoc := &domain.DisputeDocument{
		ID:           uuid.New(),
		DisputeID:    source,
		SupplierID:   supplierID,
		DocumentText: "source-only document text",
	}
	store.documents[sourceOnlyDoc.ID] = sourceOnlyDoc
	store.links["msg-src-1"] = source
	store.links["msg-src-2"] = source
	store.links["msg-tgt-1"] = target

	if err := engine.merge(testDBC(), source, target); err != nil {
		t.Fatalf("merge: unexpected error: %v", err)
	}

	if _, ok := store.disputes[source]; ok {
		t.Fatalf("source dispute %s must be deleted after merge", source)
	}
	got := store.disputes[target]
	if got.DisputeSummary == nil || *got.DisputeSummary != "a much longer dispute summary" {
		t.Fatalf("merged summary: want=%q got=%v", "a much longer dispute summary", got.DisputeSummary)
	}
	for emailID, disputeID := range store.links {
		if disputeID != target {
			t.Fatalf("link %s: want=%s got=%s", emailID, target, disputeID)
		}
	}
	for _, emb := range store.embeddings {
		if emb.DisputeID != target {
			t.Fatalf("embedding %s: want dispute %s got %s", emb.ID, target, emb.DisputeID)
		}
	}

	// The duplicate text is dropped; the source-only document moves over.
	if count := len(store.documents); count != 2 {
		t.Fatalf("document count after merge: want=2 got=%d", count)
	}
	for _, doc := range store.documents {
		if doc.DisputeID != target {
			t.Fatalf("document %q: want dispute %s got %s", doc.DocumentText, target, doc.DisputeID)
		}
	}
	if store.documents[sourceOnlyDoc.ID] == nil {
		t.Fatalf("source-only document must survive the merge")
	}
}

func TestMergeRefusesCrossSupplier(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}
	engine, store := newTestEngine(DefaultConfig(), embedder)

	supplierA := seedSupplier(store, "Acme Parts")
	supplierB := seedSupplier(store, "Borealis Freight")
	target := seedDispute(store, supplierA, "acme", []float32{1, 0, 0, 0}, "acme doc")
	source := seedDispute(store, supplierB, "borealis", []float32{1, 0, 0, 0}, "borealis doc")

	if err := engine.merge(testDBC(), source, target); err == nil {
		t.Fatalf("cross-supplier merge must fail")
	}
	if _, ok := store.disputes[source]; !ok {
		t.Fatalf("failed merge must not delete the source dispute")
	}
}

func TestMergeSweepStopsBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.9

	embedder := &fakeEmbedder{fallback: []float32{1, 0, 0, 0}}
	engine, store := newTestEngine(cfg, embedder)

	supplierID := seedSupplier(store, "Acme Parts")
	near := seedDispute(store, supplierID, "near duplicate", []float32{1, 0, 0, 0}, "near doc")
	far := seedDispute(store, supplierID, "unrelated", []float32{0, 1, 0, 0}, "far doc")

	target := seedDispute(store, supplierID, "target", []float32{1, 0, 0, 0}, "target doc")

	if err := engine.mergeSweep(testDBC(), target, supplierID, pgvector.NewVector([]float32{1, 0, 0, 0})); err != nil {
		t.Fatalf("mergeSweep: unexpected error: %v", err)
	}

	if _, ok := store.disputes[near]; ok {
		t.Fatalf("near-duplicate dispute %s must be merged away", near)
	}
	if _, ok := store.disputes[far]; !ok {
		t.Fatalf("orthogonal dispute %s must survive the sweep", far)
	}
	if _, ok := store.disputes[target]; !ok {
		t.Fatalf("sweep target %s must survive", target)
	}
}
