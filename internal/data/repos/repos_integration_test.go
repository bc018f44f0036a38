package repos

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/dbctx"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// Integration tests run only against a real Postgres with pgvector; set
// TEST_POSTGRES_DSN to enable them. Each test works inside a rolled-back
// transaction so the database stays clean.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping Postgres integration test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open test postgres: %v", err)
	}
	for _, stmt := range []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("extension setup: %v", err)
		}
	}
	if err := db.AutoMigrate(
		&domain.Supplier{},
		&domain.Email{},
		&domain.CanonicalDispute{},
		&domain.DisputeEmailLink{},
		&domain.DisputeDocument{},
		&domain.DisputeEmbedding{},
	); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	return db
}

func testLog() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func inTx(t *testing.T, db *gorm.DB, fn func(dbc dbctx.Context)) {
	t.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	defer tx.Rollback()
	fn(dbctx.Context{Ctx: context.Background(), Tx: tx})
}

func vec1536(lead ...float32) pgvector.Vector {
	full := make([]float32, 1536)
	copy(full, lead)
	return pgvector.NewVector(full)
}

func TestSupplierFindOrCreateConverges(t *testing.T) {
	db := openTestDB(t)
	repo := NewSupplierRepo(db, testLog())

	inTx(t, db, func(dbc dbctx.Context) {
		name := "Integration Supplier " + uuid.NewString()
		first, err := repo.FindOrCreateByName(dbc, name)
		if err != nil {
			t.Fatalf("first FindOrCreateByName: %v", err)
		}
		second, err := repo.FindOrCreateByName(dbc, name)
		if err != nil {
			t.Fatalf("second FindOrCreateByName: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("supplier id diverged: want=%s got=%s", first.ID, second.ID)
		}
	})
}

func TestEmailCreateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewEmailRepo(db, testLog())

	inTx(t, db, func(dbc dbctx.Context) {
		email := &domain.Email{ID: "it-" + uuid.NewString(), Sender: "x@y.example"}
		created, err := repo.Create(dbc, email)
		if err != nil {
			t.Fatalf("first create: %v", err)
		}
		if !created {
			t.Fatalf("first create: want inserted=true")
		}
		again, err := repo.Create(dbc, &domain.Email{ID: email.ID, Sender: "other@y.example"})
		if err != nil {
			t.Fatalf("second create: %v", err)
		}
		if again {
			t.Fatalf("second create: want inserted=false")
		}
	})
}

func TestLinkCreateRejectsSecondLink(t *testing.T) {
	db := openTestDB(t)
	emails := NewEmailRepo(db, testLog())
	disputes := NewCanonicalDisputeRepo(db, testLog())
	links := NewDisputeEmailLinkRepo(db, testLog())

	inTx(t, db, func(dbc dbctx.Context) {
		supplierID := uuid.New()
		if err := dbc.Tx.Create(&domain.Supplier{ID: supplierID, Name: "S " + uuid.NewString()}).Error; err != nil {
			t.Fatalf("seed supplier: %v", err)
		}
		email := &domain.Email{ID: "it-" + uuid.NewString(), Sender: "x@y.example"}
		if _, err := emails.Create(dbc, email); err != nil {
			t.Fatalf("seed email: %v", err)
		}
		d1 := &domain.CanonicalDispute{ID: uuid.New(), SupplierID: supplierID}
		d2 := &domain.CanonicalDispute{ID: uuid.New(), SupplierID: supplierID}
		if err := disputes.Create(dbc, d1); err != nil {
			t.Fatalf("seed dispute 1: %v", err)
		}
		if err := disputes.Create(dbc, d2); err != nil {
			t.Fatalf("seed dispute 2: %v", err)
		}

		if err := links.Create(dbc, &domain.DisputeEmailLink{EmailID: email.ID, DisputeID: d1.ID}); err != nil {
			t.Fatalf("first link: %v", err)
		}
		err := links.Create(dbc, &domain.DisputeEmailLink{EmailID: email.ID, DisputeID: d2.ID})
		if !errors.Is(err, ErrEmailAlreadyLinked) {
			t.Fatalf("second link: want ErrEmailAlreadyLinked got %v", err)
		}
	})
}

func TestNearestOrdersBySimilarityWithStableTies(t *testing.T) {
	db := openTestDB(t)
	embeddings := NewDisputeEmbeddingRepo(db, testLog())

	inTx(t, db, func(dbc dbctx.Context) {
		supplierID := uuid.New()
		if err := dbc.Tx.Create(&domain.Supplier{ID: supplierID, Name: "S " + uuid.NewString()}).Error; err != nil {
			t.Fatalf("seed supplier: %v", err)
		}

		near := uuid.New()
		far := uuid.New()
		for _, seed := range []struct {
			disputeID uuid.UUID
			vec       pgvector.Vector
		}{
			{disputeID: near, vec: vec1536(1, 0)},
			{disputeID: far, vec: vec1536(0, 1)},
		} {
			if err := dbc.Tx.Create(&domain.CanonicalDispute{ID: seed.disputeID, SupplierID: supplierID}).Error; err != nil {
				t.Fatalf("seed dispute: %v", err)
			}
			if err := embeddings.Create(dbc, &domain.DisputeEmbedding{
				ID:         uuid.New(),
				DisputeID:  seed.disputeID,
				SupplierID: supplierID,
				Embedding:  seed.vec,
				ModelName:  "test-model",
			}); err != nil {
				t.Fatalf("seed embedding: %v", err)
			}
		}

		neighbors, err := embeddings.Nearest(dbc, supplierID, vec1536(1, 0), 2, uuid.Nil)
		if err != nil {
			t.Fatalf("nearest: %v", err)
		}
		if len(neighbors) != 2 {
			t.Fatalf("neighbor count: want=2 got=%d", len(neighbors))
		}
		if neighbors[0].DisputeID != near {
			t.Fatalf("nearest dispute: want=%s got=%s", near, neighbors[0].DisputeID)
		}
		if neighbors[0].Similarity <= neighbors[1].Similarity {
			t.Fatalf("similarity ordering: %v then %v", neighbors[0].Similarity, neighbors[1].Similarity)
		}

		// Exclusion removes the dispute's own embeddings from the scan.
		excluded, err := embeddings.Nearest(dbc, supplierID, vec1536(1, 0), 2, near)
		if err != nil {
			t.Fatalf("nearest with exclusion: %v", err)
		}
		if len(excluded) != 1 || excluded[0].DisputeID != far {
			t.Fatalf("exclusion: want only %s got %+v", far, excluded)
		}
	})
}

// Identical embeddings produce an exact similarity tie; the smaller dispute
// id must come back first so reuse decisions are stable across runs.
func TestNearestTieBreaksOnDisputeID(t *testing.T) {
	db := openTestDB(t)
	embeddings := NewDisputeEmbeddingRepo(db, testLog())

	inTx(t, db, func(dbc dbctx.Context) {
		supplierID := uuid.New()
		if err := dbc.Tx.Create(&domain.Supplier{ID: supplierID, Name: "S " + uuid.NewString()}).Error; err != nil {
			t.Fatalf("seed supplier: %v", err)
		}

		d1 := uuid.New()
		d2 := uuid.New()
		for _, disputeID := range []uuid.UUID{d1, d2} {
			if err := dbc.Tx.Create(&domain.CanonicalDispute{ID: disputeID, SupplierID: supplierID}).Error; err != nil {
				t.Fatalf("seed dispute: %v", err)
			}
			if err := embeddings.Create(dbc, &domain.DisputeEmbedding{
				ID:         uuid.New(),
				DisputeID:  disputeID,
				SupplierID: supplierID,
				Embedding:  vec1536(1, 0),
				ModelName:  "test-model",
			}); err != nil {
				t.Fatalf("seed embedding: %v", err)
			}
		}
		want := d1
		if d2.String() < d1.String() {
			want = d2
		}

		neighbors, err := embeddings.Nearest(dbc, supplierID, vec1536(1, 0), 2, uuid.Nil)
		if err != nil {
			t.Fatalf("nearest: %v", err)
		}
		if len(neighbors) != 2 {
			t.Fatalf("neighbor count: want=2 got=%d", len(neighbors))
		}
		if neighbors[0].Similarity != neighbors[1].Similarity {
			t.Fatalf("tie setup broken: %v vs %v", neighbors[0].Similarity, neighbors[1].Similarity)
		}
		if neighbors[0].DisputeID != want {
			t.Fatalf("tie-break order: want=%s first got=%s", want, neighbors[0].DisputeID)
		}
	})
}
