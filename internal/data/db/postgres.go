package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/disputeflow-backend/internal/domain"
	"github.com/yungbote/disputeflow-backend/internal/platform/envutil"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := envutil.Str("POSTGRES_HOST", "localhost")
	postgresPort := envutil.Str("POSTGRES_PORT", "5432")
	postgresUser := envutil.Str("POSTGRES_USER", "postgres")
	postgresPassword := envutil.Str("POSTGRES_PASSWORD", "")
	postgresName := envutil.Str("POSTGRES_NAME", "disputeflow")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		log.Error("Failed to enable pgvector extension", "error", err)
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&domain.Supplier{},
		&domain.Email{},
		&domain.CanonicalDispute{},
		&domain.DisputeEmailLink{},
		&domain.DisputeDocument{},
		&domain.DisputeEmbedding{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// Approximate nearest-neighbor index for the similarity oracle. Cosine
	// opclass matches the 1 - (embedding <=> q) similarity definition.
	if err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_dispute_embedding_cosine
		ON dispute_embedding
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)
	`).Error; err != nil {
		return fmt.Errorf("failed to create dispute_embedding ann index: %w", err)
	}

	if err := s.db.Exec(`
		ALTER TABLE "dispute_email_link"
		DROP CONSTRAINT IF EXISTS "fk_dispute_email_link_email_id";
		ALTER TABLE "dispute_email_link"
		ADD CONSTRAINT "fk_dispute_email_link_email_id"
		FOREIGN KEY ("email_id")
		REFERENCES "email"("email_id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_dispute_email_link_email_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
