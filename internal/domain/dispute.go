package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// CanonicalDispute is the deduplicated representation of one real-world
// dispute thread as currently understood. It is the aggregate root: links,
// documents, and embeddings are each owned by exactly one dispute at any
// instant. Created by the canonicalizer, mutated by the merge engine and the
// summary maintainer, deleted only when absorbed into another dispute.
type CanonicalDispute struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SupplierID     uuid.UUID `gorm:"type:uuid;not null;index" json:"supplier_id"`
	DisputeSummary *string   `gorm:"column:dispute_summary" json:"dispute_summary,omitempty"`
	CreatedAt      time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CanonicalDispute) TableName() string {
	return "canonical_dispute"
}

// DisputeEmailLink ties an email to its owning dispute. The primary key on
// email_id is the idempotency anchor: each email appears in at most one link,
// ever. Merges re-point links, never duplicate them.
type DisputeEmailLink struct {
	EmailID   string    `gorm:"column:email_id;primaryKey" json:"email_id"`
	DisputeID uuid.UUID `gorm:"type:uuid;not null;index" json:"dispute_id"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DisputeEmailLink) TableName() string {
	return "dispute_email_link"
}

// DisputeDocument is the rendered Subject/Sender/Date/Body record for one
// email. No two documents under the same dispute carry identical text; the
// engine checks before insert and merges dedup on relocation.
type DisputeDocument struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DisputeID    uuid.UUID `gorm:"type:uuid;not null;index" json:"dispute_id"`
	SupplierID   uuid.UUID `gorm:"type:uuid;not null;index" json:"supplier_id"`
	DocumentText string    `gorm:"column:document_text;not null" json:"document_text"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DisputeDocument) TableName() string {
	return "dispute_document"
}

// DisputeEmbedding is a dispute's semantic anchor. A dispute normally owns
// one embedding per distinct document; merges relocate embeddings, so several
// may coexist under one dispute. ModelName tags the producing embedding model
// for future provider migration.
type DisputeEmbedding struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DisputeID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"dispute_id"`
	SupplierID uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	ModelName  string          `gorm:"column:model_name;not null" json:"model_name"`
	CreatedAt  time.Time       `gorm:"not null;default:now()" json:"created_at"`
}

func (DisputeEmbedding) TableName() string {
	return "dispute_embedding"
}

// DisputeNeighbor is one similarity-search hit: a dispute in the same
// supplier scope with its best cosine similarity to the query vector.
type DisputeNeighbor struct {
	DisputeID  uuid.UUID `json:"dispute_id"`
	Similarity float64   `json:"similarity"`
}
