package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Classification labels assigned by the LLM classifier.
const (
	LabelDispute    = "dispute"
	LabelAmbiguous  = "ambiguous"
	LabelNonDispute = "non_dispute"
)

// Email is an ingested supplier email. ID is the provider message id
// (Gmail message id for the Gmail connector) and is the dedup key for
// ingestion. Immutable once classified, except for supplier resolution.
type Email struct {
	ID                   string         `gorm:"column:email_id;primaryKey" json:"email_id"`
	ThreadID             string         `gorm:"column:thread_id;index" json:"thread_id"`
	SupplierID           *uuid.UUID     `gorm:"type:uuid;index" json:"supplier_id,omitempty"`
	Sender               string         `gorm:"not null" json:"sender"`
	Subject              string         `json:"subject"`
	Body                 string         `json:"body"`
	ReceivedAt           *time.Time     `json:"received_at,omitempty"`
	Processed            bool           `gorm:"not null;default:false;index" json:"processed"`
	Label                string         `json:"label"`
	Confidence           float64        `json:"confidence"`
	ClassificationReason string         `json:"classification_reason"`
	ClassificationRaw    datatypes.JSON `gorm:"type:jsonb" json:"classification_raw,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Email) TableName() string {
	return "email"
}

// Classification is the validated JSON shape returned by the classifier.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
