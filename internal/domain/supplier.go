package domain

import (
	"time"

	"github.com/google/uuid"
)

// UnknownSupplierName is the fixed name of the sentinel supplier that emails
// without a resolvable sender identity fall back to.
const UnknownSupplierName = "Unknown Supplier"

type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Supplier) TableName() string {
	return "supplier"
}
