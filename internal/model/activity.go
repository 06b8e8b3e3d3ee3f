package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrgActivitySnapshot is a derived per-organization view recomputed in the
// background after membership and login activity. Requests never wait on it.
type OrgActivitySnapshot struct {
	OrganizationID   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"organization_id"`
	MemberCount      int64           `gorm:"not null" json:"member_count"`
	LoginCount       int64           `gorm:"not null" json:"login_count"`
	MutationCount    int64           `gorm:"not null" json:"mutation_count"`
	LoginSuccessRate decimal.Decimal `gorm:"type:numeric(5,4)" json:"login_success_rate"`
	ComputedAt       time.Time       `gorm:"not null" json:"computed_at"`
}
