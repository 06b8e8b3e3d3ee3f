package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Section is the upper tier of the tenancy hierarchy; it groups organizations
type Section struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Organization belongs to exactly one Section
type Organization struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	SectionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Section   *Section       `gorm:"foreignKey:SectionID" json:"section,omitempty"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SectionMember links a staff user to a Section. This is the ground truth the
// manager/accountant scope predicate reads.
type SectionMember struct {
	SectionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"section_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	RoleLabel string    `gorm:"type:varchar(50)" json:"role_label"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OrganizationMember links a user directly to an Organization. This is the
// ground truth the client scope predicate reads.
type OrganizationMember struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
