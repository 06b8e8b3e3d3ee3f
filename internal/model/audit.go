package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by this core
const (
	AuditLogin         = "login"
	AuditLoginFailed   = "login_failed"
	AuditLogout        = "logout"
	AuditRegister      = "register"
	AuditStaffCreated  = "staff_created"
	AuditStaffUpdated  = "staff_updated"
	AuditStaffDeleted  = "staff_deleted"
	AuditInviteCreated = "invite_created"

	AuditSectionCreated = "section_created"
	AuditSectionUpdated = "section_updated"
	AuditSectionDeleted = "section_deleted"
	AuditOrgCreated     = "organization_created"
	AuditOrgUpdated     = "organization_updated"
	AuditOrgDeleted     = "organization_deleted"
	AuditMemberAdded    = "member_added"
	AuditMemberRemoved  = "member_removed"
)

// AuditLog tracks Who, What, and When for every mutation. Rows are
// append-only and deliberately carry no foreign keys: the entity (or user) a
// row describes may be deleted later while the trail survives.
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Null for unauthenticated actions
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Entity    string     `gorm:"type:varchar(50);index" json:"entity"`
	EntityID  string     `gorm:"type:varchar(64);index" json:"entity_id"` // Logical reference, never a FK
	Details   string     `gorm:"type:jsonb" json:"details"`               // Serialized JSON payload of the action
	IPAddress string     `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
