package model

import (
	"time"

	"github.com/google/uuid"
)

// Built-in role names. Staff accounts hold exactly one of the first three;
// the client role is assigned through the invite/registration flow.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleAccountant = "accountant"
	RoleClient     = "client"
)

// Permission actions
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Permission entities
const (
	EntityUser         = "user"
	EntitySection      = "section"
	EntityOrganization = "organization"
	EntityInvite       = "invite"
	EntityAuditLog     = "audit_log"
)

// Role represents a named role with its associated permissions
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // Prevent deletion of built-in roles
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents a single (entity, action) pair assignable to roles
type Permission struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Entity string    `gorm:"type:varchar(50);not null;index:idx_permissions_entity_action,unique" json:"entity"`
	Action string    `gorm:"type:varchar(50);not null;index:idx_permissions_entity_action,unique" json:"action"`
}

// Code renders the permission as "entity.action" for API responses
func (p Permission) Code() string {
	return p.Entity + "." + p.Action
}

// IsStaffRole reports whether name is one of the staff tiers
func IsStaffRole(name string) bool {
	return name == RoleAdmin || name == RoleManager || name == RoleAccountant
}
