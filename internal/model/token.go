package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one currently-valid session credential. Only the SHA-256
// of the raw secret is stored; the raw value travels in an httpOnly cookie
// and is seen by the server exactly once per use. A row is deleted exactly
// once — by rotation, logout, or account deactivation — never updated.
type RefreshToken struct {
	JTI       uuid.UUID `gorm:"type:uuid;primaryKey;column:jti" json:"jti"`
	TokenHash string    `gorm:"type:char(64);uniqueIndex;not null" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Expired reports whether the row is past its expiry at the given instant
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// InviteToken is a single-use, time-boxed registration credential scoped to
// exactly one organization. UsedAt is immutable once set.
type InviteToken struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Token          string     `gorm:"type:char(64);uniqueIndex;not null" json:"token"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	CreatedByID    uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_id"`
	ExpiresAt      time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt         *time.Time `json:"used_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Usable reports whether the invite can still be consumed at the given instant
func (i *InviteToken) Usable(now time.Time) bool {
	return i.UsedAt == nil && now.Before(i.ExpiresAt)
}
