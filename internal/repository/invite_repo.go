package repository

import (
	"context"
	"time"

	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InviteRepository stores single-use registration credentials
type InviteRepository interface {
	Create(ctx context.Context, invite *model.InviteToken) error
	GetByToken(ctx context.Context, token string) (*model.InviteToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	ListByCreator(ctx context.Context, createdByID uuid.UUID, page, limit int) ([]model.InviteToken, int64, error)
}

type inviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) Create(ctx context.Context, invite *model.InviteToken) error {
	return GetDB(ctx, r.db).Create(invite).Error
}

func (r *inviteRepository) GetByToken(ctx context.Context, token string) (*model.InviteToken, error) {
	var invite model.InviteToken
	if err := GetDB(ctx, r.db).First(&invite, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// MarkUsed sets used_at exactly once. The used_at IS NULL condition makes
// consumption race-safe: of two concurrent registrations with the same
// token, only one update touches a row.
func (r *inviteRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	result := GetDB(ctx, r.db).
		Model(&model.InviteToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", usedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *inviteRepository) ListByCreator(ctx context.Context, createdByID uuid.UUID, page, limit int) ([]model.InviteToken, int64, error) {
	var invites []model.InviteToken
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InviteToken{}).Where("created_by_id = ?", createdByID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&invites).Error; err != nil {
		return nil, 0, err
	}

	return invites, total, nil
}
