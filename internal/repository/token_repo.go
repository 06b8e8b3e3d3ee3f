package repository

import (
	"context"

	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository stores session credentials. Rows are written once
// and deleted once; there is no update path.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	Consume(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

// Consume atomically deletes the row matching tokenHash and returns it.
// The single conditional DELETE ... RETURNING closes the rotation race: two
// concurrent rotations of the same token cannot both observe the row, so a
// consumed credential can never mint two sessions.
func (r *refreshTokenRepository) Consume(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var deleted []model.RefreshToken
	result := GetDB(ctx, r.db).
		Clauses(clause.Returning{}).
		Where("token_hash = ?", tokenHash).
		Delete(&deleted)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(deleted) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &deleted[0], nil
}

func (r *refreshTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	return GetDB(ctx, r.db).Where("token_hash = ?", tokenHash).Delete(&model.RefreshToken{}).Error
}

func (r *refreshTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error
}
