package service

import (
	"context"
	"errors"
	"time"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/internal/scope"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityService maintains the derived per-organization activity snapshot.
// Recompute runs only in the background; requests read the last snapshot.
type ActivityService interface {
	Recompute(ctx context.Context, orgID uuid.UUID) error
	Latest(ctx context.Context, actor auth.Identity, orgID string) (*model.OrgActivitySnapshot, error)
}

type activityService struct {
	db      *gorm.DB
	tenancy repository.TenancyRepository
}

func NewActivityService(db *gorm.DB, tenancy repository.TenancyRepository) ActivityService {
	return &activityService{db: db, tenancy: tenancy}
}

// Recompute rebuilds the snapshot row for one organization from membership
// and audit data. Each count is a single bounded round trip.
func (s *activityService) Recompute(ctx context.Context, orgID uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var memberCount int64
	if err := db.Model(&model.OrganizationMember{}).
		Where("organization_id = ?", orgID).
		Count(&memberCount).Error; err != nil {
		return err
	}

	memberLogins := db.Model(&model.AuditLog{}).
		Where("user_id IN (SELECT user_id FROM organization_members WHERE organization_id = ?)", orgID)

	var loginCount int64
	if err := memberLogins.Session(&gorm.Session{}).
		Where("action = ?", model.AuditLogin).
		Count(&loginCount).Error; err != nil {
		return err
	}

	var failedCount int64
	if err := memberLogins.Session(&gorm.Session{}).
		Where("action = ?", model.AuditLoginFailed).
		Count(&failedCount).Error; err != nil {
		return err
	}

	var mutationCount int64
	if err := db.Model(&model.AuditLog{}).
		Where("entity = ? AND entity_id = ?", model.EntityOrganization, orgID.String()).
		Count(&mutationCount).Error; err != nil {
		return err
	}

	rate := decimal.Zero
	if total := loginCount + failedCount; total > 0 {
		rate = decimal.NewFromInt(loginCount).Div(decimal.NewFromInt(total)).Round(4)
	}

	snapshot := model.OrgActivitySnapshot{
		OrganizationID:   orgID,
		MemberCount:      memberCount,
		LoginCount:       loginCount,
		MutationCount:    mutationCount,
		LoginSuccessRate: rate,
		ComputedAt:       time.Now().UTC(),
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}},
		UpdateAll: true,
	}).Create(&snapshot).Error
}

// Latest serves the snapshot behind the caller's scope predicate; an org
// outside scope reads as absent.
func (s *activityService) Latest(ctx context.Context, actor auth.Identity, orgID string) (*model.OrgActivitySnapshot, error) {
	oid, err := uuid.Parse(orgID)
	if err != nil {
		return nil, apperr.ErrNotFound
	}

	org, err := s.tenancy.GetOrganization(ctx, oid, scope.For(scope.Organizations, actor))
	if err != nil {
		return nil, notFoundOr(err)
	}

	var snapshot model.OrgActivitySnapshot
	if err := s.db.WithContext(ctx).First(&snapshot, "organization_id = ?", org.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}
