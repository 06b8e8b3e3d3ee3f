package repository

import (
	"context"

	"portal/internal/model"
	"portal/internal/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenancyRepository reads and writes the tenancy hierarchy. Every read takes
// a scope predicate; single-row fetches apply it too, so a row outside the
// caller's scope is indistinguishable from a missing row.
type TenancyRepository interface {
	CreateSection(ctx context.Context, s *model.Section) error
	GetSection(ctx context.Context, id uuid.UUID, p scope.Predicate) (*model.Section, error)
	ListSections(ctx context.Context, p scope.Predicate, page, limit int) ([]model.Section, int64, error)
	UpdateSection(ctx context.Context, s *model.Section) error
	DeleteSection(ctx context.Context, id uuid.UUID) error

	CreateOrganization(ctx context.Context, o *model.Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID, p scope.Predicate) (*model.Organization, error)
	ListOrganizations(ctx context.Context, p scope.Predicate, page, limit int) ([]model.Organization, int64, error)
	UpdateOrganization(ctx context.Context, o *model.Organization) error
	DeleteOrganization(ctx context.Context, id uuid.UUID) error

	AddSectionMember(ctx context.Context, m *model.SectionMember) error
	RemoveSectionMember(ctx context.Context, sectionID, userID uuid.UUID) error
	AddOrganizationMember(ctx context.Context, m *model.OrganizationMember) error
	RemoveOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) error
}

type tenancyRepository struct {
	db *gorm.DB
}

func NewTenancyRepository(db *gorm.DB) TenancyRepository {
	return &tenancyRepository{db: db}
}

func (r *tenancyRepository) CreateSection(ctx context.Context, s *model.Section) error {
	return GetDB(ctx, r.db).Create(s).Error
}

func (r *tenancyRepository) GetSection(ctx context.Context, id uuid.UUID, p scope.Predicate) (*model.Section, error) {
	var section model.Section
	db := p.Apply(GetDB(ctx, r.db).Model(&model.Section{}))
	if err := db.First(&section, "sections.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *tenancyRepository) ListSections(ctx context.Context, p scope.Predicate, page, limit int) ([]model.Section, int64, error) {
	var sections []model.Section
	var total int64

	db := p.Apply(GetDB(ctx, r.db).Model(&model.Section{}))
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name ASC").Offset(offset).Limit(limit).Find(&sections).Error; err != nil {
		return nil, 0, err
	}

	return sections, total, nil
}

func (r *tenancyRepository) UpdateSection(ctx context.Context, s *model.Section) error {
	return GetDB(ctx, r.db).Save(s).Error
}

func (r *tenancyRepository) DeleteSection(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Section{}).Error
}

func (r *tenancyRepository) CreateOrganization(ctx context.Context, o *model.Organization) error {
	return GetDB(ctx, r.db).Create(o).Error
}

func (r *tenancyRepository) GetOrganization(ctx context.Context, id uuid.UUID, p scope.Predicate) (*model.Organization, error) {
	var org model.Organization
	db := p.Apply(GetDB(ctx, r.db).Model(&model.Organization{}))
	if err := db.Preload("Section").First(&org, "organizations.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *tenancyRepository) ListOrganizations(ctx context.Context, p scope.Predicate, page, limit int) ([]model.Organization, int64, error) {
	var orgs []model.Organization
	var total int64

	db := p.Apply(GetDB(ctx, r.db).Model(&model.Organization{}))
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Section").Order("name ASC").Offset(offset).Limit(limit).Find(&orgs).Error; err != nil {
		return nil, 0, err
	}

	return orgs, total, nil
}

func (r *tenancyRepository) UpdateOrganization(ctx context.Context, o *model.Organization) error {
	return GetDB(ctx, r.db).Omit("Section").Save(o).Error
}

func (r *tenancyRepository) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Organization{}).Error
}

func (r *tenancyRepository) AddSectionMember(ctx context.Context, m *model.SectionMember) error {
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *tenancyRepository) RemoveSectionMember(ctx context.Context, sectionID, userID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("section_id = ? AND user_id = ?", sectionID, userID).
		Delete(&model.SectionMember{}).Error
}

func (r *tenancyRepository) AddOrganizationMember(ctx context.Context, m *model.OrganizationMember) error {
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *tenancyRepository) RemoveOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&model.OrganizationMember{}).Error
}
