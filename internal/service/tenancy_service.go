package service

import (
	"context"
	"errors"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/background"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/internal/scope"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateSectionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateSectionRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type CreateOrganizationRequest struct {
	Name      string `json:"name" binding:"required"`
	SectionID string `json:"section_id" binding:"required,uuid"`
}

type UpdateOrganizationRequest struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

type AddMemberRequest struct {
	UserID    string `json:"user_id" binding:"required,uuid"`
	RoleLabel string `json:"role_label"`
}

// TenancyFilter carries caller-supplied narrowing for list endpoints. It is
// converted to typed predicates and always conjoined with the scope
// predicate, never substituted for it.
type TenancyFilter struct {
	Query    string
	IsActive *bool
	Page     int
	Limit    int
}

// TenancyService owns the Section/Organization hierarchy behind scope predicates
type TenancyService interface {
	CreateSection(ctx context.Context, actor auth.Identity, req CreateSectionRequest, ip string) (*model.Section, error)
	GetSection(ctx context.Context, actor auth.Identity, id string) (*model.Section, error)
	ListSections(ctx context.Context, actor auth.Identity, f TenancyFilter) ([]model.Section, int64, error)
	UpdateSection(ctx context.Context, actor auth.Identity, id string, req UpdateSectionRequest, ip string) (*model.Section, error)
	DeleteSection(ctx context.Context, actor auth.Identity, id string, ip string) error
	AddSectionMember(ctx context.Context, actor auth.Identity, sectionID string, req AddMemberRequest, ip string) error
	RemoveSectionMember(ctx context.Context, actor auth.Identity, sectionID, userID string, ip string) error

	CreateOrganization(ctx context.Context, actor auth.Identity, req CreateOrganizationRequest, ip string) (*model.Organization, error)
	GetOrganization(ctx context.Context, actor auth.Identity, id string) (*model.Organization, error)
	ListOrganizations(ctx context.Context, actor auth.Identity, f TenancyFilter) ([]model.Organization, int64, error)
	UpdateOrganization(ctx context.Context, actor auth.Identity, id string, req UpdateOrganizationRequest, ip string) (*model.Organization, error)
	DeleteOrganization(ctx context.Context, actor auth.Identity, id string, ip string) error
	AddOrganizationMember(ctx context.Context, actor auth.Identity, orgID string, req AddMemberRequest, ip string) error
	RemoveOrganizationMember(ctx context.Context, actor auth.Identity, orgID, userID string, ip string) error
}

type tenancyService struct {
	repo     repository.TenancyRepository
	users    repository.UserRepository
	audit    AuditService
	activity ActivityService
	tasks    *background.Dispatcher
}

func NewTenancyService(
	repo repository.TenancyRepository,
	users repository.UserRepository,
	audit AuditService,
	activity ActivityService,
	tasks *background.Dispatcher,
) TenancyService {
	return &tenancyService{repo: repo, users: users, audit: audit, activity: activity, tasks: tasks}
}

// recomputeActivity refreshes the derived snapshot without the request
// waiting on it. Failures are logged by the dispatcher and dropped.
func (s *tenancyService) recomputeActivity(orgID uuid.UUID) {
	if s.activity == nil || s.tasks == nil {
		return
	}
	s.tasks.Dispatch("activity_snapshot", func(ctx context.Context) error {
		return s.activity.Recompute(ctx, orgID)
	})
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

// --- Sections ---

func (s *tenancyService) CreateSection(ctx context.Context, actor auth.Identity, req CreateSectionRequest, ip string) (*model.Section, error) {
	section := &model.Section{Name: req.Name, Description: req.Description}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditSectionCreated,
		Entity:   model.EntitySection,
		EntityID: section.ID.String(),
		Details:  map[string]interface{}{"name": section.Name},
		IP:       ip,
	})
	return section, nil
}

func (s *tenancyService) GetSection(ctx context.Context, actor auth.Identity, id string) (*model.Section, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	section, err := s.repo.GetSection(ctx, sid, scope.For(scope.Sections, actor))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return section, nil
}

func (s *tenancyService) ListSections(ctx context.Context, actor auth.Identity, f TenancyFilter) ([]model.Section, int64, error) {
	pred := scope.For(scope.Sections, actor)
	if f.Query != "" {
		pred = scope.And(pred, scope.Where("sections.name ILIKE ?", "%"+f.Query+"%"))
	}
	return s.repo.ListSections(ctx, pred, f.Page, f.Limit)
}

func (s *tenancyService) UpdateSection(ctx context.Context, actor auth.Identity, id string, req UpdateSectionRequest, ip string) (*model.Section, error) {
	section, err := s.GetSection(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.Name != "" && req.Name != section.Name {
		section.Name = req.Name
		changes["name"] = req.Name
	}
	if req.Description != nil {
		section.Description = *req.Description
		changes["description"] = *req.Description
	}

	if err := s.repo.UpdateSection(ctx, section); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditSectionUpdated,
		Entity:   model.EntitySection,
		EntityID: section.ID.String(),
		Details:  changes,
		IP:       ip,
	})
	return section, nil
}

func (s *tenancyService) DeleteSection(ctx context.Context, actor auth.Identity, id string, ip string) error {
	section, err := s.GetSection(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSection(ctx, section.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditSectionDeleted,
		Entity:   model.EntitySection,
		EntityID: section.ID.String(),
		Details:  map[string]interface{}{"name": section.Name},
		IP:       ip,
	})
	return nil
}

func (s *tenancyService) AddSectionMember(ctx context.Context, actor auth.Identity, sectionID string, req AddMemberRequest, ip string) error {
	section, err := s.GetSection(ctx, actor, sectionID)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperr.Validation("user_id", "must be a valid UUID")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return notFoundOr(err)
	}

	if err := s.repo.AddSectionMember(ctx, &model.SectionMember{
		SectionID: section.ID,
		UserID:    userID,
		RoleLabel: req.RoleLabel,
	}); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditMemberAdded,
		Entity:   model.EntitySection,
		EntityID: section.ID.String(),
		Details:  map[string]interface{}{"user_id": userID.String(), "role_label": req.RoleLabel},
		IP:       ip,
	})
	return nil
}

func (s *tenancyService) RemoveSectionMember(ctx context.Context, actor auth.Identity, sectionID, userID string, ip string) error {
	section, err := s.GetSection(ctx, actor, sectionID)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return apperr.ErrNotFound
	}

	if err := s.repo.RemoveSectionMember(ctx, section.ID, uid); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditMemberRemoved,
		Entity:   model.EntitySection,
		EntityID: section.ID.String(),
		Details:  map[string]interface{}{"user_id": uid.String()},
		IP:       ip,
	})
	return nil
}

// --- Organizations ---

func (s *tenancyService) CreateOrganization(ctx context.Context, actor auth.Identity, req CreateOrganizationRequest, ip string) (*model.Organization, error) {
	sectionID, err := uuid.Parse(req.SectionID)
	if err != nil {
		return nil, apperr.Validation("section_id", "must be a valid UUID")
	}

	// The owning section must itself be visible to the caller
	if _, err := s.repo.GetSection(ctx, sectionID, scope.For(scope.Sections, actor)); err != nil {
		return nil, notFoundOr(err)
	}

	org := &model.Organization{Name: req.Name, SectionID: sectionID, IsActive: true}
	if err := s.repo.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditOrgCreated,
		Entity:   model.EntityOrganization,
		EntityID: org.ID.String(),
		Details:  map[string]interface{}{"name": org.Name, "section_id": sectionID.String()},
		IP:       ip,
	})
	s.recomputeActivity(org.ID)
	return org, nil
}

func (s *tenancyService) GetOrganization(ctx context.Context, actor auth.Identity, id string) (*model.Organization, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	org, err := s.repo.GetOrganization(ctx, oid, scope.For(scope.Organizations, actor))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return org, nil
}

func (s *tenancyService) ListOrganizations(ctx context.Context, actor auth.Identity, f TenancyFilter) ([]model.Organization, int64, error) {
	pred := scope.For(scope.Organizations, actor)
	if f.Query != "" {
		pred = scope.And(pred, scope.Where("organizations.name ILIKE ?", "%"+f.Query+"%"))
	}
	if f.IsActive != nil {
		pred = scope.And(pred, scope.Where("organizations.is_active = ?", *f.IsActive))
	}
	return s.repo.ListOrganizations(ctx, pred, f.Page, f.Limit)
}

func (s *tenancyService) UpdateOrganization(ctx context.Context, actor auth.Identity, id string, req UpdateOrganizationRequest, ip string) (*model.Organization, error) {
	org, err := s.GetOrganization(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.Name != "" && req.Name != org.Name {
		org.Name = req.Name
		changes["name"] = req.Name
	}
	if req.IsActive != nil && *req.IsActive != org.IsActive {
		org.IsActive = *req.IsActive
		changes["is_active"] = *req.IsActive
	}

	if err := s.repo.UpdateOrganization(ctx, org); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditOrgUpdated,
		Entity:   model.EntityOrganization,
		EntityID: org.ID.String(),
		Details:  changes,
		IP:       ip,
	})
	return org, nil
}

func (s *tenancyService) DeleteOrganization(ctx context.Context, actor auth.Identity, id string, ip string) error {
	org, err := s.GetOrganization(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteOrganization(ctx, org.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditOrgDeleted,
		Entity:   model.EntityOrganization,
		EntityID: org.ID.String(),
		Details:  map[string]interface{}{"name": org.Name},
		IP:       ip,
	})
	return nil
}

func (s *tenancyService) AddOrganizationMember(ctx context.Context, actor auth.Identity, orgID string, req AddMemberRequest, ip string) error {
	org, err := s.GetOrganization(ctx, actor, orgID)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperr.Validation("user_id", "must be a valid UUID")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return notFoundOr(err)
	}

	if err := s.repo.AddOrganizationMember(ctx, &model.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userID,
	}); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditMemberAdded,
		Entity:   model.EntityOrganization,
		EntityID: org.ID.String(),
		Details:  map[string]interface{}{"user_id": userID.String()},
		IP:       ip,
	})
	s.recomputeActivity(org.ID)
	return nil
}

func (s *tenancyService) RemoveOrganizationMember(ctx context.Context, actor auth.Identity, orgID, userID string, ip string) error {
	org, err := s.GetOrganization(ctx, actor, orgID)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return apperr.ErrNotFound
	}

	if err := s.repo.RemoveOrganizationMember(ctx, org.ID, uid); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditMemberRemoved,
		Entity:   model.EntityOrganization,
		EntityID: org.ID.String(),
		Details:  map[string]interface{}{"user_id": uid.String()},
		IP:       ip,
	})
	s.recomputeActivity(org.ID)
	return nil
}
