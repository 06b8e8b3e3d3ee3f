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
	"gorm.io/gorm"
)

// DefaultInviteTTL time-boxes invites when the caller does not say otherwise
const DefaultInviteTTL = 72 * time.Hour

type CreateInviteRequest struct {
	OrganizationID string `json:"organization_id" binding:"required,uuid"`
	ExpiresInHours int    `json:"expires_in_hours" binding:"omitempty,min=1,max=720"`
}

type RegisterRequest struct {
	Token    string `json:"token" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type InviteResponse struct {
	ID             string `json:"id"`
	Token          string `json:"token"`
	OrganizationID string `json:"organization_id"`
	ExpiresAt      string `json:"expires_at"`
	UsedAt         string `json:"used_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// InviteService owns invite creation and the invite-consuming registration flow
type InviteService interface {
	Create(ctx context.Context, actor auth.Identity, req CreateInviteRequest, ip string) (*InviteResponse, error)
	List(ctx context.Context, actor auth.Identity, page, limit int) ([]InviteResponse, int64, error)
	Register(ctx context.Context, req RegisterRequest, ip string) (*LoginResponse, string, error)
}

type inviteService struct {
	invites repository.InviteRepository
	users   repository.UserRepository
	tenancy repository.TenancyRepository
	tokens  *auth.TokenService
	audit   AuditService
	txm     repository.TransactionManager
}

func NewInviteService(
	invites repository.InviteRepository,
	users repository.UserRepository,
	tenancy repository.TenancyRepository,
	tokens *auth.TokenService,
	audit AuditService,
	txm repository.TransactionManager,
) InviteService {
	return &inviteService{
		invites: invites,
		users:   users,
		tenancy: tenancy,
		tokens:  tokens,
		audit:   audit,
		txm:     txm,
	}
}

func mapInvite(inv *model.InviteToken) InviteResponse {
	usedAt := ""
	if inv.UsedAt != nil {
		usedAt = inv.UsedAt.UTC().Format(time.RFC3339)
	}
	return InviteResponse{
		ID:             inv.ID.String(),
		Token:          inv.Token,
		OrganizationID: inv.OrganizationID.String(),
		ExpiresAt:      inv.ExpiresAt.UTC().Format(time.RFC3339),
		UsedAt:         usedAt,
		CreatedAt:      inv.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create mints a single-use invite scoped to exactly one organization. The
// organization is resolved under the caller's scope predicate, so an org in
// another tenant is indistinguishable from a missing one.
func (s *inviteService) Create(ctx context.Context, actor auth.Identity, req CreateInviteRequest, ip string) (*InviteResponse, error) {
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		return nil, apperr.Validation("organization_id", "must be a valid UUID")
	}

	org, err := s.tenancy.GetOrganization(ctx, orgID, scope.For(scope.Organizations, actor))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	ttl := DefaultInviteTTL
	if req.ExpiresInHours > 0 {
		ttl = time.Duration(req.ExpiresInHours) * time.Hour
	}

	invite := &model.InviteToken{
		Token:          token,
		OrganizationID: org.ID,
		CreatedByID:    actor.UserID,
		ExpiresAt:      time.Now().Add(ttl),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditInviteCreated,
		Entity:   model.EntityInvite,
		EntityID: invite.ID.String(),
		Details:  map[string]interface{}{"organization_id": org.ID.String()},
		IP:       ip,
	})

	res := mapInvite(invite)
	return &res, nil
}

func (s *inviteService) List(ctx context.Context, actor auth.Identity, page, limit int) ([]InviteResponse, int64, error) {
	invites, total, err := s.invites.ListByCreator(ctx, actor.UserID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]InviteResponse, 0, len(invites))
	for i := range invites {
		res = append(res, mapInvite(&invites[i]))
	}
	return res, total, nil
}

// Register consumes an invite exactly once and creates a client account with
// a direct membership in the invite's organization. The conditional
// used_at IS NULL update closes the double-consumption race.
func (s *inviteService) Register(ctx context.Context, req RegisterRequest, ip string) (*LoginResponse, string, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	var user *model.User
	var orgID uuid.UUID

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		invite, err := s.invites.GetByToken(txCtx, req.Token)
		if err != nil {
			return apperr.Validation("token", "invalid or expired invite")
		}
		if !invite.Usable(time.Now()) {
			return apperr.Validation("token", "invalid or expired invite")
		}
		orgID = invite.OrganizationID

		if _, err := s.users.GetByEmail(txCtx, req.Email); err == nil {
			return apperr.ErrConflict
		}

		clientRole, err := s.users.GetRoleByName(txCtx, model.RoleClient)
		if err != nil {
			return err
		}

		user = &model.User{
			Email:        req.Email,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := s.users.Create(txCtx, user); err != nil {
			return err
		}
		if err := s.users.ReplaceRoles(txCtx, user, []model.Role{*clientRole}); err != nil {
			return err
		}
		if err := s.tenancy.AddOrganizationMember(txCtx, &model.OrganizationMember{
			OrganizationID: invite.OrganizationID,
			UserID:         user.ID,
		}); err != nil {
			return err
		}

		// Losing the race to another registration rolls the whole flow back
		if err := s.invites.MarkUsed(txCtx, invite.ID, time.Now()); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Validation("token", "invalid or expired invite")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	user.Roles = []model.Role{{Name: model.RoleClient}}
	accessToken, err := s.tokens.IssueAccessToken(user.ID, []string{model.RoleClient})
	if err != nil {
		return nil, "", err
	}
	rawRefresh, err := s.tokens.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &user.ID,
		Action:   model.AuditRegister,
		Entity:   model.EntityOrganization,
		EntityID: orgID.String(),
		Details:  map[string]interface{}{"email": req.Email},
		IP:       ip,
	})

	return &LoginResponse{AccessToken: accessToken, User: mapToResponse(user)}, rawRefresh, nil
}
