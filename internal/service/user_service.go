package service

import (
	"context"
	"errors"
	"time"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/model"
	"portal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs for request validation
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateStaffRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

type UpdateStaffRequest struct {
	Email    string `json:"email" binding:"omitempty,email"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password" binding:"omitempty,min=8"`
}

// UserResponse returns a User without exposing sensitive data
type UserResponse struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	IsActive  bool     `json:"is_active"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// LoginResponse carries the access token and profile. The refresh token is
// deliberately absent: it travels only in the httpOnly cookie.
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	User        UserResponse `json:"user"`
}

type MeResponse struct {
	UserResponse
	Permissions []string `json:"permissions"`
}

// UserService owns login/logout and the staff account lifecycle
type UserService interface {
	Login(ctx context.Context, req LoginRequest, ip string) (*LoginResponse, string, error)
	Logout(ctx context.Context, actor auth.Identity, rawRefresh, ip string) error
	GetMe(ctx context.Context, userID uuid.UUID) (*MeResponse, error)

	CreateStaff(ctx context.Context, actor auth.Identity, req CreateStaffRequest, ip string) (*UserResponse, error)
	ListStaff(ctx context.Context, page, limit int, query string) ([]UserResponse, int64, error)
	GetStaff(ctx context.Context, id string) (*UserResponse, error)
	UpdateStaff(ctx context.Context, actor auth.Identity, id string, req UpdateStaffRequest, ip string) (*UserResponse, error)
	DeleteStaff(ctx context.Context, actor auth.Identity, id string, ip string) error
}

type userService struct {
	repo   repository.UserRepository
	tokens *auth.TokenService
	audit  AuditService
	txm    repository.TransactionManager
}

func NewUserService(repo repository.UserRepository, tokens *auth.TokenService, audit AuditService, txm repository.TransactionManager) UserService {
	return &userService{repo: repo, tokens: tokens, audit: audit, txm: txm}
}

func mapToResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		IsActive:  user.IsActive,
		Roles:     user.RoleNames(),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

// Login authenticates by email and password. Bad credentials and inactive
// accounts produce the identical ErrUnauthorized so account existence and
// state never leak through the response.
func (s *userService) Login(ctx context.Context, req LoginRequest, ip string) (*LoginResponse, string, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		s.audit.Record(ctx, AuditEntry{
			Action:  model.AuditLoginFailed,
			Details: map[string]interface{}{"email": req.Email, "reason": "unknown account"},
			IP:      ip,
		})
		return nil, "", apperr.ErrUnauthorized
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.audit.Record(ctx, AuditEntry{
			ActorID: &user.ID,
			Action:  model.AuditLoginFailed,
			Details: map[string]interface{}{"email": req.Email, "reason": "bad password"},
			IP:      ip,
		})
		return nil, "", apperr.ErrUnauthorized
	}

	if !user.IsActive {
		s.audit.Record(ctx, AuditEntry{
			ActorID: &user.ID,
			Action:  model.AuditLoginFailed,
			Details: map[string]interface{}{"email": req.Email, "reason": "inactive account"},
			IP:      ip,
		})
		return nil, "", apperr.ErrUnauthorized
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.RoleNames())
	if err != nil {
		return nil, "", err
	}
	rawRefresh, err := s.tokens.IssueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID: &user.ID,
		Action:  model.AuditLogin,
		IP:      ip,
	})

	return &LoginResponse{AccessToken: accessToken, User: mapToResponse(user)}, rawRefresh, nil
}

func (s *userService) Logout(ctx context.Context, actor auth.Identity, rawRefresh, ip string) error {
	if rawRefresh != "" {
		if err := s.tokens.RevokeOne(ctx, rawRefresh); err != nil {
			return err
		}
	}
	s.audit.Record(ctx, AuditEntry{
		ActorID: &actor.UserID,
		Action:  model.AuditLogout,
		IP:      ip,
	})
	return nil
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*MeResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	perms, err := s.repo.PermissionCodes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []string{}
	}

	return &MeResponse{UserResponse: mapToResponse(user), Permissions: perms}, nil
}

func (s *userService) CreateStaff(ctx context.Context, actor auth.Identity, req CreateStaffRequest, ip string) (*UserResponse, error) {
	// Staff accounts hold exactly one of admin/manager/accountant
	if !model.IsStaffRole(req.Role) {
		return nil, apperr.Validation("role", "must be one of admin, manager, accountant")
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperr.ErrConflict
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.repo.GetRoleByName(txCtx, req.Role)
		if err != nil {
			return apperr.Validation("role", "unknown role")
		}
		user = &model.User{
			Email:        req.Email,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := s.repo.Create(txCtx, user); err != nil {
			return err
		}
		return s.repo.ReplaceRoles(txCtx, user, []model.Role{*role})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditStaffCreated,
		Entity:   model.EntityUser,
		EntityID: user.ID.String(),
		Details:  map[string]interface{}{"email": req.Email, "role": req.Role},
		IP:       ip,
	})

	res := mapToResponse(user)
	res.Roles = []string{req.Role}
	return &res, nil
}

func (s *userService) ListStaff(ctx context.Context, page, limit int, query string) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit, query)
	if err != nil {
		return nil, 0, err
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, mapToResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) GetStaff(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	res := mapToResponse(user)
	return &res, nil
}

// UpdateStaff applies account changes under the peer-admin and self rules:
// nobody may change roles or is_active on a different admin account, and no
// account may deactivate itself. Both checks run before any write, so a
// refusal leaves no DB change and no audit row.
func (s *userService) UpdateStaff(ctx context.Context, actor auth.Identity, id string, req UpdateStaffRequest, ip string) (*UserResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.ErrNotFound
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	touchesPrivileged := req.Role != "" || req.IsActive != nil
	if touchesPrivileged && user.HasRole(model.RoleAdmin) && user.ID != actor.UserID {
		return nil, apperr.ErrForbidden
	}
	if user.ID == actor.UserID && req.IsActive != nil && !*req.IsActive {
		return nil, apperr.Validation("is_active", "cannot deactivate your own account")
	}
	if req.Role != "" && !model.IsStaffRole(req.Role) {
		return nil, apperr.Validation("role", "must be one of admin, manager, accountant")
	}

	changes := map[string]interface{}{}
	deactivated := false

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if req.Email != "" && req.Email != user.Email {
			if _, err := s.repo.GetByEmail(txCtx, req.Email); err == nil {
				return apperr.ErrConflict
			}
			user.Email = req.Email
			changes["email"] = req.Email
		}
		if req.Password != "" {
			hash, err := auth.HashPassword(req.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
			changes["password_changed"] = true
		}
		if req.IsActive != nil && *req.IsActive != user.IsActive {
			user.IsActive = *req.IsActive
			changes["is_active"] = *req.IsActive
			deactivated = !*req.IsActive
		}

		if err := s.repo.Update(txCtx, user); err != nil {
			return err
		}

		if req.Role != "" {
			role, err := s.repo.GetRoleByName(txCtx, req.Role)
			if err != nil {
				return apperr.Validation("role", "unknown role")
			}
			if err := s.repo.ReplaceRoles(txCtx, user, []model.Role{*role}); err != nil {
				return err
			}
			user.Roles = []model.Role{*role}
			changes["role"] = req.Role
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deactivation bulk-revokes every session for the account
	if deactivated {
		if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditStaffUpdated,
		Entity:   model.EntityUser,
		EntityID: user.ID.String(),
		Details:  changes,
		IP:       ip,
	})

	res := mapToResponse(user)
	return &res, nil
}

// DeleteStaff hard-deletes an account. Permitted only once the account is
// already deactivated; all sessions are revoked first.
func (s *userService) DeleteStaff(ctx context.Context, actor auth.Identity, id string, ip string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return apperr.ErrNotFound
	}
	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}

	if user.IsActive {
		return apperr.Validation("is_active", "account must be deactivated before deletion")
	}

	if err := s.tokens.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	if err := s.repo.HardDelete(ctx, user.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &actor.UserID,
		Action:   model.AuditStaffDeleted,
		Entity:   model.EntityUser,
		EntityID: user.ID.String(),
		Details:  map[string]interface{}{"email": user.Email},
		IP:       ip,
	})
	return nil
}
