package service

import (
	"context"
	"errors"
	"testing"

	"portal/internal/apperr"
	"portal/internal/auth"
	"portal/internal/model"
)

func newUserServiceUnderTest(t *testing.T, users ...*model.User) (UserService, *memUserRepo, *memTokenRepo, *recordingAudit) {
	t.Helper()
	repo := newMemUserRepo(users...)
	tokenRepo := newMemTokenRepo()
	tokens := auth.NewTokenService(tokenRepo, repo, []byte("test-secret"))
	audit := &recordingAudit{}
	svc := NewUserService(repo, tokens, audit, passThroughTxm{})
	return svc, repo, tokenRepo, audit
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	inactive := staffUser(t, "inactive@example.com", "correct-pass", model.RoleManager, false)
	active := staffUser(t, "active@example.com", "correct-pass", model.RoleManager, true)
	svc, _, tokenRepo, audit := newUserServiceUnderTest(t, inactive, active)
	ctx := context.Background()

	cases := []struct {
		name   string
		req    LoginRequest
		reason string
	}{
		{"unknown account", LoginRequest{Email: "ghost@example.com", Password: "x"}, "unknown account"},
		{"bad password", LoginRequest{Email: "active@example.com", Password: "wrong"}, "bad password"},
		{"inactive account", LoginRequest{Email: "inactive@example.com", Password: "correct-pass"}, "inactive account"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, refresh, err := svc.Login(ctx, tc.req, "10.0.0.1")
			if !errors.Is(err, apperr.ErrUnauthorized) {
				t.Fatalf("got %v, want ErrUnauthorized", err)
			}
			if res != nil || refresh != "" {
				t.Error("failed login leaked credentials")
			}

			// The uniform error still leaves a precise trail server-side
			entry, ok := audit.last()
			if !ok || entry.Action != model.AuditLoginFailed {
				t.Fatalf("expected login_failed audit entry, got %+v", entry)
			}
			if entry.Details["reason"] != tc.reason {
				t.Errorf("audit reason = %v, want %q", entry.Details["reason"], tc.reason)
			}
		})
	}

	if tokenRepo.count() != 0 {
		t.Error("failed logins minted sessions")
	}
}

func TestLoginSuccessIssuesBothTokens(t *testing.T) {
	user := staffUser(t, "mgr@example.com", "correct-pass", model.RoleManager, true)
	svc, _, tokenRepo, audit := newUserServiceUnderTest(t, user)

	res, refresh, err := svc.Login(context.Background(), LoginRequest{
		Email:    "mgr@example.com",
		Password: "correct-pass",
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AccessToken == "" {
		t.Error("no access token")
	}
	if refresh == "" {
		t.Error("no refresh token")
	}
	if res.User.Email != "mgr@example.com" || len(res.User.Roles) != 1 || res.User.Roles[0] != model.RoleManager {
		t.Errorf("profile = %+v", res.User)
	}

	// Only the hash goes to storage
	if tokenRepo.count() != 1 {
		t.Fatalf("session rows = %d, want 1", tokenRepo.count())
	}
	if _, err := tokenRepo.Consume(context.Background(), refresh); err == nil {
		t.Error("raw refresh value stored verbatim")
	}
	if _, err := tokenRepo.Consume(context.Background(), auth.HashToken(refresh)); err != nil {
		t.Error("hashed refresh value not stored")
	}

	if entry, ok := audit.last(); !ok || entry.Action != model.AuditLogin {
		t.Errorf("expected login audit entry, got %+v", entry)
	}
}

func TestCreateStaffRejectsNonStaffRole(t *testing.T) {
	svc, repo, _, audit := newUserServiceUnderTest(t)
	actor := auth.Identity{Roles: []string{model.RoleAdmin}}

	for _, role := range []string{model.RoleClient, "superuser", ""} {
		_, err := svc.CreateStaff(context.Background(), actor, CreateStaffRequest{
			Email:    "new@example.com",
			Password: "password123",
			Role:     role,
		}, "10.0.0.1")
		if !apperr.IsValidation(err) {
			t.Errorf("role %q: got %v, want validation error", role, err)
		}
	}
	if len(repo.users) != 0 || audit.count() != 0 {
		t.Error("rejected create left side effects")
	}
}

func TestCreateStaffConflictsOnDuplicateEmail(t *testing.T) {
	existing := staffUser(t, "taken@example.com", "pass1234", model.RoleManager, true)
	svc, _, _, _ := newUserServiceUnderTest(t, existing)
	actor := auth.Identity{Roles: []string{model.RoleAdmin}}

	_, err := svc.CreateStaff(context.Background(), actor, CreateStaffRequest{
		Email:    "taken@example.com",
		Password: "password123",
		Role:     model.RoleAccountant,
	}, "10.0.0.1")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestCreateStaffAssignsExactlyOneRole(t *testing.T) {
	svc, repo, _, audit := newUserServiceUnderTest(t)
	actor := auth.Identity{Roles: []string{model.RoleAdmin}}

	res, err := svc.CreateStaff(context.Background(), actor, CreateStaffRequest{
		Email:    "acct@example.com",
		Password: "password123",
		Role:     model.RoleAccountant,
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(res.Roles) != 1 || res.Roles[0] != model.RoleAccountant {
		t.Errorf("roles = %v", res.Roles)
	}

	created, err := repo.GetByEmail(context.Background(), "acct@example.com")
	if err != nil {
		t.Fatalf("created user missing: %v", err)
	}
	if !created.IsActive {
		t.Error("new staff account not active")
	}

	entry, ok := audit.last()
	if !ok || entry.Action != model.AuditStaffCreated {
		t.Fatalf("expected staff_created audit entry, got %+v", entry)
	}
	if _, leaked := entry.Details["password"]; leaked {
		t.Error("audit details carry the password")
	}
}

func TestUpdateStaffPeerAdminRefusedBeforeAnyWrite(t *testing.T) {
	actorAdmin := staffUser(t, "actor@example.com", "pass1234", model.RoleAdmin, true)
	peerAdmin := staffUser(t, "peer@example.com", "pass1234", model.RoleAdmin, true)
	svc, repo, _, audit := newUserServiceUnderTest(t, actorAdmin, peerAdmin)

	actor := auth.Identity{UserID: actorAdmin.ID, Roles: []string{model.RoleAdmin}}
	inactive := false

	for name, req := range map[string]UpdateStaffRequest{
		"role change": {Role: model.RoleManager},
		"deactivate":  {IsActive: &inactive},
	} {
		_, err := svc.UpdateStaff(context.Background(), actor, peerAdmin.ID.String(), req, "10.0.0.1")
		if !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("%s on peer admin: got %v, want ErrForbidden", name, err)
		}
	}

	if repo.updateCalls != 0 {
		t.Error("refused update reached the repository")
	}
	if audit.count() != 0 {
		t.Error("refused update produced an audit entry")
	}
}

func TestUpdateStaffPeerAdminEmailChangeAllowed(t *testing.T) {
	actorAdmin := staffUser(t, "actor@example.com", "pass1234", model.RoleAdmin, true)
	peerAdmin := staffUser(t, "peer@example.com", "pass1234", model.RoleAdmin, true)
	svc, _, _, _ := newUserServiceUnderTest(t, actorAdmin, peerAdmin)
	actor := auth.Identity{UserID: actorAdmin.ID, Roles: []string{model.RoleAdmin}}

	// Only role and is_active are privileged; other fields stay editable
	res, err := svc.UpdateStaff(context.Background(), actor, peerAdmin.ID.String(), UpdateStaffRequest{
		Email: "renamed@example.com",
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("email change on peer admin: %v", err)
	}
	if res.Email != "renamed@example.com" {
		t.Errorf("email = %s", res.Email)
	}
}

func TestUpdateStaffSelfDeactivationRefused(t *testing.T) {
	admin := staffUser(t, "admin@example.com", "pass1234", model.RoleAdmin, true)
	svc, repo, _, _ := newUserServiceUnderTest(t, admin)
	actor := auth.Identity{UserID: admin.ID, Roles: []string{model.RoleAdmin}}
	inactive := false

	_, err := svc.UpdateStaff(context.Background(), actor, admin.ID.String(), UpdateStaffRequest{
		IsActive: &inactive,
	}, "10.0.0.1")
	if !apperr.IsValidation(err) {
		t.Fatalf("self-deactivation: got %v, want validation error", err)
	}
	if repo.updateCalls != 0 {
		t.Error("refused self-deactivation reached the repository")
	}
	if !repo.users[admin.ID].IsActive {
		t.Error("account was deactivated anyway")
	}
}

func TestUpdateStaffDeactivationRevokesAllSessions(t *testing.T) {
	admin := staffUser(t, "admin@example.com", "pass1234", model.RoleAdmin, true)
	target := staffUser(t, "mgr@example.com", "pass1234", model.RoleManager, true)
	svc, _, tokenRepo, audit := newUserServiceUnderTest(t, admin, target)
	ctx := context.Background()

	tokens := auth.NewTokenService(tokenRepo, newMemUserRepo(), []byte("test-secret"))
	for i := 0; i < 2; i++ {
		if _, err := tokens.IssueRefreshToken(ctx, target.ID); err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}

	actor := auth.Identity{UserID: admin.ID, Roles: []string{model.RoleAdmin}}
	inactive := false
	res, err := svc.UpdateStaff(ctx, actor, target.ID.String(), UpdateStaffRequest{IsActive: &inactive}, "10.0.0.1")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if res.IsActive {
		t.Error("account still active")
	}
	if tokenRepo.count() != 0 {
		t.Errorf("sessions after deactivation = %d, want 0", tokenRepo.count())
	}

	entry, ok := audit.last()
	if !ok || entry.Action != model.AuditStaffUpdated {
		t.Fatalf("expected staff_updated audit entry, got %+v", entry)
	}
	if entry.Details["is_active"] != false {
		t.Errorf("audit changes = %v", entry.Details)
	}
}

func TestUpdateStaffPasswordChangeAuditsFlagOnly(t *testing.T) {
	admin := staffUser(t, "admin@example.com", "pass1234", model.RoleAdmin, true)
	target := staffUser(t, "mgr@example.com", "pass1234", model.RoleManager, true)
	svc, _, _, audit := newUserServiceUnderTest(t, admin, target)
	actor := auth.Identity{UserID: admin.ID, Roles: []string{model.RoleAdmin}}

	_, err := svc.UpdateStaff(context.Background(), actor, target.ID.String(), UpdateStaffRequest{
		Password: "new-password-1",
	}, "10.0.0.1")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	entry, _ := audit.last()
	if entry.Details["password_changed"] != true {
		t.Errorf("audit changes = %v, want password_changed flag", entry.Details)
	}
	for _, v := range entry.Details {
		if v == "new-password-1" {
			t.Fatal("raw password leaked into audit details")
		}
	}
}

func TestUpdateStaffUnknownIDIsNotFound(t *testing.T) {
	admin := staffUser(t, "admin@example.com", "pass1234", model.RoleAdmin, true)
	svc, _, _, _ := newUserServiceUnderTest(t, admin)
	actor := auth.Identity{UserID: admin.ID, Roles: []string{model.RoleAdmin}}

	for _, id := range []string{"not-a-uuid", "7b0f9d6e-24a3-4f0e-9a1f-0d9c1b3e5a77"} {
		if _, err := svc.UpdateStaff(context.Background(), actor, id, UpdateStaffRequest{}, "10.0.0.1"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("id %q: got %v, want ErrNotFound", id, err)
		}
	}
}

func TestDeleteStaffRequiresDeactivation(t *testing.T) {
	admin := staffUser(t, "admin@example.com", "pass1234", model.RoleAdmin, true)
	target := staffUser(t, "mgr@example.com", "pass1234", model.RoleManager, true)
	svc, repo, _, _ := newUserServiceUnderTest(t, admin, target)
	actor := auth.Identity{UserID: admin.ID, Roles: []string{model.RoleAdmin}}

	err := svc.DeleteStaff(context.Background(), actor, target.ID.String(), "10.0.0.1")
	if !apperr.IsValidation(err) {
		t.Fatalf("delete active account: got %v, want validation error", err)
	}
	if repo.deleteCalls != 0 {
		t.Error("active account was deleted")
	}
}

func TestDeleteStaffRemovesAccountAndSessions(t *testing.T) {
	admin := staffUser(t, "admin@example.com", "pass1234", model.RoleAdmin, true)
	target := staffUser(t, "mgr@example.com", "pass1234", model.RoleManager, false)
	svc, repo, tokenRepo, audit := newUserServiceUnderTest(t, admin, target)
	ctx := context.Background()

	tokens := auth.NewTokenService(tokenRepo, newMemUserRepo(), []byte("test-secret"))
	if _, err := tokens.IssueRefreshToken(ctx, target.ID); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	actor := auth.Identity{UserID: admin.ID, Roles: []string{model.RoleAdmin}}
	if err := svc.DeleteStaff(ctx, actor, target.ID.String(), "10.0.0.1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.GetByID(ctx, target.ID); err == nil {
		t.Error("account still present after delete")
	}
	if tokenRepo.count() != 0 {
		t.Error("sessions survived the delete")
	}
	if entry, ok := audit.last(); !ok || entry.Action != model.AuditStaffDeleted {
		t.Errorf("expected staff_deleted audit entry, got %+v", entry)
	}
}
