package service

// Shared in-memory fakes for service tests. They record calls so tests can
// assert not only on results but on the absence of writes after a refusal.

import (
	"context"
	"errors"
	"sync"

	"portal/internal/auth"
	"portal/internal/model"
	"portal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type memUserRepo struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*model.User
	roles       map[string]*model.Role
	updateCalls int
	deleteCalls int
}

func newMemUserRepo(users ...*model.User) *memUserRepo {
	r := &memUserRepo{
		users: make(map[uuid.UUID]*model.User),
		roles: make(map[string]*model.Role),
	}
	for _, name := range []string{model.RoleAdmin, model.RoleManager, model.RoleAccountant, model.RoleClient} {
		r.roles[name] = &model.Role{ID: uuid.New(), Name: name}
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) List(_ context.Context, _, _ int, _ string) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *memUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) ReplaceRoles(_ context.Context, user *model.User, roles []model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.Roles = roles
	return nil
}

func (r *memUserRepo) HardDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) GetRoleByName(_ context.Context, name string) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.roles[name]; ok {
		return role, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) HasPermission(_ context.Context, _ uuid.UUID, _, _ string) (bool, error) {
	return false, nil
}

func (r *memUserRepo) PermissionCodes(_ context.Context, _ uuid.UUID) ([]string, error) {
	return []string{}, nil
}

type memTokenRepo struct {
	mu   sync.Mutex
	rows map[string]*model.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{rows: make(map[string]*model.RefreshToken)}
}

func (r *memTokenRepo) Create(_ context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[token.TokenHash] = token
	return nil
}

func (r *memTokenRepo) Consume(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[tokenHash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	delete(r.rows, tokenHash)
	return row, nil
}

func (r *memTokenRepo) DeleteByHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, tokenHash)
	return nil
}

func (r *memTokenRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, row := range r.rows {
		if row.UserID == userID {
			delete(r.rows, hash)
		}
	}
	return nil
}

func (r *memTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// recordingAudit captures entries instead of persisting them
type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAudit) Record(_ context.Context, e AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAudit) List(_ context.Context, _ AuditFilter) ([]AuditLogResponse, int64, error) {
	return nil, 0, nil
}

func (a *recordingAudit) last() (AuditEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return AuditEntry{}, false
	}
	return a.entries[len(a.entries)-1], true
}

func (a *recordingAudit) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// passThroughTxm runs the function directly; commit/rollback semantics are
// covered by the repository layer, not these tests.
type passThroughTxm struct{}

func (passThroughTxm) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type memAuditRepo struct {
	mu        sync.Mutex
	rows      []model.AuditLog
	appendErr error
	lastQuery repository.AuditQuery
}

func (r *memAuditRepo) Append(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *memAuditRepo) List(_ context.Context, q repository.AuditQuery) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuery = q
	return r.rows, int64(len(r.rows)), nil
}

var errBoom = errors.New("boom")

func mustHash(t interface{ Fatalf(string, ...interface{}) }, password string) string {
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func staffUser(t interface{ Fatalf(string, ...interface{}) }, email, password, role string, active bool) *model.User {
	return &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: mustHash(t, password),
		IsActive:     active,
		Roles:        []model.Role{{ID: uuid.New(), Name: role}},
	}
}
