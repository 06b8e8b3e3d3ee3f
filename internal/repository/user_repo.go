package repository

import (
	"context"

	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page, limit int, query string) ([]model.User, int64, error)
	Update(ctx context.Context, user *model.User) error
	ReplaceRoles(ctx context.Context, user *model.User, roles []model.Role) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	HasPermission(ctx context.Context, userID uuid.UUID, entity, action string) (bool, error)
	PermissionCodes(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Roles").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Preload("Roles").First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, page, limit int, query string) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db).Model(&model.User{})
	if query != "" {
		db = db.Where("email ILIKE ?", "%"+query+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Roles").Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Omit("Roles").Save(user).Error
}

func (r *userRepository) ReplaceRoles(ctx context.Context, user *model.User, roles []model.Role) error {
	return GetDB(ctx, r.db).Model(user).Association("Roles").Replace(roles)
}

// HardDelete removes the row permanently. Callers enforce that the account
// is already deactivated; membership and session rows go with it.
func (r *userRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", id).Delete(&model.SectionMember{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&model.OrganizationMember{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Where("id = ?", id).Delete(&model.User{}).Error
}

func (r *userRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).First(&role, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// HasPermission is the live authorization check: a DB-backed existence query
// across user_roles → role_permissions → permissions for one (entity, action)
// pair. Deliberately never cached.
func (r *userRepository) HasPermission(ctx context.Context, userID uuid.UUID, entity, action string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Table("permissions").
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ? AND permissions.entity = ? AND permissions.action = ?", userID, entity, action).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PermissionCodes returns the user's live permission set as entity.action codes
func (r *userRepository) PermissionCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var perms []model.Permission
	err := GetDB(ctx, r.db).
		Table("permissions").
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Joins("JOIN user_roles ur ON ur.role_id = rp.role_id").
		Where("ur.user_id = ?", userID).
		Find(&perms).Error
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code())
	}
	return codes, nil
}
