package database

import (
	"log"

	"portal/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.Permission{},
		&model.RefreshToken{},
		&model.InviteToken{},
		&model.AuditLog{},
		&model.Section{},
		&model.Organization{},
		&model.SectionMember{},
		&model.OrganizationMember{},
		&model.OrgActivitySnapshot{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// rolePermissions maps each built-in role to its permission codes
var rolePermissions = map[string][][2]string{
	model.RoleAdmin: {
		{model.EntityUser, model.ActionRead}, {model.EntityUser, model.ActionWrite}, {model.EntityUser, model.ActionDelete},
		{model.EntitySection, model.ActionRead}, {model.EntitySection, model.ActionWrite}, {model.EntitySection, model.ActionDelete},
		{model.EntityOrganization, model.ActionRead}, {model.EntityOrganization, model.ActionWrite}, {model.EntityOrganization, model.ActionDelete},
		{model.EntityInvite, model.ActionRead}, {model.EntityInvite, model.ActionWrite},
		{model.EntityAuditLog, model.ActionRead},
	},
	model.RoleManager: {
		{model.EntityUser, model.ActionRead},
		{model.EntitySection, model.ActionRead},
		{model.EntityOrganization, model.ActionRead}, {model.EntityOrganization, model.ActionWrite},
		{model.EntityInvite, model.ActionRead}, {model.EntityInvite, model.ActionWrite},
	},
	model.RoleAccountant: {
		{model.EntitySection, model.ActionRead},
		{model.EntityOrganization, model.ActionRead},
	},
	model.RoleClient: {
		{model.EntityOrganization, model.ActionRead},
	},
}

// Seed ensures the built-in roles and the permission catalog exist. Safe to
// run on every startup.
func Seed(db *gorm.DB) error {
	perms := map[[2]string]model.Permission{}
	for _, pairs := range rolePermissions {
		for _, pair := range pairs {
			if _, ok := perms[pair]; ok {
				continue
			}
			perm := model.Permission{Entity: pair[0], Action: pair[1]}
			if err := db.Where("entity = ? AND action = ?", pair[0], pair[1]).
				FirstOrCreate(&perm).Error; err != nil {
				return err
			}
			perms[pair] = perm
		}
	}

	for name, pairs := range rolePermissions {
		role := model.Role{Name: name, IsSystem: true}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return err
		}

		rolePerms := make([]model.Permission, 0, len(pairs))
		for _, pair := range pairs {
			rolePerms = append(rolePerms, perms[pair])
		}
		if err := db.Model(&role).Association("Permissions").Replace(rolePerms); err != nil {
			return err
		}
	}

	return nil
}
