package repository

import (
	"context"
	"time"

	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditQuery narrows the audit read surface. Zero values mean "no filter".
type AuditQuery struct {
	Entity string
	UserID *uuid.UUID
	From   *time.Time // inclusive lower bound
	To     *time.Time // inclusive upper bound
	Search string     // matched against action, entity_id and ip_address
	Page   int
	Limit  int
}

// AuditRepository is the append-only event store. There is deliberately no
// update or delete method.
type AuditRepository interface {
	Append(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, q AuditQuery) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, q AuditQuery) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.AuditLog{})
	if q.Entity != "" {
		db = db.Where("entity = ?", q.Entity)
	}
	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}
	if q.From != nil {
		db = db.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("created_at <= ?", *q.To)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		db = db.Where("action ILIKE ? OR entity_id ILIKE ? OR ip_address ILIKE ?", pattern, pattern, pattern)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (q.Page - 1) * q.Limit
	if err := db.Order("created_at DESC").Offset(offset).Limit(q.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
