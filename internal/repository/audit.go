package repository

import (
	"context"
	"mergeflow/internal/model"

	"gorm.io/gorm"
)

// AuditInterface defines the interface for audit log persistence.
type AuditInterface interface {
	Create(ctx context.Context, audit *model.FeatureAudit) error
	FindByID(ctx context.Context, id uint) (*model.FeatureAudit, error)
	List(ctx context.Context, offset, limit int) ([]model.FeatureAudit, int64, error)
	ListByKey(ctx context.Context, project, key string) ([]model.FeatureAudit, error)
	WithTx(tx *gorm.DB) AuditInterface
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, audit *model.FeatureAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *AuditRepository) FindByID(ctx context.Context, id uint) (*model.FeatureAudit, error) {
	var audit model.FeatureAudit
	if err := r.db.WithContext(ctx).First(&audit, id).Error; err != nil {
		return nil, err
	}
	return &audit, nil
}

func (r *AuditRepository) List(ctx context.Context, offset, limit int) ([]model.FeatureAudit, int64, error) {
	var audits []model.FeatureAudit
	var total int64

	db := r.db.WithContext(ctx).Model(&model.FeatureAudit{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).Order("id DESC").Find(&audits).Error; err != nil {
		return nil, 0, err
	}

	return audits, total, nil
}

func (r *AuditRepository) ListByKey(ctx context.Context, project, key string) ([]model.FeatureAudit, error) {
	var audits []model.FeatureAudit
	err := r.db.WithContext(ctx).
		Where("project = ? AND `key` = ?", project, key).
		Order("created_at DESC").
		Find(&audits).Error
	return audits, err
}

func (r *AuditRepository) WithTx(tx *gorm.DB) AuditInterface {
	return &AuditRepository{db: tx}
}
