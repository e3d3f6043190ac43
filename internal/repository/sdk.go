package repository

import (
	"context"
	"errors"
	"mergeflow/internal/model"

	"gorm.io/gorm"
)

// SDKRepository defines the interface for SDK key validation.
type SDKRepository interface {
	ValidateAPIKey(ctx context.Context, apiKey, project string) (bool, error)
}

type SDKKeyRepository struct {
	db *gorm.DB
}

func NewSDKKeyRepository(db *gorm.DB) *SDKKeyRepository {
	return &SDKKeyRepository{db: db}
}

func (r *SDKKeyRepository) ValidateAPIKey(ctx context.Context, apiKey, project string) (bool, error) {
	var client model.SDKClient
	err := r.db.WithContext(ctx).
		Where("api_key = ? AND project = ? AND status = 1", apiKey, project).
		First(&client).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
