package repository

import (
	"context"
	"errors"
	"mergeflow/internal/model"
	"time"

	"gorm.io/gorm"
)

// FeatureInterface defines the interface for feature master persistence.
type FeatureInterface interface {
	GetByKey(ctx context.Context, project, key string) (*model.FeatureMaster, error)
	GetByID(ctx context.Context, id uint64) (*model.FeatureMaster, error)
	GetAll(ctx context.Context) ([]*model.FeatureMaster, error)
	List(ctx context.Context, project, search string) ([]*model.FeatureMaster, error)
	Save(ctx context.Context, master *model.FeatureMaster) error
	PromoteLive(ctx context.Context, id uint64, expectedVersion, newVersion int, defaultValue, rulesJSON, operator string) (bool, error)
	SaveChecklist(ctx context.Context, id uint64, checklistJSON string) error
	PingContext(ctx context.Context) error
	WithTx(tx *gorm.DB) FeatureInterface
}

type FeatureMasterRepository struct {
	db *gorm.DB
}

func NewFeatureMasterRepository(db *gorm.DB) *FeatureMasterRepository {
	return &FeatureMasterRepository{db: db}
}

func (r *FeatureMasterRepository) GetByKey(ctx context.Context, project, key string) (*model.FeatureMaster, error) {
	var feature model.FeatureMaster
	if err := r.db.WithContext(ctx).Where("project = ? AND `key` = ?", project, key).First(&feature).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feature, nil
}

func (r *FeatureMasterRepository) GetByID(ctx context.Context, id uint64) (*model.FeatureMaster, error) {
	var feature model.FeatureMaster
	if err := r.db.WithContext(ctx).First(&feature, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &feature, nil
}

func (r *FeatureMasterRepository) GetAll(ctx context.Context) ([]*model.FeatureMaster, error) {
	var features []*model.FeatureMaster
	err := r.db.WithContext(ctx).Find(&features).Error
	return features, err
}

func (r *FeatureMasterRepository) List(ctx context.Context, project, search string) ([]*model.FeatureMaster, error) {
	var features []*model.FeatureMaster
	query := r.db.WithContext(ctx)

	if project != "" {
		query = query.Where("project = ?", project)
	}
	if search != "" {
		query = query.Where("`key` LIKE ?", "%"+search+"%")
	}

	err := query.Order("updated_at DESC").Find(&features).Error
	return features, err
}

func (r *FeatureMasterRepository) Save(ctx context.Context, master *model.FeatureMaster) error {
	return r.db.WithContext(ctx).Save(master).Error
}

// PromoteLive is the optimistic-concurrency swap at the heart of publish:
// the live pointer only moves if it still holds the version the caller saw.
// Returns false when a concurrent publish won the race.
func (r *FeatureMasterRepository) PromoteLive(ctx context.Context, id uint64, expectedVersion, newVersion int, defaultValue, rulesJSON, operator string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.FeatureMaster{}).
		Where("id = ? AND live_version = ?", id, expectedVersion).
		Updates(map[string]any{
			"live_version":  newVersion,
			"default_value": defaultValue,
			"rules_json":    rulesJSON,
			"updated_by":    operator,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *FeatureMasterRepository) SaveChecklist(ctx context.Context, id uint64, checklistJSON string) error {
	return r.db.WithContext(ctx).Model(&model.FeatureMaster{}).
		Where("id = ?", id).
		Update("checklist_json", checklistJSON).Error
}

func (r *FeatureMasterRepository) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *FeatureMasterRepository) WithTx(tx *gorm.DB) FeatureInterface {
	return &FeatureMasterRepository{db: tx}
}
