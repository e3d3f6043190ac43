package repository

import (
	"context"
	"errors"
	"mergeflow/internal/model"
	"time"

	"gorm.io/gorm"
)

// RevisionInterface defines the interface for feature revision persistence.
type RevisionInterface interface {
	GetByVersion(ctx context.Context, featureID uint64, version int) (*model.FeatureRevision, error)
	MaxVersion(ctx context.Context, featureID uint64) (int, error)
	ListByFeature(ctx context.Context, featureID uint64) ([]model.FeatureRevision, error)
	Create(ctx context.Context, rev *model.FeatureRevision) error
	Save(ctx context.Context, rev *model.FeatureRevision) error
	TransitionStatus(ctx context.Context, revisionID uint64, from []model.RevisionStatus, to model.RevisionStatus, operator string) (bool, error)
	WithTx(tx *gorm.DB) RevisionInterface
}

type RevisionRepository struct {
	db *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

func (r *RevisionRepository) GetByVersion(ctx context.Context, featureID uint64, version int) (*model.FeatureRevision, error) {
	var rev model.FeatureRevision
	if err := r.db.WithContext(ctx).Where("feature_id = ? AND version = ?", featureID, version).First(&rev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rev, nil
}

func (r *RevisionRepository) MaxVersion(ctx context.Context, featureID uint64) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&model.FeatureRevision{}).
		Where("feature_id = ?", featureID).
		Select("COALESCE(MAX(version), 0)").Scan(&max).Error
	return max, err
}

func (r *RevisionRepository) ListByFeature(ctx context.Context, featureID uint64) ([]model.FeatureRevision, error) {
	var revs []model.FeatureRevision
	err := r.db.WithContext(ctx).
		Where("feature_id = ?", featureID).
		Order("version DESC").
		Find(&revs).Error
	return revs, err
}

func (r *RevisionRepository) Create(ctx context.Context, rev *model.FeatureRevision) error {
	return r.db.WithContext(ctx).Create(rev).Error
}

func (r *RevisionRepository) Save(ctx context.Context, rev *model.FeatureRevision) error {
	return r.db.WithContext(ctx).Save(rev).Error
}

// TransitionStatus moves a revision between states only if it is still in
// one of the expected source states. A false return means another request
// transitioned it first; terminal transitions rely on this guard.
func (r *RevisionRepository) TransitionStatus(ctx context.Context, revisionID uint64, from []model.RevisionStatus, to model.RevisionStatus, operator string) (bool, error) {
	updates := map[string]any{"status": to}
	if to.Terminal() {
		now := time.Now()
		updates["closed_by"] = operator
		updates["closed_at"] = &now
	}
	res := r.db.WithContext(ctx).Model(&model.FeatureRevision{}).
		Where("id = ? AND status IN ?", revisionID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *RevisionRepository) WithTx(tx *gorm.DB) RevisionInterface {
	return &RevisionRepository{db: tx}
}
