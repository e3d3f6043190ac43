package repository

import (
	"context"
	"mergeflow/internal/model"

	"gorm.io/gorm"
)

// ReviewInterface defines the interface for review submission persistence.
// Submissions are append-only.
type ReviewInterface interface {
	Create(ctx context.Context, sub *model.ReviewSubmission) error
	ListByRevision(ctx context.Context, revisionID uint64) ([]model.ReviewSubmission, error)
	LatestPerReviewer(ctx context.Context, revisionID uint64, round int) (map[string]model.ReviewSubmission, error)
	WithTx(tx *gorm.DB) ReviewInterface
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, sub *model.ReviewSubmission) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *ReviewRepository) ListByRevision(ctx context.Context, revisionID uint64) ([]model.ReviewSubmission, error) {
	var subs []model.ReviewSubmission
	err := r.db.WithContext(ctx).
		Where("revision_id = ?", revisionID).
		Order("submitted_at ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

// LatestPerReviewer returns the authoritative submission per reviewer for
// the given review round: the last row each reviewer wrote in that round.
func (r *ReviewRepository) LatestPerReviewer(ctx context.Context, revisionID uint64, round int) (map[string]model.ReviewSubmission, error) {
	var subs []model.ReviewSubmission
	err := r.db.WithContext(ctx).
		Where("revision_id = ? AND round = ?", revisionID, round).
		Order("id ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	latest := make(map[string]model.ReviewSubmission, len(subs))
	for _, s := range subs {
		latest[s.Reviewer] = s
	}
	return latest, nil
}

func (r *ReviewRepository) WithTx(tx *gorm.DB) ReviewInterface {
	return &ReviewRepository{db: tx}
}
