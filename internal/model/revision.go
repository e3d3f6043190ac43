package model

import "time"

// RevisionStatus is the closed set of revision lifecycle states. Dispatch
// over it must enumerate every constant; default branches are errors.
type RevisionStatus string

const (
	StatusDraft            RevisionStatus = "draft"
	StatusPendingReview    RevisionStatus = "pending-review"
	StatusApproved         RevisionStatus = "approved"
	StatusChangesRequested RevisionStatus = "changes-requested"
	StatusPublished        RevisionStatus = "published"
	StatusDiscarded        RevisionStatus = "discarded"
)

// Terminal reports whether the status can never change again.
func (s RevisionStatus) Terminal() bool {
	return s == StatusPublished || s == StatusDiscarded
}

func (s RevisionStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusApproved, StatusChangesRequested, StatusPublished, StatusDiscarded:
		return true
	}
	return false
}

// FeatureRevision is one proposed or historical version of a feature's
// configuration. Version is monotonic per feature; BaseVersion is the live
// version the draft branched from and never changes after creation.
type FeatureRevision struct {
	ID           uint64         `gorm:"primaryKey" json:"id"`
	FeatureID    uint64         `gorm:"uniqueIndex:idx_feature_version" json:"feature_id"`
	Version      int            `gorm:"uniqueIndex:idx_feature_version" json:"version"`
	BaseVersion  int            `json:"base_version"`
	Status       RevisionStatus `gorm:"size:32;index" json:"status"`
	DefaultValue string         `gorm:"type:text" json:"default_value"`
	RulesJSON    string         `gorm:"type:text" json:"-"`
	Comment      string         `gorm:"type:text" json:"comment"`
	// ReviewRound increments on every post-review edit; submissions from
	// earlier rounds stay in history but lose gating authority.
	ReviewRound int        `json:"review_round"`
	CreatedBy   string     `gorm:"size:64" json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedBy    string     `gorm:"size:64" json:"closed_by,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}
