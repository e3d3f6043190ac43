package model

import "time"

// FeatureMaster is the per-feature live pointer: the currently published
// configuration plus its version. LiveVersion is only ever advanced by the
// publish transaction, guarded by compare-and-swap.
type FeatureMaster struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	Project       string    `gorm:"size:64;default:default;uniqueIndex:idx_feature_key" json:"project"`
	Key           string    `gorm:"size:128;uniqueIndex:idx_feature_key" json:"key"`
	Type          string    `gorm:"size:32" json:"type"`
	Description   string    `gorm:"type:text" json:"description"`
	Tags          string    `gorm:"size:255" json:"tags"` // comma separated
	LiveVersion   int       `json:"live_version"`
	DefaultValue  string    `gorm:"type:text" json:"default_value"`
	RulesJSON     string    `gorm:"type:text" json:"-"` // live rules by environment
	ChecklistJSON string    `gorm:"type:text" json:"-"` // manual checklist state, key -> status
	UpdatedAt     time.Time `json:"updated_at"`
	UpdatedBy     string    `gorm:"size:64" json:"updated_by"`
}
