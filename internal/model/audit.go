package model

import "time"

// AuditEvent is the closed set of recorded workflow transitions.
type AuditEvent string

const (
	AuditEdit          AuditEvent = "edit"
	AuditRequestReview AuditEvent = "request-review"
	AuditSubmitReview  AuditEvent = "submit-review"
	AuditDiscard       AuditEvent = "discard"
	AuditPublish       AuditEvent = "publish"
)

// FeatureAudit is one append-only record of a revision state transition.
type FeatureAudit struct {
	ID              int64      `json:"id" gorm:"primaryKey"`
	Project         string     `json:"project" gorm:"size:64;default:default"`
	Key             string     `json:"key" gorm:"size:128;index"`
	RevisionVersion int        `json:"revision_version"`
	Event           AuditEvent `json:"event" gorm:"size:32"`
	OldStatus       string     `json:"old_status" gorm:"size:32"`
	NewStatus       string     `json:"new_status" gorm:"size:32"`
	Detail          string     `json:"detail" gorm:"type:text"`
	Operator        string     `json:"operator" gorm:"size:64"`
	TraceID         string     `json:"trace_id" gorm:"size:36;index"`
	IP              string     `json:"ip" gorm:"size:45"`
	CreatedAt       time.Time  `json:"created_at" gorm:"index"`
}
