package resp

import (
	"time"

	v1 "mergeflow/pkg/api/v1"
)

type FeatureItem struct {
	ID           uint64               `json:"id"`
	Project      string               `json:"project"`
	Key          string               `json:"key"`
	Type         string               `json:"type"`
	Description  string               `json:"description"`
	Tags         string               `json:"tags"`
	LiveVersion  int                  `json:"live_version"`
	DefaultValue string               `json:"default_value"`
	Rules        map[string][]v1.Rule `json:"rules"`
	UpdatedAt    time.Time            `json:"updated_at"`
	UpdatedBy    string               `json:"updated_by"`
}

type RevisionItem struct {
	Version      int                  `json:"version"`
	BaseVersion  int                  `json:"base_version"`
	Status       string               `json:"status"`
	DefaultValue string               `json:"default_value"`
	Rules        map[string][]v1.Rule `json:"rules"`
	Comment      string               `json:"comment"`
	ReviewRound  int                  `json:"review_round"`
	CreatedBy    string               `json:"created_by"`
	CreatedAt    time.Time            `json:"created_at"`
	ClosedBy     string               `json:"closed_by,omitempty"`
	ClosedAt     *time.Time           `json:"closed_at,omitempty"`
}

// MergePreview mirrors the engine's merge result on the wire.
type MergePreview struct {
	Success      bool                 `json:"success"`
	Conflicts    []string             `json:"conflicts,omitempty"`
	DefaultValue string               `json:"default_value,omitempty"`
	Rules        map[string][]v1.Rule `json:"rules,omitempty"`
}

type ReviewItem struct {
	Reviewer    string    `json:"reviewer"`
	Verdict     string    `json:"verdict"`
	Comment     string    `json:"comment"`
	Round       int       `json:"round"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type AuditLogItem struct {
	ID              int64     `json:"id"`
	Project         string    `json:"project"`
	Key             string    `json:"key"`
	RevisionVersion int       `json:"revision_version"`
	Event           string    `json:"event"`
	OldStatus       string    `json:"old_status"`
	NewStatus       string    `json:"new_status"`
	Detail          string    `json:"detail"`
	Operator        string    `json:"operator"`
	CreatedAt       time.Time `json:"created_at"`
}

type ChecklistItemResp struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	URL      string `json:"url,omitempty"`
	Blocking bool   `json:"blocking"`
}

type ChecklistResp struct {
	Items             []ChecklistItemResp `json:"items"`
	Remaining         int                 `json:"remaining"`
	BlockingRemaining int                 `json:"blocking_remaining"`
}
