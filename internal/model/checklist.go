package model

// ChecklistCompletionType distinguishes items derived from state from items
// a human must tick off.
type ChecklistCompletionType string

const (
	CompletionAuto   ChecklistCompletionType = "auto"
	CompletionManual ChecklistCompletionType = "manual"
)

type ChecklistStatus string

const (
	ChecklistComplete   ChecklistStatus = "complete"
	ChecklistIncomplete ChecklistStatus = "incomplete"
)

// ChecklistItem is one completion requirement, evaluated per feature and
// revision. Auto items are recomputed on every evaluation and never stored;
// manual item state lives in FeatureMaster.ChecklistJSON keyed by Key.
type ChecklistItem struct {
	Key      string                  `json:"key"`
	Title    string                  `json:"title"`
	Type     ChecklistCompletionType `json:"type"`
	Status   ChecklistStatus         `json:"status"`
	URL      string                  `json:"url,omitempty"`
	Blocking bool                    `json:"blocking"`
}

// ChecklistTask is one org-configured checklist entry.
type ChecklistTask struct {
	Task           string                  `json:"task" mapstructure:"task"`
	URL            string                  `json:"url,omitempty" mapstructure:"url"`
	CompletionType ChecklistCompletionType `json:"completion_type" mapstructure:"completion_type"`
	PropertyKey    string                  `json:"property_key,omitempty" mapstructure:"property_key"`
	Required       bool                    `json:"required" mapstructure:"required"`
}

// ChecklistConfig is the org-scoped checklist configuration. It is resolved
// per call and passed into the gate, never read from process-wide state.
type ChecklistConfig struct {
	Tasks                  []ChecklistTask `mapstructure:"tasks"`
	RequireManualChecklist bool            `mapstructure:"require_manual_checklist"`
}

// ReviewPolicy is the org-scoped review configuration.
type ReviewPolicy struct {
	RequireReview           bool `mapstructure:"require_review"`
	BlockOnChangesRequested bool `mapstructure:"block_on_changes_requested"`
}
