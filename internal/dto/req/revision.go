package req

import v1 "mergeflow/pkg/api/v1"

// SaveDraftReq creates a new draft when Version is zero, otherwise updates
// the open revision with that version.
type SaveDraftReq struct {
	Version      int                  `json:"version"`
	DefaultValue string               `json:"default_value"`
	Rules        map[string][]v1.Rule `json:"rules"`
	Comment      string               `json:"comment"`
}

type RequestReviewReq struct {
	Comment string `json:"comment"`
}

type SubmitReviewReq struct {
	Verdict string `json:"verdict" binding:"required"`
	Comment string `json:"comment"`
}

type PublishReq struct {
	// ExpectedLiveVersion guards against publishing over a live state the
	// caller never previewed. Zero skips the pre-check; the row-level
	// version guard still applies.
	ExpectedLiveVersion int `json:"expected_live_version"`
}

type RollbackReq struct {
	Comment string `json:"comment"`
}

type ChecklistItemReq struct {
	Key      string `json:"key" binding:"required"`
	Complete bool   `json:"complete"`
}

type FeatureMetaReq struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
}
