package model

import "time"

// ReviewVerdict is the closed set of review outcomes.
type ReviewVerdict string

const (
	VerdictComment          ReviewVerdict = "comment"
	VerdictChangesRequested ReviewVerdict = "changes-requested"
	VerdictApproved         ReviewVerdict = "approved"
)

func (v ReviewVerdict) Valid() bool {
	switch v {
	case VerdictComment, VerdictChangesRequested, VerdictApproved:
		return true
	}
	return false
}

// ReviewSubmission is one reviewer's verdict on a pending revision.
// Rows are append-only; only the latest submission per reviewer within the
// revision's current review round carries gating authority.
type ReviewSubmission struct {
	ID          uint64        `gorm:"primaryKey" json:"id"`
	RevisionID  uint64        `gorm:"index" json:"revision_id"`
	Reviewer    string        `gorm:"size:64;index" json:"reviewer"`
	Verdict     ReviewVerdict `gorm:"size:32" json:"verdict"`
	Comment     string        `gorm:"type:text" json:"comment"`
	Round       int           `json:"round"`
	SubmittedAt time.Time     `json:"submitted_at"`
}
