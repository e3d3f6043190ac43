package api

import (
	"context"
	"strconv"

	"mergeflow/internal/apperrors"
	"mergeflow/internal/dto/req"
	"mergeflow/internal/dto/resp"
	"mergeflow/internal/merge"
	"mergeflow/internal/model"
	"mergeflow/internal/service"
	v1 "mergeflow/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

type WorkflowProvider interface {
	SaveDraft(ctx context.Context, project, key string, version int, cfg v1.RevisionConfig, comment string) (*model.FeatureRevision, error)
	RequestReview(ctx context.Context, project, key string, version int, comment string) (*model.FeatureRevision, merge.Result, error)
	SubmitReview(ctx context.Context, project, key string, version int, verdict model.ReviewVerdict, comment string) (*model.FeatureRevision, error)
	Discard(ctx context.Context, project, key string, version int) error
	Publish(ctx context.Context, project, key string, version, expectedLiveVersion int) (*v1.LiveConfig, error)
	MergePreview(ctx context.Context, project, key string, version int) (merge.Result, error)
	Checklist(ctx context.Context, project, key string, version int) (service.ChecklistResult, error)
	SetChecklistItem(ctx context.Context, project, key, itemKey string, complete bool) error
	Reviews(ctx context.Context, project, key string, version int) ([]model.ReviewSubmission, error)
	Rollback(ctx context.Context, project, key string, version int, comment string) (*model.FeatureRevision, error)
}

type RevisionHandler struct {
	workflow WorkflowProvider
}

func NewRevisionHandler(workflow WorkflowProvider) *RevisionHandler {
	return &RevisionHandler{workflow: workflow}
}

func projectOf(c *gin.Context) string {
	return c.DefaultQuery("project", "default")
}

func versionOf(c *gin.Context) (int, bool) {
	v, err := strconv.Atoi(c.Param("version"))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func (h *RevisionHandler) SaveDraft(c *gin.Context) {
	key := c.Param("key")
	var body req.SaveDraftReq
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.Validation("JSON format error"))
		return
	}

	rev, err := h.workflow.SaveDraft(c.Request.Context(), projectOf(c), key, body.Version, v1.RevisionConfig{
		DefaultValue: body.DefaultValue,
		Rules:        body.Rules,
	}, body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, revisionItem(rev))
}

func (h *RevisionHandler) RequestReview(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	var body req.RequestReviewReq
	_ = c.ShouldBindJSON(&body)

	rev, preview, err := h.workflow.RequestReview(c.Request.Context(), projectOf(c), key, version, body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"revision": revisionItem(rev),
		"preview":  mergePreview(preview),
	})
}

func (h *RevisionHandler) SubmitReview(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	var body req.SubmitReviewReq
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.Validation("verdict is required"))
		return
	}

	rev, err := h.workflow.SubmitReview(c.Request.Context(), projectOf(c), key, version, model.ReviewVerdict(body.Verdict), body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, revisionItem(rev))
}

func (h *RevisionHandler) Publish(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	var body req.PublishReq
	_ = c.ShouldBindJSON(&body)

	live, err := h.workflow.Publish(c.Request.Context(), projectOf(c), key, version, body.ExpectedLiveVersion)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, live)
}

func (h *RevisionHandler) Discard(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	if err := h.workflow.Discard(c.Request.Context(), projectOf(c), key, version); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "discarded"})
}

func (h *RevisionHandler) MergePreview(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	preview, err := h.workflow.MergePreview(c.Request.Context(), projectOf(c), key, version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, mergePreview(preview))
}

func (h *RevisionHandler) Checklist(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	result, err := h.workflow.Checklist(c.Request.Context(), projectOf(c), key, version)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, checklistResp(result))
}

func (h *RevisionHandler) SetChecklistItem(c *gin.Context) {
	key := c.Param("key")
	var body req.ChecklistItemReq
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apperrors.Validation("checklist item key is required"))
		return
	}
	if err := h.workflow.SetChecklistItem(c.Request.Context(), projectOf(c), key, body.Key, body.Complete); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (h *RevisionHandler) Rollback(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	var body req.RollbackReq
	_ = c.ShouldBindJSON(&body)

	rev, err := h.workflow.Rollback(c.Request.Context(), projectOf(c), key, version, body.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, revisionItem(rev))
}

func (h *RevisionHandler) ListReviews(c *gin.Context) {
	key := c.Param("key")
	version, ok := versionOf(c)
	if !ok {
		respondError(c, apperrors.Validation("invalid revision version"))
		return
	}
	subs, err := h.workflow.Reviews(c.Request.Context(), projectOf(c), key, version)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]resp.ReviewItem, 0, len(subs))
	for _, s := range subs {
		items = append(items, resp.ReviewItem{
			Reviewer:    s.Reviewer,
			Verdict:     string(s.Verdict),
			Comment:     s.Comment,
			Round:       s.Round,
			SubmittedAt: s.SubmittedAt,
		})
	}
	c.JSON(200, items)
}

func revisionItem(rev *model.FeatureRevision) resp.RevisionItem {
	return resp.RevisionItem{
		Version:     rev.Version,
		BaseVersion: rev.BaseVersion,
		Status:      string(rev.Status),
		Comment:     rev.Comment,
		ReviewRound: rev.ReviewRound,
		CreatedBy:   rev.CreatedBy,
		CreatedAt:   rev.CreatedAt,
		ClosedBy:    rev.ClosedBy,
		ClosedAt:    rev.ClosedAt,
	}
}

func mergePreview(res merge.Result) resp.MergePreview {
	return resp.MergePreview{
		Success:      res.Success,
		Conflicts:    res.Conflicts,
		DefaultValue: res.DefaultValue,
		Rules:        res.Rules,
	}
}

func checklistResp(res service.ChecklistResult) resp.ChecklistResp {
	items := make([]resp.ChecklistItemResp, 0, len(res.Items))
	for _, item := range res.Items {
		items = append(items, resp.ChecklistItemResp{
			Key:      item.Key,
			Title:    item.Title,
			Type:     string(item.Type),
			Status:   string(item.Status),
			URL:      item.URL,
			Blocking: item.Blocking,
		})
	}
	return resp.ChecklistResp{
		Items:             items,
		Remaining:         res.Remaining,
		BlockingRemaining: res.BlockingRemaining,
	}
}
