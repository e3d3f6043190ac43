package api

import (
	"context"

	"mergeflow/internal/apperrors"
	"mergeflow/internal/dto/resp"

	"github.com/gin-gonic/gin"
)

type FeatureProvider interface {
	GetFeature(ctx context.Context, project, key string) (*resp.FeatureItem, error)
	ListFeatures(ctx context.Context, project, search string) ([]resp.FeatureItem, error)
	ListRevisions(ctx context.Context, project, key string) ([]resp.RevisionItem, error)
	GetFeatureAudits(ctx context.Context, project, key string) ([]resp.AuditLogItem, error)
	Health(ctx context.Context) error
}

type FeatureHandler struct {
	service FeatureProvider
}

func NewFeatureHandler(service FeatureProvider) *FeatureHandler {
	return &FeatureHandler{service: service}
}

func (h *FeatureHandler) GetFeature(c *gin.Context) {
	key := c.Param("key")

	featureItem, err := h.service.GetFeature(c.Request.Context(), projectOf(c), key)
	if err != nil {
		respondError(c, err)
		return
	}
	if featureItem == nil {
		respondError(c, apperrors.NotFound("feature not found"))
		return
	}
	c.JSON(200, featureItem)
}

func (h *FeatureHandler) ListFeatures(c *gin.Context) {
	project := c.Query("project")
	search := c.Query("search")

	features, err := h.service.ListFeatures(c.Request.Context(), project, search)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, features)
}

func (h *FeatureHandler) ListRevisions(c *gin.Context) {
	key := c.Param("key")

	revisions, err := h.service.ListRevisions(c.Request.Context(), projectOf(c), key)
	if err != nil {
		respondError(c, err)
		return
	}
	if revisions == nil {
		respondError(c, apperrors.NotFound("feature not found"))
		return
	}
	c.JSON(200, revisions)
}

func (h *FeatureHandler) GetFeatureAudits(c *gin.Context) {
	key := c.Param("key")

	audits, err := h.service.GetFeatureAudits(c.Request.Context(), projectOf(c), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, audits)
}

func (h *FeatureHandler) HealthCheck(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}
