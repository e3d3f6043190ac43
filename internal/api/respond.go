package api

import (
	"mergeflow/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// respondError maps workflow errors onto HTTP. The error code and details
// travel in the body so SDKs can branch without parsing messages.
func respondError(c *gin.Context, err error) {
	ae := apperrors.From(err)
	body := gin.H{
		"code":  ae.Code,
		"error": ae.Message,
	}
	if len(ae.Details) > 0 {
		body["details"] = ae.Details
	}
	c.JSON(ae.HTTPStatus(), body)
}
