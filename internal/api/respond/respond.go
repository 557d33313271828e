// Package respond renders the uniform error envelope used by every handler:
//
//	{"error": {"code": "...", "message": "...", "details": {...}}}
//
// Codes and statuses come from the apperrors taxonomy; underlying causes are
// logged here and never serialized.
package respond

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/cloud-companion/cloud-companion/internal/apperrors"
)

// Error classifies err and writes the envelope with the mapped HTTP status.
func Error(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)

	if appErr.Err != nil {
		slog.Error("Request failed",
			"code", appErr.Code,
			"status", appErr.Status,
			"path", c.Request.URL.Path,
			"error", appErr.Err)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}

	c.AbortWithStatusJSON(appErr.Status, gin.H{"error": body})
}
