// auth.go implements the request context resolver: every request presents an
// API key in the X-API-Key header, which is hashed and resolved to its
// organization in a single graph round trip. Handlers downstream read the
// resolved RequestContext from the gin context and scope every query by its
// org id.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cloud-companion/cloud-companion/internal/apperrors"
	"github.com/cloud-companion/cloud-companion/internal/auth"
	"github.com/cloud-companion/cloud-companion/internal/config"
	"github.com/cloud-companion/cloud-companion/internal/models"
	"github.com/cloud-companion/cloud-companion/internal/safego"
)

const (
	// APIKeyHeader carries the raw API key on every request.
	APIKeyHeader = "X-API-Key"

	// RequestContextKey is the gin.Context key holding the resolved
	// *models.RequestContext.
	RequestContextKey = "request_context"
)

// ContextResolver is the repository surface the middleware needs.
type ContextResolver interface {
	ResolveContext(ctx context.Context, hashedKey string) (*models.RequestContext, error)
	TouchLastUsed(ctx context.Context, keyID string) error
}

// AuthMiddleware returns the API key authentication handler.
//
// All rejections are the same 401 regardless of cause: missing header,
// unknown key, revoked key, expired key, or a resolver error. The internal
// reason goes to the log; the caller learns nothing beyond "invalid API
// key". Resolver errors also reject: when the graph store cannot confirm an
// identity the request fails closed rather than proceeding with a guess.
func AuthMiddleware(cfg *config.Config, resolver ContextResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := c.GetHeader(APIKeyHeader)
		if rawKey == "" {
			rejectUnauthenticated(c, "missing API key header")
			return
		}

		digest := auth.HashAPIKey(rawKey, cfg.Auth.HMACSecret)

		reqCtx, err := resolver.ResolveContext(c.Request.Context(), digest)
		if err != nil {
			slog.Error("Request context resolution failed", "error", err)
			rejectUnauthenticated(c, "resolver error")
			return
		}
		if reqCtx == nil {
			rejectUnauthenticated(c, "unknown, revoked, or expired key")
			return
		}

		// Stamp last use off the request path; a failed stamp never fails
		// the request.
		keyID := reqCtx.APIKeyID
		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := resolver.TouchLastUsed(ctx, keyID); err != nil {
				slog.Warn("Failed to stamp API key last use", "api_key_id", keyID, "error", err)
			}
		})

		c.Set(RequestContextKey, reqCtx)
		c.Next()
	}
}

// GetRequestContext returns the resolved request context, or nil when the
// request did not pass AuthMiddleware.
func GetRequestContext(c *gin.Context) *models.RequestContext {
	v, ok := c.Get(RequestContextKey)
	if !ok {
		return nil
	}
	reqCtx, ok := v.(*models.RequestContext)
	if !ok {
		return nil
	}
	return reqCtx
}

func rejectUnauthenticated(c *gin.Context, reason string) {
	slog.Info("Rejected unauthenticated request",
		"path", c.Request.URL.Path,
		"reason", reason,
		"ip", c.ClientIP())

	appErr := apperrors.AuthenticationFailed()
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
