// Package admin exposes the tenant self-service endpoints: organization
// profile and API key lifecycle. Everything is scoped to the caller's own
// organization; there is no cross-tenant administration over HTTP, that is
// what the operator CLI is for.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cloud-companion/cloud-companion/internal/api/respond"
	"github.com/cloud-companion/cloud-companion/internal/apperrors"
	"github.com/cloud-companion/cloud-companion/internal/auth"
	"github.com/cloud-companion/cloud-companion/internal/config"
	"github.com/cloud-companion/cloud-companion/internal/middleware"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
)

// Handlers holds the admin endpoint dependencies.
type Handlers struct {
	cfg      *config.Config
	orgs     *repositories.OrganizationRepository
	apiKeys  *repositories.APIKeyRepository
	accounts *repositories.CloudAccountRepository
}

// New creates the admin Handlers.
func New(cfg *config.Config, orgs *repositories.OrganizationRepository, apiKeys *repositories.APIKeyRepository, accounts *repositories.CloudAccountRepository) *Handlers {
	return &Handlers{cfg: cfg, orgs: orgs, apiKeys: apiKeys, accounts: accounts}
}

// GetOrganization returns the caller's organization profile with its cloud
// accounts.
// @Summary Get organization profile
// @Tags admin
// @Router /api/v1/admin/organization [get]
func (h *Handlers) GetOrganization(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	org, err := h.orgs.GetByID(c.Request.Context(), reqCtx.OrgID)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}
	if org == nil {
		respond.Error(c, apperrors.NotFound("organization"))
		return
	}

	accounts, err := h.accounts.ListByOrg(c.Request.Context(), reqCtx.OrgID)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization": org,
		"accounts":     accounts,
	})
}

// ListKeys returns the metadata of the org's API keys. Digests never leave
// the store.
// @Summary List API keys
// @Tags admin
// @Router /api/v1/admin/keys [get]
func (h *Handlers) ListKeys(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	keys, err := h.apiKeys.ListByOrg(c.Request.Context(), reqCtx.OrgID)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// CreateKeyRequest is the body for POST /admin/keys.
type CreateKeyRequest struct {
	Name      string `json:"name" binding:"required,max=100"`
	DaysValid int    `json:"days_valid" binding:"omitempty,min=1,max=3650"`
}

// CreateKey mints a new API key under the caller's org. The raw key appears
// in this response and nowhere else, ever.
// @Summary Create an API key
// @Tags admin
// @Router /api/v1/admin/keys [post]
func (h *Handlers) CreateKey(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, apperrors.Validation(err.Error()))
		return
	}

	days := req.DaysValid
	if days == 0 {
		days = h.cfg.Auth.KeyExpiryDays
	}
	expiresAt := time.Now().UTC().AddDate(0, 0, days)

	rawKey, displayPrefix, err := auth.GenerateAPIKey(h.cfg.Auth.KeyPrefix)
	if err != nil {
		respond.Error(c, err)
		return
	}
	digest := auth.HashAPIKey(rawKey, h.cfg.Auth.HMACSecret)

	key, err := h.apiKeys.Create(c.Request.Context(), reqCtx.OrgID, req.Name, digest, &expiresAt)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}
	if key == nil {
		respond.Error(c, apperrors.NotFound("organization"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         key.ID,
		"name":       key.Name,
		"key":        rawKey,
		"key_prefix": displayPrefix,
		"expires_at": key.ExpiresAt,
	})
}

// RevokeKey deactivates a key. Revoking an unknown or already revoked key is
// a no-op; either way the key no longer authenticates, so the response is
// 204.
// @Summary Revoke an API key
// @Tags admin
// @Router /api/v1/admin/keys/{id} [delete]
func (h *Handlers) RevokeKey(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	if err := h.apiKeys.Revoke(c.Request.Context(), reqCtx.OrgID, c.Param("id")); err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}

	c.Status(http.StatusNoContent)
}
