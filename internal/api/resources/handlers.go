// Package resources exposes the org-scoped cloud resource listing endpoints.
package resources

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cloud-companion/cloud-companion/internal/api/respond"
	"github.com/cloud-companion/cloud-companion/internal/apperrors"
	"github.com/cloud-companion/cloud-companion/internal/middleware"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
)

// Handlers holds the resource endpoint dependencies.
type Handlers struct {
	resources *repositories.ResourceRepository
}

// New creates the resource Handlers.
func New(resources *repositories.ResourceRepository) *Handlers {
	return &Handlers{resources: resources}
}

// List returns one page of the caller org's resources. Negative skip is
// clamped to zero and limit to the repository maximum; out-of-range paging
// yields an empty page, never an error.
// @Summary List cloud resources
// @Tags resources
// @Router /api/v1/resources [get]
func (h *Handlers) List(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	resourceType := c.Query("resource_type")

	page, err := h.resources.ListByOrg(c.Request.Context(), reqCtx.OrgID, resourceType, skip, limit)
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"resources": page,
		"skip":      skip,
		"limit":     limit,
	})
}

// Get returns one resource by node id. A resource outside the caller's org
// is indistinguishable from one that does not exist.
// @Summary Get a cloud resource
// @Tags resources
// @Router /api/v1/resources/{id} [get]
func (h *Handlers) Get(c *gin.Context) {
	reqCtx := middleware.GetRequestContext(c)
	if reqCtx == nil {
		respond.Error(c, apperrors.AuthenticationFailed())
		return
	}

	res, err := h.resources.GetByID(c.Request.Context(), reqCtx.OrgID, c.Param("id"))
	if err != nil {
		respond.Error(c, apperrors.Store(err))
		return
	}
	if res == nil {
		respond.Error(c, apperrors.NotFound("resource"))
		return
	}

	c.JSON(http.StatusOK, res)
}
