package handler

import (
	"net/http"
	"strconv"

	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/service"
	"portal/pkg/pagination"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrganizationHandler struct {
	tenancyService  service.TenancyService
	activityService service.ActivityService
}

func NewOrganizationHandler(tenancyService service.TenancyService, activityService service.ActivityService) *OrganizationHandler {
	return &OrganizationHandler{tenancyService: tenancyService, activityService: activityService}
}

func (h *OrganizationHandler) RegisterRoutes(router *gin.RouterGroup) {
	orgs := router.Group("/api/organizations")
	{
		orgs.GET("", middleware.RequirePermission(model.EntityOrganization, model.ActionRead), h.ListOrganizations)
		orgs.GET("/:id", middleware.RequirePermission(model.EntityOrganization, model.ActionRead), h.GetOrganization)
		orgs.GET("/:id/activity", middleware.RequirePermission(model.EntityOrganization, model.ActionRead), h.GetActivity)
		orgs.POST("", middleware.RequirePermission(model.EntityOrganization, model.ActionWrite), h.CreateOrganization)
		orgs.PUT("/:id", middleware.RequirePermission(model.EntityOrganization, model.ActionWrite), h.UpdateOrganization)
		orgs.DELETE("/:id", middleware.RequirePermission(model.EntityOrganization, model.ActionDelete), h.DeleteOrganization)
		orgs.POST("/:id/members", middleware.RequirePermission(model.EntityOrganization, model.ActionWrite), h.AddMember)
		orgs.DELETE("/:id/members/:userId", middleware.RequirePermission(model.EntityOrganization, model.ActionWrite), h.RemoveMember)
	}
}

// ListOrganizations returns the organizations visible under the caller's
// scope, narrowed by optional search text and active-state filters
// @Summary      List organizations
// @Description  Scope-filtered organization listing; total reflects the same filtered count
// @Tags         organizations
// @Security     BearerAuth
// @Produce      json
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        limit      query  int     false  "Items per page (default 50, max 100)"
// @Param        q          query  string  false  "Name search"
// @Param        is_active  query  bool    false  "Active-state filter"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/organizations [get]
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	params := pagination.Parse(c)
	id, _ := middleware.IdentityFrom(c)

	filter := service.TenancyFilter{
		Query: c.Query("q"),
		Page:  params.Page,
		Limit: params.Limit,
	}
	if raw := c.Query("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &active
		}
	}

	orgs, total, err := h.tenancyService.ListOrganizations(c.Request.Context(), id, filter)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"organizations": orgs,
		"total":         total,
		"page":          params.Page,
		"limit":         params.Limit,
	}))
}

func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	org, err := h.tenancyService.GetOrganization(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

// GetActivity returns the last background-computed activity snapshot
func (h *OrganizationHandler) GetActivity(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	snapshot, err := h.activityService.Latest(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, snapshot))
}

func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	var req service.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	org, err := h.tenancyService.CreateOrganization(c.Request.Context(), id, req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, org))
}

func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	var req service.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	org, err := h.tenancyService.UpdateOrganization(c.Request.Context(), id, c.Param("id"), req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, org))
}

func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := h.tenancyService.DeleteOrganization(c.Request.Context(), id, c.Param("id"), c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Organization deleted successfully"))
}

func (h *OrganizationHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	if err := h.tenancyService.AddOrganizationMember(c.Request.Context(), id, c.Param("id"), req, c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "Member added"))
}

func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := h.tenancyService.RemoveOrganizationMember(c.Request.Context(), id, c.Param("id"), c.Param("userId"), c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Member removed"))
}
