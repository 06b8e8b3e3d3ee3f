package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/model"
	"portal/internal/service"
	"portal/pkg/pagination"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type SectionHandler struct {
	tenancyService service.TenancyService
}

func NewSectionHandler(tenancyService service.TenancyService) *SectionHandler {
	return &SectionHandler{tenancyService: tenancyService}
}

func (h *SectionHandler) RegisterRoutes(router *gin.RouterGroup) {
	sections := router.Group("/api/sections")
	{
		sections.GET("", middleware.RequirePermission(model.EntitySection, model.ActionRead), h.ListSections)
		sections.GET("/:id", middleware.RequirePermission(model.EntitySection, model.ActionRead), h.GetSection)
		sections.POST("", middleware.RequirePermission(model.EntitySection, model.ActionWrite), h.CreateSection)
		sections.PUT("/:id", middleware.RequirePermission(model.EntitySection, model.ActionWrite), h.UpdateSection)
		sections.DELETE("/:id", middleware.RequirePermission(model.EntitySection, model.ActionDelete), h.DeleteSection)
		sections.POST("/:id/members", middleware.RequirePermission(model.EntitySection, model.ActionWrite), h.AddMember)
		sections.DELETE("/:id/members/:userId", middleware.RequirePermission(model.EntitySection, model.ActionWrite), h.RemoveMember)
	}
}

// ListSections returns the sections visible under the caller's scope,
// narrowed by any caller-supplied search text
func (h *SectionHandler) ListSections(c *gin.Context) {
	params := pagination.Parse(c)
	id, _ := middleware.IdentityFrom(c)

	sections, total, err := h.tenancyService.ListSections(c.Request.Context(), id, service.TenancyFilter{
		Query: c.Query("q"),
		Page:  params.Page,
		Limit: params.Limit,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"sections": sections,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

func (h *SectionHandler) GetSection(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	section, err := h.tenancyService.GetSection(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, section))
}

func (h *SectionHandler) CreateSection(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	section, err := h.tenancyService.CreateSection(c.Request.Context(), id, req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, section))
}

func (h *SectionHandler) UpdateSection(c *gin.Context) {
	var req service.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	section, err := h.tenancyService.UpdateSection(c.Request.Context(), id, c.Param("id"), req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, section))
}

func (h *SectionHandler) DeleteSection(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := h.tenancyService.DeleteSection(c.Request.Context(), id, c.Param("id"), c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Section deleted successfully"))
}

func (h *SectionHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	if err := h.tenancyService.AddSectionMember(c.Request.Context(), id, c.Param("id"), req, c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "Member added"))
}

func (h *SectionHandler) RemoveMember(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := h.tenancyService.RemoveSectionMember(c.Request.Context(), id, c.Param("id"), c.Param("userId"), c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Member removed"))
}
