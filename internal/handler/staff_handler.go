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

type StaffHandler struct {
	userService service.UserService
}

func NewStaffHandler(userService service.UserService) *StaffHandler {
	return &StaffHandler{userService: userService}
}

func (h *StaffHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := router.Group("/api/staff")
	{
		staff.GET("", middleware.RequirePermission(model.EntityUser, model.ActionRead), h.ListStaff)
		staff.GET("/:id", middleware.RequirePermission(model.EntityUser, model.ActionRead), h.GetStaff)
		staff.POST("", middleware.RequirePermission(model.EntityUser, model.ActionWrite), h.CreateStaff)
		staff.PUT("/:id", middleware.RequirePermission(model.EntityUser, model.ActionWrite), h.UpdateStaff)
		staff.DELETE("/:id", middleware.RequirePermission(model.EntityUser, model.ActionDelete), h.DeleteStaff)
	}
}

// CreateStaff handles POST /api/staff
// @Summary      Create a staff account
// @Description  Creates a staff user holding exactly one of admin/manager/accountant
// @Tags         staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateStaffRequest  true  "Create Staff Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/staff [post]
func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req service.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	user, err := h.userService.CreateStaff(c.Request.Context(), id, req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// ListStaff handles GET /api/staff with pagination and email search
func (h *StaffHandler) ListStaff(c *gin.Context) {
	params := pagination.Parse(c)

	users, total, err := h.userService.ListStaff(c.Request.Context(), params.Page, params.Limit, c.Query("q"))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetStaff handles GET /api/staff/:id
func (h *StaffHandler) GetStaff(c *gin.Context) {
	user, err := h.userService.GetStaff(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateStaff handles PUT /api/staff/:id
// @Summary      Update staff account
// @Description  Updates email, role, active flag or password under the peer-admin and self rules
// @Tags         staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "User ID"
// @Param        payload  body      service.UpdateStaffRequest  true  "Update Staff Payload"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/staff/{id} [put]
func (h *StaffHandler) UpdateStaff(c *gin.Context) {
	var req service.UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	user, err := h.userService.UpdateStaff(c.Request.Context(), id, c.Param("id"), req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// DeleteStaff handles DELETE /api/staff/:id (hard delete, inactive accounts only)
func (h *StaffHandler) DeleteStaff(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)
	if err := h.userService.DeleteStaff(c.Request.Context(), id, c.Param("id"), c.ClientIP()); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "User deleted successfully"))
}
