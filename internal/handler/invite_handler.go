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

type InviteHandler struct {
	inviteService service.InviteService
}

func NewInviteHandler(inviteService service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

func (h *InviteHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Registration is public: the invite token is the credential
	router.POST("/register", h.Register)

	invites := router.Group("/api/invites")
	invites.Use(middleware.RequirePermission(model.EntityOrganization, model.ActionWrite))
	{
		invites.POST("", h.CreateInvite)
		invites.GET("", h.ListInvites)
	}
}

// CreateInvite handles POST /api/invites
// @Summary      Create an invite
// @Description  Mints a single-use, time-boxed registration token scoped to one organization
// @Tags         invites
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateInviteRequest  true  "Create Invite Payload"
// @Success      201      {object}  response.Response{data=service.InviteResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invites [post]
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	var req service.CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	id, _ := middleware.IdentityFrom(c)
	invite, err := h.inviteService.Create(c.Request.Context(), id, req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invite))
}

// ListInvites handles GET /api/invites (invites created by the caller)
func (h *InviteHandler) ListInvites(c *gin.Context) {
	params := pagination.Parse(c)

	id, _ := middleware.IdentityFrom(c)
	invites, total, err := h.inviteService.List(c.Request.Context(), id, params.Page, params.Limit)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"invites": invites,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// Register handles POST /register to consume an invite and open a session
// @Summary      Register via invite
// @Description  Consumes a single-use invite, creates a client account with organization membership, and logs in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration Payload"
// @Success      201      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /register [post]
func (h *InviteHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, rawRefresh, err := h.inviteService.Register(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}

	middleware.SetRefreshCookie(c, rawRefresh)
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
