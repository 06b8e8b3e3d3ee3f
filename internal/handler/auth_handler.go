package handler

import (
	"net/http"

	"portal/internal/auth"
	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService service.UserService
	tokens      *auth.TokenService
}

// NewAuthHandler sets up the routing dependencies for the session endpoints
func NewAuthHandler(userService service.UserService, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)
	router.POST("/refresh", h.Refresh)
	router.POST("/logout", middleware.Authenticate(), h.Logout)
	router.GET("/me", middleware.Authenticate(), h.GetMe)
}

// Login handles POST /login to authenticate and open a session
// @Summary      Login
// @Description  Authenticates by email and password, returning an access token and setting the refresh cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	res, rawRefresh, err := h.userService.Login(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		respondErr(c, err)
		return
	}

	middleware.SetRefreshCookie(c, rawRefresh)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Refresh handles POST /refresh to rotate the session credential. The raw
// refresh token is read only from the cookie. Every failure path clears the
// cookie and issues nothing.
// @Summary      Refresh session
// @Description  Exchanges the refresh cookie for a new access token and a rotated refresh cookie
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      401  {object}  response.Response
// @Router       /refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(middleware.RefreshCookieName)
	if err != nil || raw == "" {
		middleware.ClearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthorized"))
		return
	}

	result, err := h.tokens.Rotate(c.Request.Context(), raw)
	if err != nil {
		middleware.ClearRefreshCookie(c)
		respondErr(c, err)
		return
	}

	middleware.SetRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"accessToken": result.AccessToken,
	}))
}

// Logout handles POST /logout to revoke the current session
// @Summary      Logout
// @Description  Revokes the current refresh token and clears the cookie
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	id, _ := middleware.IdentityFrom(c)

	raw, _ := c.Cookie(middleware.RefreshCookieName)
	if err := h.userService.Logout(c.Request.Context(), id, raw, c.ClientIP()); err != nil {
		middleware.ClearRefreshCookie(c)
		respondErr(c, err)
		return
	}

	middleware.ClearRefreshCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// GetMe handles GET /me to return the current user with live permissions
// @Summary      Get current user
// @Description  Returns the authenticated user's profile and permission codes
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthorized"))
		return
	}

	me, err := h.userService.GetMe(c.Request.Context(), id.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}
