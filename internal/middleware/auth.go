package middleware

import (
	"net/http"
	"os"
	"strings"

	"portal/internal/auth"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const identityKey = "identity"

// RefreshCookieName carries the raw refresh token — the only place it ever
// travels. It is never accepted from (or echoed into) a JSON body.
const RefreshCookieName = "refresh_token"

const refreshCookieMaxAge = 3600 * 24 * 7

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in release mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

func cookieFlags() (http.SameSite, bool) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	if os.Getenv("GIN_MODE") == "release" {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetRefreshCookie stores the raw refresh token as an HttpOnly cookie
func SetRefreshCookie(c *gin.Context, raw string) {
	sameSite, secure := cookieFlags()
	c.SetSameSite(sameSite)
	c.SetCookie(RefreshCookieName, raw, refreshCookieMaxAge, "/", "", secure, true)
}

// ClearRefreshCookie removes the refresh cookie. Called on logout and
// defensively on every failed or ambiguous rotation attempt.
func ClearRefreshCookie(c *gin.Context) {
	sameSite, secure := cookieFlags()
	c.SetSameSite(sameSite)
	c.SetCookie(RefreshCookieName, "", -1, "/", "", secure, true)
}

var (
	tokenVerifier interface {
		VerifyAccessToken(tokenString string) (*auth.AccessClaims, error)
	}
	guardUsers repository.UserRepository
)

// Init wires the middleware package's dependencies. Call once at startup.
func Init(db *gorm.DB, tokens *auth.TokenService) {
	tokenVerifier = tokens
	guardUsers = repository.NewUserRepository(db)
}

// IdentityFrom returns the decoded identity stashed by the auth middleware
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// authenticate parses the bearer token once per request and stashes the
// identity. Failures are uniform 401s; the cause is never disclosed.
func authenticate(c *gin.Context) (auth.Identity, bool) {
	if id, ok := IdentityFrom(c); ok {
		return id, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return auth.Identity{}, false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return auth.Identity{}, false
	}

	claims, err := tokenVerifier.VerifyAccessToken(parts[1])
	if err != nil {
		return auth.Identity{}, false
	}
	id, err := claims.Identity()
	if err != nil {
		return auth.Identity{}, false
	}

	c.Set(identityKey, id)
	return id, true
}

// Authenticate requires a valid access token and stashes the identity
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticate(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthorized"))
			return
		}
		c.Next()
	}
}

// RequireRole gates a route class on the role snapshot inside the verified
// access token. Cheap, but stale by design: a role change takes effect only
// after the holder's next login or refresh. RequirePermission is the
// authoritative guard; this one only pre-filters.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := authenticate(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthorized"))
			return
		}

		for _, role := range allowedRoles {
			if id.HasRole(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission is the mandatory guard preceding any data access: a live
// DB-backed existence check across user → roles → permissions for one
// (entity, action) pair. Never cached, so revocations bite immediately. On
// failure the guard short-circuits with 403 and the handler body never runs.
func RequirePermission(entity, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := authenticate(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthorized"))
			return
		}

		allowed, err := guardUsers.HasPermission(c.Request.Context(), id.UserID, entity, action)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+entity+"."+action+"'"))
			return
		}
		c.Next()
	}
}

// RequireAdmin is shorthand for the admin-only surfaces (audit trail)
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin)
}
