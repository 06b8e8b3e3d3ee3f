package handler

import (
	"net/http"

	"portal/internal/middleware"
	"portal/internal/service"
	"portal/pkg/pagination"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireAdmin())
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves the filtered, paginated, redacted audit trail
// @Summary      Get audit logs
// @Description  Admin-only audit trail. Filterable by entity, user, inclusive day range and free text; sensitive detail fields are masked.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 50, max 100)"
// @Param        entity  query     string  false  "Entity equality filter"
// @Param        user_id query     string  false  "Actor UUID equality filter"
// @Param        from    query     string  false  "Inclusive start date (YYYY-MM-DD, UTC)"
// @Param        to      query     string  false  "Inclusive end date (YYYY-MM-DD, UTC)"
// @Param        q       query     string  false  "Free-text search over action, entity id and IP"
// @Success      200     {object}  response.Response{data=object}
// @Failure      403     {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.List(c.Request.Context(), service.AuditFilter{
		Entity: c.Query("entity"),
		UserID: c.Query("user_id"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Query:  c.Query("q"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
