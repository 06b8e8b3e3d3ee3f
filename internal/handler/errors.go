package handler

import (
	"errors"
	"log"
	"net/http"

	"portal/internal/apperr"
	"portal/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondErr maps the error taxonomy to HTTP in one place. Causes behind
// 401s and 404s are never disclosed; internals go to the server log only.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "unauthorized"))
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "forbidden"))
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "not found"))
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, "resource already exists"))
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	default:
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "internal server error"))
	}
}
