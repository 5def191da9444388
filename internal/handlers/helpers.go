package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quiz-engine/internal/apperr"
)

// userID reads the authenticated user from the gateway header. The protected
// route middleware guarantees it is present.
func userID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindValidation:
			c.JSON(http.StatusBadRequest, gin.H{"error": ae.Message})
		case apperr.KindNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": ae.Message})
		case apperr.KindConcurrency:
			c.JSON(http.StatusConflict, gin.H{"error": ae.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": ae.Message})
		}
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
