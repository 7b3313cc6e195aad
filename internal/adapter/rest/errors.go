package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucarosati/folio-backend/internal/domain"
)

// writeError maps domain error kinds onto HTTP status codes. Anything
// unclassified is a 500 with a generic message; the handler logs the detail.
func writeError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case domain.IsExternalSource(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
