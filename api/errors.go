package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/gin-gonic/gin"
)

// respondError maps the domain error taxonomy onto HTTP statuses. NotFound
// and Conflict stay distinct so clients can show "not found" vs. "no longer
// available".
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "violations": verr.Violations})
		return
	}

	var nferr *domain.NotFoundError
	if errors.As(err, &nferr) {
		c.JSON(http.StatusNotFound, gin.H{"error": nferr.Error()})
		return
	}

	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		c.JSON(http.StatusConflict, gin.H{"error": cerr.Error()})
		return
	}

	var ierr *domain.InsufficientInventoryError
	if errors.As(err, &ierr) {
		c.JSON(http.StatusConflict, gin.H{"error": ierr.Error(), "reason": "insufficient_inventory"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
