// Package apierr maps domain errors onto HTTP responses.
package apierr

import (
	"net/http"

	"artmarket/internal/domain/catalogues"
	"artmarket/internal/domain/editions"
	"artmarket/internal/domain/works"
	"artmarket/internal/infra/payments"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Respond writes the status for err. fallback is the message used for
// unexpected errors, which also carry the error text in "details".
func Respond(c *gin.Context, err error, fallback string) {
	var ve *works.ValidationError
	switch {
	case errors.As(err, &ve):
		body := gin.H{"error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		c.JSON(http.StatusBadRequest, body)

	case errors.Is(err, editions.ErrInvalidIdentifier):
		log.WithError(err).WithField("path", c.FullPath()).Warn("invalid edition identifier")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, catalogues.ErrForeignCatalogue):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, catalogues.ErrSystemCatalogueManaged):
		c.JSON(http.StatusBadRequest, gin.H{"error": catalogues.ErrSystemCatalogueManaged.Error()})

	case errors.Is(err, works.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})

	case errors.Is(err, works.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})

	case errors.Is(err, works.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": works.ErrConflict.Error()})

	case errors.Is(err, payments.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not available"})

	default:
		log.WithError(err).WithField("path", c.FullPath()).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
	}
}

// UserID reads the authenticated user id set by the auth middleware and
// answers 401 when it is missing.
func UserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}
