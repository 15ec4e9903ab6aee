package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/tuitron-api/internal/middleware"
	"github.com/noah-isme/tuitron-api/internal/models"
	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
	"github.com/noah-isme/tuitron-api/pkg/response"
)

// identityFromContext returns the caller identity, writing a 401 when the route was not authenticated.
func identityFromContext(c *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Identity{}, false
	}
	return *identity, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// pathID returns the canonical form of the :id parameter. Ids that cannot exist are reported as not found.
func pathID(c *gin.Context, resource string) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, resource+" not found"))
		return "", false
	}
	return id.String(), true
}
