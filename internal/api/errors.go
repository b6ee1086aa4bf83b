package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hunnydu/internal/model"
)

// respondError maps domain errors onto HTTP statuses. Anything unknown is a
// server error and gets logged with the request id.
func respondError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, model.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrCapacityExceeded):
		status, code = http.StatusBadRequest, "capacity_exceeded"
	case errors.Is(err, model.ErrMinimumViolation):
		status, code = http.StatusBadRequest, "minimum_violation"
	case errors.Is(err, model.ErrInvalidTask), errors.Is(err, model.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Errorw("request failed", "requestID", c.GetString(requestIDKey), "path", c.FullPath(), "error", err)
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}
