package transport

import (
	"errors"
	"net/http"

	"github.com/ds124wfegd/imgenhance/internal/entity"
	"github.com/ds124wfegd/imgenhance/internal/pkg/kafka"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StatusOf maps a service error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, entity.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrJobNotReady):
		return http.StatusConflict
	case errors.Is(err, kafka.ErrUnavailable):
		return http.StatusServiceUnavailable
	}

	switch entity.CodeOf(err) {
	case entity.CodeInvalidInput:
		return http.StatusBadRequest
	case entity.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("request_id", c.GetString("request_id")).Error("Request error")
	}
	c.JSON(status, gin.H{
		"success":    false,
		"error":      entity.MessageOf(err),
		"error_code": entity.CodeOf(err),
	})
}

func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, entity.NewError(entity.CodeInvalidInput, "invalid request body", err))
		return false
	}
	return true
}
