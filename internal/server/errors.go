package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/orderway/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/orderway/internal/client/domain"
	orderdomain "github.com/smallbiznis/orderway/internal/order/domain"
	quotadomain "github.com/smallbiznis/orderway/internal/quota/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	TargetIndex *int   `json:"target_index,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var vErr *orderdomain.ValidationError
	if errors.As(err, &vErr) {
		payload := errorPayload{
			Type:    "validation_error",
			Message: vErr.Err.Error(),
		}
		if vErr.TargetIndex >= 0 {
			idx := vErr.TargetIndex
			payload.TargetIndex = &idx
		}
		return http.StatusBadRequest, payload
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	case errors.Is(err, clientdomain.ErrInvalidRate):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orderdomain.ErrOrderNotFound),
		errors.Is(err, catalogdomain.ErrServiceNotFound),
		errors.Is(err, catalogdomain.ErrCategoryNotFound),
		errors.Is(err, clientdomain.ErrClientNotFound),
		errors.Is(err, quotadomain.ErrQuotaNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
