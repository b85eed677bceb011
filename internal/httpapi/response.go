package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusFor maps a domain error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case apperr.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case apperr.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case apperr.IsDuplicate(err):
		return http.StatusConflict, "duplicate"
	case apperr.IsRetryable(err), apperr.IsDependency(err):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// respondErr writes err with its mapped status. Internal details of 5xx
// errors are logged, not returned.
func (h *Handler) respondErr(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		if status == http.StatusServiceUnavailable {
			RespondError(c, status, code, errTryAgain)
			return
		}
		RespondError(c, status, code, errInternal)
		return
	}
	RespondError(c, status, code, err)
}

func respondBind(c *gin.Context, err error) {
	RespondError(c, http.StatusBadRequest, "invalid_request", err)
}
