package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/campuspulse-backend/internal/apperr"
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

// RespondServiceError maps the service error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is a 500 with a generic message so internals
// do not leak.
func RespondServiceError(c *gin.Context, code string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, code, err)
	case errors.Is(err, apperr.ErrInvalidState):
		RespondError(c, http.StatusConflict, code, err)
	case errors.Is(err, apperr.ErrConflict):
		RespondError(c, http.StatusConflict, code, err)
	case errors.Is(err, apperr.ErrForbidden):
		RespondError(c, http.StatusForbidden, code, err)
	default:
		RespondError(c, http.StatusInternalServerError, code, errors.New("internal error"))
	}
}
