package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/logger"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/security"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/usecase"
)

// errorCase maps a sentinel error to an HTTP status and stable code.
type errorCase struct {
	err     error
	status  int
	code    string
	message string
}

var knownErrorCases = []errorCase{
	{usecase.ErrInvalidCredentials, http.StatusUnauthorized, "authentication_error", "invalid username or password"},
	{usecase.ErrAccountLocked, http.StatusForbidden, "authorization_error", "account is locked"},
	{usecase.ErrSessionInvalid, http.StatusUnauthorized, "authentication_error", "session is not valid"},
	{usecase.ErrWeakPassword, http.StatusBadRequest, "validation_error", "password does not meet requirements"},
	{usecase.ErrInvalidUsername, http.StatusBadRequest, "validation_error", "invalid username"},
	{usecase.ErrUsernameTaken, http.StatusConflict, "conflict_error", "username already taken"},
	{usecase.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{usecase.ErrLastAdmin, http.StatusConflict, "conflict_error", "cannot remove the last administrator"},
	{usecase.ErrInviteNotFound, http.StatusNotFound, "not_found", "invite not found"},
	{usecase.ErrInviteUsed, http.StatusConflict, "conflict_error", "invite already used"},
	{usecase.ErrInviteExpired, http.StatusConflict, "conflict_error", "invite expired"},
}

// respondWithMappedError resolves the error against the known cases or falls
// back to a generic persistence error. Password policy violations carry the
// per-rule messages so clients can render them individually.
func respondWithMappedError(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range knownErrorCases {
		if !errors.Is(err, cs.err) {
			continue
		}
		resp := NewErrorResponse(c, cs.code, cs.message)
		var policyErr *security.PolicyError
		if errors.As(err, &policyErr) {
			resp.Details = policyErr.Messages()
		}
		c.JSON(cs.status, resp)
		return
	}

	logger.WithContext(c.Request.Context()).Error("unhandled request error",
		zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError,
		NewErrorResponse(c, "persistence_error", "internal error"))
}
