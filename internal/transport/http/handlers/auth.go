package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/middleware"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	csrf         *middleware.CsrfGuard
	logger       *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	auth *usecase.AuthService,
	registration *usecase.RegistrationService,
	csrf *middleware.CsrfGuard,
	logger *zap.Logger,
) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		auth:         auth,
		registration: registration,
		csrf:         csrf,
		logger:       logger,
	}
}

// Login authenticates a user and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt,
		User:      result.User,
	})
}

// Logout revokes the presented session.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), middleware.SessionToken(c))
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// Register redeems an invite code and creates the account, returning a
// session so the caller is logged in immediately.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid registration payload"))
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterParams{
		InviteCode: req.InviteCode,
		Username:   req.Username,
		Password:   req.Password,
	})
	if err != nil {
		respondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt,
		User:      result.User,
	})
}

// ChangePassword rotates the caller's own credential. Every other session of
// the user is revoked; the current one survives.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication_error", "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid password change payload"))
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), user.ID, middleware.SessionToken(c), req.OldPassword, req.NewPassword)
	if err != nil {
		respondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// Me returns the authenticated user's own record.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication_error", "authentication required"))
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// CsrfToken mints a fresh CSRF token bound to the caller identity.
func (h *AuthHandler) CsrfToken(c *gin.Context) {
	token, err := h.csrf.IssueToken(c)
	if err != nil {
		h.logger.Error("csrf token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "persistence_error", "internal error"))
		return
	}
	c.JSON(http.StatusOK, CsrfTokenResponse{Token: token})
}
