package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/middleware"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/usecase"
)

// UserHandler exposes administrative user management endpoints.
type UserHandler struct {
	users *usecase.UserService
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users *usecase.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// List returns all users without credential material.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondWithMappedError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Create provisions a user directly, bypassing the invite flow.
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid user payload"))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	created, err := h.users.CreateUser(c.Request.Context(), usecase.CreateUserParams{
		Username:           req.Username,
		Password:           req.Password,
		Role:               domain.ParseRole(req.Role),
		CreatedBy:          actorName(actor),
		MustChangePassword: req.MustChangePassword,
		Locked:             req.Locked,
	})
	if err != nil {
		respondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get returns a single user by id.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithMappedError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// Update applies a partial patch to role, lock state or the password change
// requirement. A patch matching the current state changes nothing.
func (h *UserHandler) Update(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid patch payload"))
		return
	}

	patch := usecase.UserPatch{
		Locked:             req.Locked,
		MustChangePassword: req.MustChangePassword,
	}
	if req.Role != nil {
		role := domain.ParseRole(*req.Role)
		patch.Role = &role
	}

	actor, _ := middleware.CurrentUser(c)
	updated, err := h.users.UpdateUser(c.Request.Context(), c.Param("id"), patch, actorName(actor))
	if err != nil {
		respondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ResetPassword sets a new credential on behalf of the user. The reset
// unlocks the account and revokes all of its sessions.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid password payload"))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	updated, err := h.users.SetPassword(c.Request.Context(), c.Param("id"), req.Password, usecase.SetPasswordOptions{
		MustChangePassword: req.MustChangePassword,
		UpdatedBy:          actorName(actor),
	})
	if err != nil {
		respondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete removes the user and revokes their sessions.
func (h *UserHandler) Delete(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)
	if err := h.users.RemoveUser(c.Request.Context(), c.Param("id"), actorName(actor)); err != nil {
		respondWithMappedError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "user deleted"})
}

func actorName(actor *domain.User) string {
	if actor == nil {
		return ""
	}
	return actor.Username
}
