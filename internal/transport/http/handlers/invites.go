package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/middleware"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/usecase"
)

// InviteHandler exposes administrative invite management endpoints.
type InviteHandler struct {
	invites         *usecase.InviteService
	defaultTTLHours int
}

// NewInviteHandler constructs InviteHandler. defaultTTLHours applies when the
// creation payload omits a TTL; zero means invites never expire.
func NewInviteHandler(invites *usecase.InviteService, defaultTTLHours int) *InviteHandler {
	return &InviteHandler{invites: invites, defaultTTLHours: defaultTTLHours}
}

// Create issues a fresh single-use invite code.
func (h *InviteHandler) Create(c *gin.Context) {
	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "validation_error", "invalid invite payload"))
		return
	}

	ttlHours := h.defaultTTLHours
	if req.TTLHours != nil {
		ttlHours = *req.TTLHours
	}

	actor, _ := middleware.CurrentUser(c)
	invite, err := h.invites.Create(c.Request.Context(), usecase.CreateInviteParams{
		Role:      domain.ParseRole(req.Role),
		CreatedBy: actorName(actor),
		Note:      req.Note,
		TTLHours:  ttlHours,
	})
	if err != nil {
		respondWithMappedError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invite)
}

// List returns invites newest first. ?includeExpired=true also returns used
// and expired codes.
func (h *InviteHandler) List(c *gin.Context) {
	includeExpired, _ := strconv.ParseBool(c.DefaultQuery("includeExpired", "false"))

	invites, err := h.invites.List(c.Request.Context(), includeExpired)
	if err != nil {
		respondWithMappedError(c, err)
		return
	}
	c.JSON(http.StatusOK, invites)
}

// Delete removes an invite by code.
func (h *InviteHandler) Delete(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)
	if err := h.invites.Delete(c.Request.Context(), c.Param("code"), actorName(actor)); err != nil {
		respondWithMappedError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "invite deleted"})
}
