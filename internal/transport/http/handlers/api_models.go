package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with a stable machine code.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Code      string   `json:"code,omitempty"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response with the request ID from context.
func NewErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		Code:      code,
		RequestID: middleware.RequestIDFromContext(c.Request.Context()),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes a successful login.
type LoginResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      domain.PublicUser `json:"user"`
}

// RegisterRequest defines the payload for invite-based registration.
type RegisterRequest struct {
	InviteCode string `json:"inviteCode" binding:"required"`
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// ChangePasswordRequest defines the self-service password change payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// CsrfTokenResponse carries a freshly issued CSRF token.
type CsrfTokenResponse struct {
	Token string `json:"csrfToken"`
}

// CreateUserRequest defines the admin user-creation payload.
type CreateUserRequest struct {
	Username           string `json:"username" binding:"required"`
	Password           string `json:"password" binding:"required"`
	Role               string `json:"role" binding:"omitempty,oneof=user admin"`
	MustChangePassword bool   `json:"mustChangePassword"`
	Locked             bool   `json:"locked"`
}

// UpdateUserRequest defines the partial admin patch payload.
type UpdateUserRequest struct {
	Role               *string `json:"role" binding:"omitempty,oneof=user admin"`
	Locked             *bool   `json:"locked"`
	MustChangePassword *bool   `json:"mustChangePassword"`
}

// ResetPasswordRequest defines the admin password reset payload.
type ResetPasswordRequest struct {
	Password           string `json:"password" binding:"required"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

// CreateInviteRequest defines the invite creation payload.
type CreateInviteRequest struct {
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
	Note     string `json:"note" binding:"max=200"`
	TTLHours *int   `json:"ttlHours" binding:"omitempty,min=0,max=8760"`
}

// CalcRequest mirrors the wage calculator input. Field names follow the
// tariff vocabulary used by the stored tables.
type CalcRequest struct {
	TariffDate     string  `json:"tariffDate" binding:"required"`
	Eg             string  `json:"eg" binding:"required"`
	Stufe          string  `json:"stufe"`
	IrwazHours     float64 `json:"irwazHours" binding:"min=0,max=40"`
	LeistungsPct   float64 `json:"leistungsPct" binding:"min=0,max=28"`
	Urlaubstage    int     `json:"urlaubstage" binding:"min=0,max=36"`
	BetriebsMonate int     `json:"betriebsMonate" binding:"min=0,max=480"`
	TZugBPeriod    string  `json:"tZugBPeriod" binding:"omitempty,oneof=until2025 from2026"`
	EigeneKinder   bool    `json:"eigeneKinder"`
}

// TablesResponse lists the loaded tariff table keys in canonical order.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	Tables    int       `json:"tables"`
}
