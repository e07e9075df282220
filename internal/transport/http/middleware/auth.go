package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/domain"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/usecase"
)

const (
	// CurrentUserKey is the gin context key for the authenticated user.
	CurrentUserKey = "current_user"
	// SessionTokenKey is the gin context key for the presented session token.
	SessionTokenKey = "session_token"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		Code:      code,
		RequestID: RequestIDFromContext(c.Request.Context()),
	}
}

// RequireSession validates the Bearer session token, re-resolves the user and
// stores both on the gin context. A token whose user has been locked or
// deleted since login is rejected exactly like an expired one.
func RequireSession(authService *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication_error", "missing or malformed authorization header"))
			return
		}

		session, user, err := authService.ResolveSession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication_error", "session is not valid"))
			return
		}

		c.Set(CurrentUserKey, user)
		c.Set(SessionTokenKey, session.Token)
		c.Next()
	}
}

// RequireAdmin gates the route to admin-role users. It must run after
// RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication_error", "authentication required"))
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "authorization_error", "administrator role required"))
			return
		}
		c.Next()
	}
}

// CurrentUser retrieves the authenticated user from the gin context.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.User)
	return user, ok
}

// SessionToken retrieves the presented session token from the gin context.
func SessionToken(c *gin.Context) string {
	value, exists := c.Get(SessionTokenKey)
	if !exists {
		return ""
	}
	token, _ := value.(string)
	return token
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
