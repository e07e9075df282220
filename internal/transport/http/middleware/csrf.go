package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// CsrfCookieName carries the synchronizer token. The __Host- prefix
	// binds the cookie to the origin host over HTTPS.
	CsrfCookieName = "__Host-csrf"
	// CsrfHeaderName is the request header mutating calls must echo.
	CsrfHeaderName = "X-CSRF-Token"

	csrfNonceBytes = 32
)

// CsrfGuard implements synchronizer-token CSRF protection. Tokens are
// nonce.signature pairs where the signature is an HMAC over the nonce and the
// caller identity (session token when authenticated, client IP otherwise), so
// a token issued to one identity never validates for another.
type CsrfGuard struct {
	secret  []byte
	enforce bool
	secure  bool
	logger  *zap.Logger
}

// NewCsrfGuard constructs the guard. With enforce false the middleware issues
// tokens but skips validation; this is meant for tests only.
func NewCsrfGuard(secret string, enforce, secure bool, logger *zap.Logger) *CsrfGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CsrfGuard{
		secret:  []byte(secret),
		enforce: enforce,
		secure:  secure,
		logger:  logger,
	}
}

// IssueToken mints a fresh token for the caller and sets the cookie.
func (g *CsrfGuard) IssueToken(c *gin.Context) (string, error) {
	nonce := make([]byte, csrfNonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	token := hex.EncodeToString(nonce) + "." + g.sign(hex.EncodeToString(nonce), g.identity(c))
	g.setCookie(c, token)
	return token, nil
}

// Protect validates the token on mutating requests. GET, HEAD and OPTIONS are
// exempt. Requests missing a valid cookie-and-header pair are rejected before
// any handler runs.
func (g *CsrfGuard) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !g.enforce {
			c.Next()
			return
		}

		cookie, err := c.Cookie(CsrfCookieName)
		header := c.GetHeader(CsrfHeaderName)
		if err != nil || cookie == "" || header == "" {
			g.reject(c, "missing csrf token")
			return
		}
		if !hmac.Equal([]byte(cookie), []byte(header)) {
			g.reject(c, "csrf token mismatch")
			return
		}
		if !g.verify(header, g.identity(c)) {
			g.reject(c, "invalid csrf token")
			return
		}

		c.Next()
	}
}

func (g *CsrfGuard) identity(c *gin.Context) string {
	if token := SessionToken(c); token != "" {
		return token
	}
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "anonymous"
}

func (g *CsrfGuard) sign(nonce, identity string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(nonce))
	mac.Write([]byte{0})
	mac.Write([]byte(identity))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *CsrfGuard) verify(token, identity string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	expected := g.sign(parts[0], identity)
	return hmac.Equal([]byte(expected), []byte(parts[1]))
}

func (g *CsrfGuard) setCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CsrfCookieName,
		Value:    token,
		Path:     "/",
		Secure:   g.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (g *CsrfGuard) reject(c *gin.Context, reason string) {
	g.logger.Warn("csrf validation failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("reason", reason))
	c.AbortWithStatusJSON(http.StatusForbidden,
		newErrorResponse(c, "authorization_error", "csrf validation failed"))
}
