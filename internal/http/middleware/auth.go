package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hirokiuemura2/GDGTeamF1/internal/service"
)

const userIDKey = "authUserID"

// Auth validates Authorization headers and attaches the authenticated
// subject to the request context.
type Auth struct {
	AuthService *service.AuthService
}

// RequireBearer ensures the request carries a valid access token. Every
// credential failure is a 401 with a detail message and a
// WWW-Authenticate challenge; no internal distinction leaks beyond the
// message text.
func (m *Auth) RequireBearer(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		abortUnauthorized(c, "Authorization header required")
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		abortUnauthorized(c, "Bearer token required")
		return
	}

	subject, err := m.AuthService.VerifyAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		abortUnauthorized(c, "Could not validate credentials")
		return
	}

	c.Set(userIDKey, subject)
	c.Next()
}

// UserID returns the authenticated subject set by RequireBearer.
func UserID(c *gin.Context) (string, bool) {
	value, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
