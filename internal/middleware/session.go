package middleware

import (
	"errors"
	"net/http"
	"strings"

	"chucheritas/internal/domain"
	"chucheritas/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const authContextKey = "authContext"

// LoginPath is where browsers without a session are sent.
const LoginPath = "/login"

// SessionLoader resolves the session cookie into an AuthenticatedContext for
// every request. Missing or stale cookies give an anonymous caller.
func SessionLoader(auth usecase.AuthUseCase, cookieName string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actx := domain.Anonymous()
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			actx = auth.ResolveSession(c.Request.Context(), token)
			if !actx.IsAuthenticated() {
				log.Debug("Middleware: session cookie did not resolve to a principal")
			}
		}
		c.Set(authContextKey, actx)
		c.Next()
	}
}

// AuthContext returns the caller identity stored by SessionLoader.
func AuthContext(c *gin.Context) domain.AuthenticatedContext {
	if v, ok := c.Get(authContextKey); ok {
		if actx, ok := v.(domain.AuthenticatedContext); ok {
			return actx
		}
	}
	return domain.Anonymous()
}

// SetAuthContext is used by handlers right after login and by tests.
func SetAuthContext(c *gin.Context, actx domain.AuthenticatedContext) {
	c.Set(authContextKey, actx)
}

// IsXHR reports whether the request came from the storefront's fetch calls.
func IsXHR(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// WantsJSON reports whether the caller expects a JSON body rather than a
// redirect.
func WantsJSON(c *gin.Context) bool {
	if IsXHR(c) {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") || strings.HasPrefix(c.ContentType(), "application/json")
}

// RequireRoles rejects the request before any handler runs unless the caller
// holds one of the roles.
func RequireRoles(log *logrus.Logger, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := domain.Require(AuthContext(c), roles...)
		if err == nil {
			c.Next()
			return
		}

		if errors.Is(err, domain.ErrUnauthenticated) {
			log.Warnf("Middleware: anonymous request to %s", c.Request.URL.Path)
			if !WantsJSON(c) {
				c.Redirect(http.StatusSeeOther, LoginPath)
				c.Abort()
				return
			}
			abortJSON(c, http.StatusUnauthorized, "Please log in to continue")
			return
		}

		log.Warnf("Middleware: role %s denied on %s", AuthContext(c).Principal.Role, c.Request.URL.Path)
		abortJSON(c, http.StatusForbidden, "You do not have permission to perform this action")
	}
}

func abortJSON(c *gin.Context, status int, message string) {
	if IsXHR(c) {
		c.AbortWithStatusJSON(status, gin.H{"status": "error", "msg": message})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"Status": "Fail", "Message": message})
}
