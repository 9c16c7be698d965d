package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/config"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

// AuthMiddleware resolves the caller from the session cookie or, when SSO is
// enabled, from a casdoor bearer token.
type AuthMiddleware struct {
	auth    services.AuthService
	session config.SessionConfig
	logger  utils.Logger
}

func NewAuthMiddleware(auth services.AuthService, session config.SessionConfig, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:    auth,
		session: session,
		logger:  logger,
	}
}

// LoadUser attaches the caller to the context when a valid credential is present.
// It never rejects a request on its own.
func (am *AuthMiddleware) LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			user, err := am.auth.AuthenticateDirectory(ctx, token)
			if err != nil {
				utils.GetLogger(c, am.logger).Debug("Bearer token rejected", "error", err)
			} else {
				setUser(c, user)
			}
			c.Next()
			return
		}

		token, err := c.Cookie(am.session.CookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		user, claims, err := am.auth.Authenticate(ctx, token)
		if err != nil {
			// Stale or revoked cookie.
			am.clearSession(c)
			c.Next()
			return
		}

		setUser(c, user)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

// RequireAuth sends anonymous callers to the login page.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			redirectWithFlash(c, "/login", flashInfo, msgLoginRequired)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRoleMiddleware lets the request through only when the caller holds one
// of the required roles. Denied callers get a message and land on their home page.
func (am *AuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			redirectWithFlash(c, "/login", flashInfo, msgLoginRequired)
			c.Abort()
			return
		}

		if !user.Role().In(requiredRoles...) {
			utils.GetLogger(c, am.logger).Warn("Role gate denied request",
				"user_id", user.ID,
				"role", user.Role(),
				"required", requiredRoles,
			)
			redirectWithFlash(c, homeFor(user), flashError, msgForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (am *AuthMiddleware) setSession(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(am.session.CookieName, token, am.auth.SessionTTLSeconds(), "/", "", am.session.Secure, true)
}

func (am *AuthMiddleware) clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(am.session.CookieName, "", -1, "/", "", am.session.Secure, true)
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(ctxUser, user)
	c.Set(ctxUserID, user.ID)
	c.Set(ctxRole, user.Role())
}

// bearerToken extracts the token from a "Bearer <token>" header.
func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}
