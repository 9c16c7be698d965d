package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	session     *AuthMiddleware
}

func NewAuthHandler(authService services.AuthService, session *AuthMiddleware, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		session:     session,
	}
}

// LoginPage renders the login form, or skips it for an existing session.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	if user := currentUser(c); user != nil {
		c.Redirect(http.StatusSeeOther, homeFor(user))
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Iniciar sesión"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/login", flashError, "Datos de acceso inválidos.")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		data := gin.H{"Title": "Iniciar sesión", "Username": req.Username}
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			data["LoginError"] = "Usuario o contraseña incorrectos"
			h.render(c, http.StatusUnauthorized, "login.html", data)
		case errors.Is(err, services.ErrInactiveAccount):
			data["LoginError"] = "Tu cuenta está desactivada."
			h.render(c, http.StatusForbidden, "login.html", data)
		default:
			h.renderForm(c, "login.html", data, err, "/login")
		}
		return
	}

	h.LogRequest(c, "User logged in", "user_id", result.User.ID)
	h.session.setSession(c, result.Token)
	redirectWithFlash(c, homeFor(result.User), flashSuccess, "Bienvenido, "+result.User.FullName()+".")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), currentClaims(c)); err != nil {
		h.LogError(c, err, "Failed to revoke session")
	}
	h.session.clearSession(c)
	redirectWithFlash(c, "/login", flashInfo, "Sesión cerrada.")
}

// ToggleViewAs switches a staff session into or out of the patient view.
func (h *AuthHandler) ToggleViewAs(c *gin.Context) {
	user := currentUser(c)
	enabled := c.PostForm("enabled") == "true"

	result, err := h.authService.SetViewAsUser(c.Request.Context(), user, currentClaims(c), enabled)
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}

	h.session.setSession(c, result.Token)
	if enabled {
		redirectWithFlash(c, "/", flashInfo, "Ahora ves el portal como paciente.")
		return
	}
	redirectWithFlash(c, homeFor(user), flashInfo, "Vista de personal restaurada.")
}

// Home renders the landing page. Staff see shortcuts to their tools unless the
// session is in view-as-user mode.
func (h *AuthHandler) Home(c *gin.Context) {
	h.render(c, http.StatusOK, "index.html", gin.H{"Title": "Inicio"})
}
