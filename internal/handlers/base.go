package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/auth"
	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

const (
	flashCookie = "flash"

	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"

	msgForbidden     = "No tienes permisos para acceder a esta página."
	msgLoginRequired = "Debes iniciar sesión para continuar."
)

// Context keys set by the auth middleware.
const (
	ctxUser   = "user"
	ctxUserID = "user_id"
	ctxRole   = "user_role"
	ctxClaims = "claims"
)

type ErrorResponse struct {
	Error     string      `json:"error"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Path      string      `json:"path"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind    string
	Message string
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.Request.URL.Path)
	if id, ok := c.Get(ctxUserID); ok {
		args = append(args, "user_id", id)
	}
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "path", c.Request.URL.Path)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

// ===== CONTEXT =====

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func currentClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// viewAsUser reports whether a staff session is browsing with the patient view.
func viewAsUser(c *gin.Context) bool {
	claims := currentClaims(c)
	return claims != nil && claims.ViewAsUser
}

// homeFor is the landing page of a role, always reachable by that role.
func homeFor(user *models.User) string {
	if user == nil {
		return "/login"
	}
	switch user.Role() {
	case models.RoleAdmin:
		return "/admin/dashboard"
	case models.RoleIntern:
		return "/intern/dashboard"
	default:
		return "/"
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ===== FLASH =====

// setFlash stores the message in a short-lived cookie. gin escapes the value.
func setFlash(c *gin.Context, kind, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, kind+"|"+message, 60, "/", "", false, true)
}

// popFlash reads and clears the pending flash message.
func popFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)

	kind, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

func redirectWithFlash(c *gin.Context, location, kind, message string) {
	setFlash(c, kind, message)
	c.Redirect(http.StatusSeeOther, location)
}

// ===== RENDERING =====

// render executes a page template with the layout data every page needs.
func (h *BaseHandler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	user := currentUser(c)
	data["User"] = user
	data["Flash"] = popFlash(c)
	data["ViewAsUser"] = viewAsUser(c)
	data["PatientView"] = user == nil || !user.Role().IsStaff() || viewAsUser(c)
	data["Path"] = c.Request.URL.Path
	c.HTML(status, name, data)
}

func (h *BaseHandler) renderError(c *gin.Context, status int, message string) {
	h.render(c, status, "error.html", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}

// renderForm re-renders a form with its field errors when err is a validation
// failure and falls back to handleServiceError otherwise.
func (h *BaseHandler) renderForm(c *gin.Context, name string, data gin.H, err error, back string) {
	var ve services.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, e := range ve {
			if _, seen := fields[e.Field]; !seen {
				fields[e.Field] = e.Message
			}
		}
		data["Errors"] = fields
		data["ErrorList"] = ve.Messages()
		h.render(c, http.StatusBadRequest, name, data)
		return
	}
	h.handleServiceError(c, err, back)
}

// handleServiceError maps service errors onto a flash redirect or an error page.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error, back string) {
	var (
		ve  services.ValidationErrors
		bre *services.BusinessRuleError
		pe  *services.PermissionError
	)

	switch {
	case errors.As(err, &ve):
		redirectWithFlash(c, back, flashError, strings.Join(ve.Messages(), " "))
		return
	case errors.As(err, &bre):
		redirectWithFlash(c, back, flashError, bre.Message)
		return
	case errors.As(err, &pe):
		h.logger.Warn("Permission denied", "user_id", pe.UserID, "resource", pe.Resource, "action", pe.Action, "reason", pe.Reason)
		redirectWithFlash(c, homeFor(currentUser(c)), flashError, msgForbidden)
		return
	}

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		redirectWithFlash(c, "/login", flashInfo, msgLoginRequired)
	case errors.Is(err, services.ErrForbidden):
		redirectWithFlash(c, homeFor(currentUser(c)), flashError, msgForbidden)
	case errors.Is(err, services.ErrThreadClosed):
		redirectWithFlash(c, back, flashError, "El tema está cerrado y no admite nuevas respuestas.")
	case errors.Is(err, services.ErrValidationFailed):
		redirectWithFlash(c, back, flashError, "Los datos enviados no son válidos.")
	case services.IsNotFound(err):
		h.renderError(c, http.StatusNotFound, "El elemento solicitado no existe.")
	case errors.Is(err, services.ErrConflict):
		h.renderError(c, http.StatusConflict, "El elemento fue modificado por otra operación.")
	default:
		h.LogError(c, err, "Unhandled service error")
		h.renderError(c, http.StatusInternalServerError, "Ocurrió un error inesperado.")
	}
}

// fileUpload returns the multipart file under field, or nil when none was sent.
// The caller closes the returned closer.
func fileUpload(c *gin.Context, field string) (*services.FileUpload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	if header.Filename == "" || header.Size == 0 {
		return nil, func() {}, nil
	}

	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  f,
	}, func() { f.Close() }, nil
}
