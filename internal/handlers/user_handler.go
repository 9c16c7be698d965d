package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

// ListUsers renders the admin user table with optional role and text filters.
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.LogRequest(c, "Listing users")

	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		redirectWithFlash(c, "/admin/users", flashError, "Filtro inválido.")
		return
	}

	list, err := h.userService.List(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, "/admin/dashboard")
		return
	}

	h.render(c, http.StatusOK, "users.html", gin.H{
		"Title":  "Usuarios",
		"List":   list,
		"Filter": req,
		"Roles":  []models.Role{models.RoleAdmin, models.RoleIntern, models.RolePatient},
	})
}

func (h *UserHandler) NewUser(c *gin.Context) {
	h.render(c, http.StatusOK, "user_form.html", h.formData(nil, &services.CreateUserRequest{Role: models.RolePatient}))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/admin/users/new", flashError, "Formulario inválido.")
		return
	}

	user, err := h.userService.Create(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		req.Password, req.PasswordConfirm = "", ""
		h.renderForm(c, "user_form.html", h.formData(nil, &req), err, "/admin/users/new")
		return
	}

	h.LogRequest(c, "User created", "created_id", user.ID)
	redirectWithFlash(c, "/admin/users", flashSuccess, fmt.Sprintf("Usuario %s creado.", user.Username))
}

func (h *UserHandler) EditUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Usuario no encontrado.")
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/admin/users")
		return
	}

	req := &services.UpdateUserRequest{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role(),
		BirthDate: user.Profile.BirthDate,
		IsActive:  user.IsActive,
	}
	if user.Profile.Phone != nil {
		req.Phone = *user.Profile.Phone
	}
	h.render(c, http.StatusOK, "user_form.html", h.formData(user, req))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Usuario no encontrado.")
		return
	}
	back := fmt.Sprintf("/admin/users/%d/edit", id)

	var req services.UpdateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, back, flashError, "Formulario inválido.")
		return
	}

	user, err := h.userService.Update(c.Request.Context(), currentUser(c), id, &req)
	if err != nil {
		req.Password = ""
		h.renderForm(c, "user_form.html", h.formData(&models.User{ID: id}, &req), err, back)
		return
	}

	redirectWithFlash(c, "/admin/users", flashSuccess, fmt.Sprintf("Usuario %s actualizado.", user.Username))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Usuario no encontrado.")
		return
	}

	if err := h.userService.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.handleServiceError(c, err, "/admin/users")
		return
	}

	h.LogRequest(c, "User deleted", "deleted_id", id)
	redirectWithFlash(c, "/admin/users", flashSuccess, "Usuario eliminado.")
}

// Profile shows the caller's own account with activity stats.
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.userService.GetProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "profile.html", gin.H{"Title": "Mi perfil", "Profile": profile})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/profile", flashError, "Formulario inválido.")
		return
	}

	if _, err := h.userService.UpdateProfile(c.Request.Context(), currentUser(c), &req); err != nil {
		h.handleServiceError(c, err, "/profile")
		return
	}
	redirectWithFlash(c, "/profile", flashSuccess, "Perfil actualizado.")
}

func (h *UserHandler) formData(user *models.User, form interface{}) gin.H {
	title := "Nuevo usuario"
	if user != nil {
		title = "Editar usuario"
	}
	return gin.H{
		"Title":   title,
		"Editing": user,
		"Form":    form,
		"Roles":   []models.Role{models.RoleAdmin, models.RoleIntern, models.RolePatient},
	}
}
