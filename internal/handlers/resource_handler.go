package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

// Multipart field names shared by every resource form.
const (
	fieldFile  = "file"
	fieldCover = "cover"
)

type ResourceHandler struct {
	BaseHandler
	resourceService services.ResourceService
}

func NewResourceHandler(resourceService services.ResourceService, logger utils.Logger) *ResourceHandler {
	return &ResourceHandler{
		BaseHandler:     NewBaseHandler(logger),
		resourceService: resourceService,
	}
}

// ListResources is the library page. Patients only get public entries.
func (h *ResourceHandler) ListResources(c *gin.Context) {
	var req services.ResourceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		redirectWithFlash(c, "/resources", flashError, "Filtro inválido.")
		return
	}

	list, err := h.resourceService.List(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}

	h.render(c, http.StatusOK, "resources.html", gin.H{
		"Title":  "Recursos",
		"List":   list,
		"Filter": req,
		"Kinds":  models.ResourceKinds,
	})
}

func (h *ResourceHandler) GetResource(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Recurso no encontrado.")
		return
	}

	resource, err := h.resourceService.GetByID(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/resources")
		return
	}
	h.render(c, http.StatusOK, "resource_detail.html", gin.H{"Title": resource.Title, "Resource": resource})
}

// ManageResources lists what the caller may edit: everything for admin, own entries for interns.
func (h *ResourceHandler) ManageResources(c *gin.Context) {
	var req services.ResourceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		redirectWithFlash(c, "/manage/resources", flashError, "Filtro inválido.")
		return
	}

	list, err := h.resourceService.ListManaged(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, homeFor(currentUser(c)))
		return
	}

	h.render(c, http.StatusOK, "resources_manage.html", gin.H{
		"Title":  "Gestionar recursos",
		"List":   list,
		"Filter": req,
		"Kinds":  models.ResourceKinds,
	})
}

func (h *ResourceHandler) NewResource(c *gin.Context) {
	data, err := h.formData(c, nil, &services.ResourceRequest{Kind: models.ResourceArticle, IsPublic: true})
	if err != nil {
		h.handleServiceError(c, err, "/manage/resources")
		return
	}
	h.render(c, http.StatusOK, "resource_form.html", data)
}

func (h *ResourceHandler) CreateResource(c *gin.Context) {
	var req services.ResourceRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/manage/resources/new", flashError, "Formulario inválido.")
		return
	}

	file, closeFile, err := fileUpload(c, fieldFile)
	if err != nil {
		redirectWithFlash(c, "/manage/resources/new", flashError, "No se pudo leer el archivo.")
		return
	}
	defer closeFile()
	cover, closeCover, err := fileUpload(c, fieldCover)
	if err != nil {
		redirectWithFlash(c, "/manage/resources/new", flashError, "No se pudo leer la portada.")
		return
	}
	defer closeCover()

	resource, err := h.resourceService.Create(c.Request.Context(), currentUser(c), &req, file, cover)
	if err != nil {
		h.renderFormError(c, nil, &req, err, "/manage/resources/new")
		return
	}

	h.LogRequest(c, "Resource created", "resource_id", resource.ID)
	redirectWithFlash(c, "/manage/resources", flashSuccess, "Recurso creado.")
}

func (h *ResourceHandler) EditResource(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Recurso no encontrado.")
		return
	}

	resource, err := h.resourceService.GetByID(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/manage/resources")
		return
	}
	if !resource.CanEdit {
		redirectWithFlash(c, "/manage/resources", flashError, msgForbidden)
		return
	}

	req := &services.ResourceRequest{
		Title:       resource.Title,
		Description: resource.Description,
		Kind:        resource.Kind,
		CategoryID:  resource.CategoryID,
		Content:     resource.Content,
		IsPublic:    resource.IsPublic,
	}
	if resource.URL != nil {
		req.URL = *resource.URL
	}

	data, err := h.formData(c, resource.Resource, req)
	if err != nil {
		h.handleServiceError(c, err, "/manage/resources")
		return
	}
	h.render(c, http.StatusOK, "resource_form.html", data)
}

func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Recurso no encontrado.")
		return
	}
	back := fmt.Sprintf("/manage/resources/%d/edit", id)

	var req services.ResourceRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, back, flashError, "Formulario inválido.")
		return
	}

	file, closeFile, err := fileUpload(c, fieldFile)
	if err != nil {
		redirectWithFlash(c, back, flashError, "No se pudo leer el archivo.")
		return
	}
	defer closeFile()
	cover, closeCover, err := fileUpload(c, fieldCover)
	if err != nil {
		redirectWithFlash(c, back, flashError, "No se pudo leer la portada.")
		return
	}
	defer closeCover()

	if _, err := h.resourceService.Update(c.Request.Context(), currentUser(c), id, &req, file, cover); err != nil {
		h.renderFormError(c, &models.Resource{ID: id}, &req, err, back)
		return
	}

	redirectWithFlash(c, "/manage/resources", flashSuccess, "Recurso actualizado.")
}

func (h *ResourceHandler) DeleteResource(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Recurso no encontrado.")
		return
	}

	resource, err := h.resourceService.Delete(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/manage/resources")
		return
	}
	redirectWithFlash(c, "/manage/resources", flashSuccess, fmt.Sprintf("Recurso \"%s\" eliminado.", resource.Title))
}

// ===== CATEGORIES =====

func (h *ResourceHandler) ListCategories(c *gin.Context) {
	categories, err := h.resourceService.ListCategories(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err, "/admin/dashboard")
		return
	}
	h.render(c, http.StatusOK, "categories.html", gin.H{
		"Title":      "Categorías de recursos",
		"Categories": categories,
		"Form":       &services.ResourceCategoryRequest{Color: "#6C63FF"},
	})
}

func (h *ResourceHandler) CreateCategory(c *gin.Context) {
	var req services.ResourceCategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/admin/categories", flashError, "Formulario inválido.")
		return
	}

	if _, err := h.resourceService.CreateCategory(c.Request.Context(), currentUser(c), &req); err != nil {
		h.handleServiceError(c, err, "/admin/categories")
		return
	}
	redirectWithFlash(c, "/admin/categories", flashSuccess, "Categoría creada.")
}

func (h *ResourceHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Categoría no encontrada.")
		return
	}

	if err := h.resourceService.DeleteCategory(c.Request.Context(), currentUser(c), id); err != nil {
		h.handleServiceError(c, err, "/admin/categories")
		return
	}
	redirectWithFlash(c, "/admin/categories", flashSuccess, "Categoría eliminada.")
}

func (h *ResourceHandler) formData(c *gin.Context, resource *models.Resource, req *services.ResourceRequest) (gin.H, error) {
	categories, err := h.resourceService.ListCategories(c.Request.Context())
	if err != nil {
		return nil, err
	}

	title := "Nuevo recurso"
	if resource != nil {
		title = "Editar recurso"
	}
	return gin.H{
		"Title":      title,
		"Editing":    resource,
		"Form":       req,
		"Categories": categories,
		"Kinds":      models.ResourceKinds,
	}, nil
}

func (h *ResourceHandler) renderFormError(c *gin.Context, resource *models.Resource, req *services.ResourceRequest, err error, back string) {
	data, lerr := h.formData(c, resource, req)
	if lerr != nil {
		h.handleServiceError(c, err, back)
		return
	}
	h.renderForm(c, "resource_form.html", data, err, back)
}
