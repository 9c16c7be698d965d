package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

type ContentHandler struct {
	BaseHandler
	contentService services.ContentService
	userService    services.UserService
}

func NewContentHandler(contentService services.ContentService, userService services.UserService, logger utils.Logger) *ContentHandler {
	return &ContentHandler{
		BaseHandler:    NewBaseHandler(logger),
		contentService: contentService,
		userService:    userService,
	}
}

// ListContent shows a patient what was assigned to them. Staff may narrow by ?patient_id=.
func (h *ContentHandler) ListContent(c *gin.Context) {
	var patientID uint
	if raw := c.Query("patient_id"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			patientID = uint(v)
		}
	}

	ctx := c.Request.Context()
	user := currentUser(c)

	list, err := h.contentService.List(ctx, user, patientID, queryPage(c))
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}

	data := gin.H{
		"Title":     "Contenido personalizado",
		"List":      list,
		"PatientID": patientID,
	}
	if user.Role().IsStaff() {
		patients, err := h.userService.ListPatients(ctx, user)
		if err != nil {
			h.handleServiceError(c, err, homeFor(user))
			return
		}
		data["Patients"] = patients
	}
	h.render(c, http.StatusOK, "contents.html", data)
}

func (h *ContentHandler) GetContent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Contenido no encontrado.")
		return
	}

	content, err := h.contentService.GetByID(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/content")
		return
	}
	h.render(c, http.StatusOK, "content_detail.html", gin.H{"Title": content.Title, "Content": content})
}

func (h *ContentHandler) NewContent(c *gin.Context) {
	req := &services.ContentRequest{Kind: models.ContentArticle}
	if raw := c.Query("patient_id"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			req.PatientID = uint(v)
		}
	}
	h.renderContentForm(c, http.StatusOK, req, nil)
}

func (h *ContentHandler) CreateContent(c *gin.Context) {
	var req services.ContentRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/content/new", flashError, "Formulario inválido.")
		return
	}

	file, closeFile, err := fileUpload(c, fieldFile)
	if err != nil {
		redirectWithFlash(c, "/content/new", flashError, "No se pudo leer el archivo.")
		return
	}
	defer closeFile()

	content, err := h.contentService.Create(c.Request.Context(), currentUser(c), &req, file)
	if err != nil {
		h.renderContentForm(c, http.StatusBadRequest, &req, err)
		return
	}

	h.LogRequest(c, "Content assigned", "content_id", content.ID, "patient_id", content.PatientID)
	redirectWithFlash(c, fmt.Sprintf("/content?patient_id=%d", content.PatientID), flashSuccess, "Contenido asignado.")
}

func (h *ContentHandler) DeleteContent(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Contenido no encontrado.")
		return
	}

	if err := h.contentService.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.handleServiceError(c, err, "/content")
		return
	}
	redirectWithFlash(c, "/content", flashSuccess, "Contenido eliminado.")
}

func (h *ContentHandler) renderContentForm(c *gin.Context, status int, req *services.ContentRequest, err error) {
	user := currentUser(c)
	patients, perr := h.userService.ListPatients(c.Request.Context(), user)
	if perr != nil {
		h.handleServiceError(c, perr, "/content")
		return
	}

	data := gin.H{
		"Title":    "Asignar contenido",
		"Form":     req,
		"Patients": patients,
		"Kinds":    models.ContentKinds,
	}
	if err != nil {
		h.renderForm(c, "content_form.html", data, err, "/content/new")
		return
	}
	h.render(c, status, "content_form.html", data)
}
