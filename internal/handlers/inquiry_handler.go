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

type InquiryHandler struct {
	BaseHandler
	inquiryService services.InquiryService
}

func NewInquiryHandler(inquiryService services.InquiryService, logger utils.Logger) *InquiryHandler {
	return &InquiryHandler{
		BaseHandler:    NewBaseHandler(logger),
		inquiryService: inquiryService,
	}
}

// ListInquiries shows the caller's own inquiries, or every inquiry for staff.
// ?answered=true|false narrows the list.
func (h *InquiryHandler) ListInquiries(c *gin.Context) {
	var answered *bool
	if raw := c.Query("answered"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			answered = &v
		}
	}

	list, err := h.inquiryService.List(c.Request.Context(), currentUser(c), queryPage(c), answered)
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}

	h.render(c, http.StatusOK, "inquiries.html", gin.H{
		"Title":    "Consultas",
		"List":     list,
		"Answered": answered,
	})
}

func (h *InquiryHandler) NewInquiry(c *gin.Context) {
	h.render(c, http.StatusOK, "inquiry_form.html", gin.H{
		"Title": "Nueva consulta",
		"Form":  &services.InquiryRequest{Kind: models.InquiryQuestion},
		"Kinds": models.InquiryKinds,
	})
}

func (h *InquiryHandler) CreateInquiry(c *gin.Context) {
	var req services.InquiryRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/inquiries/new", flashError, "Formulario inválido.")
		return
	}

	inquiry, err := h.inquiryService.Create(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.renderForm(c, "inquiry_form.html", gin.H{
			"Title": "Nueva consulta",
			"Form":  &req,
			"Kinds": models.InquiryKinds,
		}, err, "/inquiries/new")
		return
	}

	h.LogRequest(c, "Inquiry created", "inquiry_id", inquiry.ID)
	redirectWithFlash(c, fmt.Sprintf("/inquiries/%d", inquiry.ID), flashSuccess, "Consulta enviada. Te responderemos pronto.")
}

func (h *InquiryHandler) GetInquiry(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Consulta no encontrada.")
		return
	}

	inquiry, err := h.inquiryService.GetByID(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/inquiries")
		return
	}
	h.render(c, http.StatusOK, "inquiry_detail.html", gin.H{"Title": inquiry.Subject, "Inquiry": inquiry})
}

// Reply stores a staff answer; the inquiry flips to answered in the same transaction.
func (h *InquiryHandler) Reply(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Consulta no encontrada.")
		return
	}
	back := fmt.Sprintf("/inquiries/%d", id)

	var req services.InquiryReplyRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, back, flashError, "Formulario inválido.")
		return
	}

	if _, err := h.inquiryService.Reply(c.Request.Context(), currentUser(c), id, &req); err != nil {
		h.handleServiceError(c, err, back)
		return
	}
	redirectWithFlash(c, back, flashSuccess, "Respuesta enviada.")
}

func (h *InquiryHandler) MarkRead(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Consulta no encontrada.")
		return
	}

	if err := h.inquiryService.MarkRead(c.Request.Context(), currentUser(c), id); err != nil {
		h.handleServiceError(c, err, "/inquiries")
		return
	}
	redirectWithFlash(c, "/inquiries", flashSuccess, "Consulta marcada como leída.")
}
