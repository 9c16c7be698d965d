package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/models"
	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
	"github.com/clinic-portal/portal-service/internal/validator"
)

type ForumHandler struct {
	BaseHandler
	forumService services.ForumService
}

func NewForumHandler(forumService services.ForumService, logger utils.Logger) *ForumHandler {
	return &ForumHandler{
		BaseHandler:  NewBaseHandler(logger),
		forumService: forumService,
	}
}

func threadURL(id uint) string {
	return fmt.Sprintf("/forum/threads/%d", id)
}

// ListThreads renders the forum index. ?category= and ?order= pick the slice.
func (h *ForumHandler) ListThreads(c *gin.Context) {
	var req services.ThreadListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		redirectWithFlash(c, "/forum", flashError, "Filtro inválido.")
		return
	}

	list, err := h.forumService.ListThreads(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.handleServiceError(c, err, "/forum")
		return
	}

	h.render(c, http.StatusOK, "forum.html", gin.H{
		"Title":  "Foro",
		"List":   list,
		"Orders": []models.ThreadOrder{models.OrderRecent, models.OrderPopular, models.OrderOldest},
	})
}

func (h *ForumHandler) NewThread(c *gin.Context) {
	h.renderThreadForm(c, http.StatusOK, nil, &services.ThreadRequest{}, nil)
}

func (h *ForumHandler) CreateThread(c *gin.Context) {
	var req services.ThreadRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/forum/new", flashError, "Formulario inválido.")
		return
	}

	thread, err := h.forumService.CreateThread(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		h.renderThreadForm(c, http.StatusBadRequest, nil, &req, err)
		return
	}

	h.LogRequest(c, "Thread created", "thread_id", thread.ID)
	redirectWithFlash(c, threadURL(thread.ID), flashSuccess, "Tema publicado.")
}

// GetThread counts a visit on every view.
func (h *ForumHandler) GetThread(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Tema no encontrado.")
		return
	}

	detail, err := h.forumService.ViewThread(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/forum")
		return
	}

	h.render(c, http.StatusOK, "thread.html", gin.H{
		"Title":    detail.Thread.Title,
		"Detail":   detail,
		"Statuses": []models.ThreadStatus{models.ThreadOpen, models.ThreadClosed, models.ThreadFeatured},
	})
}

func (h *ForumHandler) EditThread(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Tema no encontrado.")
		return
	}

	thread, err := h.forumService.GetThread(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, "/forum")
		return
	}
	if thread.CreatedBy != currentUser(c).ID {
		redirectWithFlash(c, threadURL(id), flashError, "Solo el autor puede editar este tema.")
		return
	}

	h.renderThreadForm(c, http.StatusOK, thread, &services.ThreadRequest{
		Title:       thread.Title,
		Body:        thread.Body,
		CategoryID:  thread.CategoryID,
		IsAnonymous: thread.IsAnonymous,
	}, nil)
}

func (h *ForumHandler) UpdateThread(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Tema no encontrado.")
		return
	}

	var req services.ThreadRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, threadURL(id)+"/edit", flashError, "Formulario inválido.")
		return
	}

	if _, err := h.forumService.UpdateThread(c.Request.Context(), currentUser(c), id, &req); err != nil {
		h.renderThreadForm(c, http.StatusBadRequest, &models.Thread{ID: id}, &req, err)
		return
	}
	redirectWithFlash(c, threadURL(id), flashSuccess, "Tema actualizado.")
}

func (h *ForumHandler) DeleteThread(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Tema no encontrado.")
		return
	}

	thread, err := h.forumService.DeleteThread(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.handleServiceError(c, err, threadURL(id))
		return
	}

	h.LogRequest(c, "Thread deleted", "thread_id", id)
	redirectWithFlash(c, "/forum", flashSuccess, fmt.Sprintf("Tema \"%s\" eliminado.", thread.Title))
}

func (h *ForumHandler) SetStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Tema no encontrado.")
		return
	}

	var req validator.ThreadStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, threadURL(id), flashError, "Estado inválido.")
		return
	}

	if _, err := h.forumService.SetThreadStatus(c.Request.Context(), currentUser(c), id, req.Status); err != nil {
		h.handleServiceError(c, err, threadURL(id))
		return
	}
	redirectWithFlash(c, threadURL(id), flashSuccess, "Estado actualizado.")
}

func (h *ForumHandler) CreateReply(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Tema no encontrado.")
		return
	}

	var req services.ForumReplyRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, threadURL(id), flashError, "Formulario inválido.")
		return
	}

	if _, err := h.forumService.CreateReply(c.Request.Context(), currentUser(c), id, &req); err != nil {
		h.handleServiceError(c, err, threadURL(id))
		return
	}
	redirectWithFlash(c, threadURL(id), flashSuccess, "Respuesta publicada.")
}

func (h *ForumHandler) SetOfficial(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Respuesta no encontrada.")
		return
	}

	var req validator.OfficialReplyRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/forum", flashError, "Formulario inválido.")
		return
	}

	reply, err := h.forumService.SetReplyOfficial(c.Request.Context(), currentUser(c), id, req.Official)
	if err != nil {
		h.handleServiceError(c, err, "/forum")
		return
	}
	redirectWithFlash(c, threadURL(reply.ThreadID), flashSuccess, "Respuesta actualizada.")
}

// VoteThread records or flips the caller's vote. One vote per user and thread.
func (h *ForumHandler) VoteThread(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Tema no encontrado.")
		return
	}

	var req validator.VoteRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, threadURL(id), flashError, "Voto inválido.")
		return
	}

	if _, err := h.forumService.VoteThread(c.Request.Context(), currentUser(c), id, req.Polarity); err != nil {
		h.handleServiceError(c, err, threadURL(id))
		return
	}
	c.Redirect(http.StatusSeeOther, threadURL(id))
}

func (h *ForumHandler) VoteReply(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.renderError(c, http.StatusNotFound, "Respuesta no encontrada.")
		return
	}

	var req validator.VoteRequest
	if err := c.ShouldBind(&req); err != nil {
		redirectWithFlash(c, "/forum", flashError, "Voto inválido.")
		return
	}

	reply, err := h.forumService.VoteReply(c.Request.Context(), currentUser(c), id, req.Polarity)
	if err != nil {
		h.handleServiceError(c, err, "/forum")
		return
	}
	c.Redirect(http.StatusSeeOther, threadURL(reply.ThreadID))
}

func (h *ForumHandler) renderThreadForm(c *gin.Context, status int, thread *models.Thread, req *services.ThreadRequest, err error) {
	back := "/forum/new"
	title := "Nuevo tema"
	if thread != nil {
		back = threadURL(thread.ID) + "/edit"
		title = "Editar tema"
	}

	categories, cerr := h.forumService.ListCategories(c.Request.Context())
	if cerr != nil {
		h.handleServiceError(c, cerr, "/forum")
		return
	}

	data := gin.H{
		"Title":      title,
		"Editing":    thread,
		"Form":       req,
		"Categories": categories,
	}
	if err != nil {
		h.renderForm(c, "thread_form.html", data, err, back)
		return
	}
	h.render(c, status, "thread_form.html", data)
}
