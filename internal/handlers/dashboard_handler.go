package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

func (h *DashboardHandler) AdminDashboard(c *gin.Context) {
	h.LogRequest(c, "Getting admin dashboard")

	dash, err := h.dashboardService.AdminDashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "admin_dashboard.html", gin.H{"Title": "Panel de administración", "Dashboard": dash})
}

func (h *DashboardHandler) InternDashboard(c *gin.Context) {
	h.LogRequest(c, "Getting intern dashboard")

	dash, err := h.dashboardService.InternDashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "intern_dashboard.html", gin.H{"Title": "Panel del pasante", "Dashboard": dash})
}
