package handlers

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clinic-portal/portal-service/internal/services"
	"github.com/clinic-portal/portal-service/internal/utils"
)

type MediaHandler struct {
	BaseHandler
	mediaService services.MediaService
}

func NewMediaHandler(mediaService services.MediaService, logger utils.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler:  NewBaseHandler(logger),
		mediaService: mediaService,
	}
}

// ServeMedia streams an upload at /media/*key once the caller is allowed to see its owner.
func (h *MediaHandler) ServeMedia(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	rc, info, err := h.mediaService.Open(c.Request.Context(), currentUser(c), key)
	if err != nil {
		h.handleServiceError(c, err, "/")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `inline; filename="`+path.Base(key)+`"`)
	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, nil)
}
