package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedgate/internal/pkg/response"
	"github.com/xxxsen/embedgate/internal/service"
)

type AdminHandler struct {
	svc *service.EmbedService
}

func NewAdminHandler(svc *service.EmbedService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "collection reset"})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}
