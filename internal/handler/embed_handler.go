package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedgate/internal/pkg/response"
	"github.com/xxxsen/embedgate/internal/service"
)

type EmbedHandler struct {
	svc *service.EmbedService
}

func NewEmbedHandler(svc *service.EmbedService) *EmbedHandler {
	return &EmbedHandler{svc: svc}
}

type embedRequest struct {
	Text     string                 `json:"text"`
	ID       uint64                 `json:"id"`
	Metadata map[string]interface{} `json:"metadata"`
}

type searchRequest struct {
	Vector []float32 `json:"vector"`
	Text   string    `json:"text"`
	TopK   int       `json:"top_k"`
}

func (h *EmbedHandler) Embed(c *gin.Context) {
	var req embedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	id, vector, err := h.svc.Embed(c.Request.Context(), req.Text, req.ID, req.Metadata)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "embedding": vector})
}

func (h *EmbedHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	hits, err := h.svc.Search(c.Request.Context(), req.Vector, req.Text, req.TopK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": hits})
}
