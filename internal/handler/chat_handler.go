package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/embedgate/internal/pkg/response"
	"github.com/xxxsen/embedgate/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := h.svc.Chat(c.Request.Context(), req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": reply.Message, "usage": reply.Usage})
}
