package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tastevine/backend/internal/service"
)

// ChatHandler handles chat requests
type ChatHandler struct {
	assistant service.Responder
}

// NewChatHandler creates a new ChatHandler instance
func NewChatHandler(assistant service.Responder) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

// RegisterRoutes registers the chat routes
func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/chat", h.Chat)
	router.POST("/getem/:keywords", h.GetEm)
}

// Chat processes a chat message and returns a response. Failures ride an
// HTTP 200 with an "error" field; clients never see a 5xx from this route.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "Sorry, I encountered an error while processing your message. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": h.assistant.Respond(c.Request.Context(), req.Message)})
}

// GetEm is the legacy keyword endpoint, kept only to point old clients at
// the chat route
func (h *ChatHandler) GetEm(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "This endpoint is deprecated. Please use the /chat endpoint instead.",
		"example": "Try sending a message like 'What can I make with chicken?' to the /chat endpoint",
	})
}
