package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"personavault/api/internal/middleware"
	"personavault/api/internal/service"
)

// Chat relays the conversation to the user's configured provider and streams
// the upstream body straight through.
func (h HandlerSet) Chat(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req service.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, contentType, err := h.chatService.Relay(c.Request.Context(), user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Status(http.StatusOK)
	c.Header("Content-Type", contentType)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.log.Debug().Err(err).Msg("chat stream interrupted")
	}
}

func (h HandlerSet) Models(c *gin.Context) {
	models, err := h.chatService.Models(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}

type testConnectionRequest struct {
	APIEndpoint string `json:"api_endpoint" binding:"required"`
	APIKey      string `json:"api_key"`
}

func (h HandlerSet) TestConnection(c *gin.Context) {
	var req testConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatService.TestConnection(c.Request.Context(), req.APIEndpoint, req.APIKey); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "connection successful"})
}
