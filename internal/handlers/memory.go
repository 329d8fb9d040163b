package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"personavault/api/internal/middleware"
	"personavault/api/internal/models"
	"personavault/api/internal/service"
)

type memoryResponse struct {
	ID           string    `json:"id"`
	MemoryType   string    `json:"memory_type"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags"`
	PrivacyLevel string    `json:"privacy_level"`
	ExpiryDays   int       `json:"expiry_days"`
	CreatedAt    time.Time `json:"created_at"`
}

func toMemoryResponse(memory models.Memory) memoryResponse {
	return memoryResponse{
		ID:           memory.ID,
		MemoryType:   memory.MemoryType,
		Content:      memory.Content,
		Tags:         memory.Tags,
		PrivacyLevel: memory.PrivacyLevel,
		ExpiryDays:   memory.ExpiryDays,
		CreatedAt:    memory.CreatedAt,
	}
}

func toMemoryResponses(memories []models.Memory) []memoryResponse {
	resp := make([]memoryResponse, 0, len(memories))
	for _, memory := range memories {
		resp = append(resp, toMemoryResponse(memory))
	}
	return resp
}

type createMemoryRequest struct {
	MemoryType   string   `json:"memory_type"`
	Content      string   `json:"content" binding:"required"`
	Tags         []string `json:"tags"`
	PrivacyLevel string   `json:"privacy_level"`
	ExpiryDays   int      `json:"expiry_days"`
}

func (h HandlerSet) CreateMemory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memory, err := h.memoryService.Create(c.Request.Context(), user.ID, service.CreateMemoryInput{
		MemoryType:   req.MemoryType,
		Content:      req.Content,
		Tags:         req.Tags,
		PrivacyLevel: req.PrivacyLevel,
		ExpiryDays:   req.ExpiryDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"memory": toMemoryResponse(memory)})
}

func (h HandlerSet) ListMemories(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	memories, err := h.memoryService.List(c.Request.Context(), user.ID, c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"memories": toMemoryResponses(memories)})
}

type searchMemoriesRequest struct {
	Query string `json:"query" binding:"required"`
}

func (h HandlerSet) SearchMemories(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req searchMemoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memories, err := h.memoryService.Search(c.Request.Context(), user.ID, req.Query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"results": toMemoryResponses(memories),
	})
}

func (h HandlerSet) GetMemory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	memory, err := h.memoryService.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"memory": toMemoryResponse(memory)})
}

func (h HandlerSet) DeleteMemory(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.memoryService.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
