package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"personavault/api/internal/middleware"
	"personavault/api/internal/models"
	"personavault/api/internal/service"
)

type uploadResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h HandlerSet) Upload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	upload, err := h.uploadService.Upload(c.Request.Context(), service.UploadInput{
		UserID: user.ID,
		File:   file,
		Header: header,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"upload": toUploadResponse(upload)})
}

func (h HandlerSet) ListUploads(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	uploads, err := h.uploadService.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]uploadResponse, 0, len(uploads))
	for _, upload := range uploads {
		resp = append(resp, toUploadResponse(upload))
	}
	c.JSON(http.StatusOK, gin.H{"uploads": resp})
}

func (h HandlerSet) DeleteUpload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.uploadService.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toUploadResponse(upload models.Upload) uploadResponse {
	return uploadResponse{
		ID:          upload.ID,
		FileName:    upload.FileName,
		ContentType: upload.ContentType,
		SizeBytes:   upload.SizeBytes,
		CreatedAt:   upload.CreatedAt,
	}
}
