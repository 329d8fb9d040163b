package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"personavault/api/internal/middleware"
	"personavault/api/internal/models"
	"personavault/api/internal/service"
)

type saveSettingRequest struct {
	ProfileName      string  `json:"profile_name" binding:"required"`
	ProviderType     string  `json:"provider_type" binding:"required"`
	DeploymentType   string  `json:"deployment_type" binding:"required"`
	ModelName        string  `json:"model_name"`
	APIKey           string  `json:"api_key"`
	APIEndpoint      string  `json:"api_endpoint"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	TopP             float64 `json:"top_p"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
	SystemPrompt     string  `json:"system_prompt"`
	ResponseFormat   string  `json:"response_format"`
	Language         string  `json:"language"`
}

type settingResponse struct {
	ID               string    `json:"id"`
	ProfileName      string    `json:"profile_name"`
	ProviderType     string    `json:"provider_type"`
	DeploymentType   string    `json:"deployment_type"`
	ModelName        string    `json:"model_name"`
	APIEndpoint      string    `json:"api_endpoint"`
	Temperature      float64   `json:"temperature"`
	MaxTokens        int       `json:"max_tokens"`
	TopP             float64   `json:"top_p"`
	PresencePenalty  float64   `json:"presence_penalty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	SystemPrompt     string    `json:"system_prompt"`
	ResponseFormat   string    `json:"response_format"`
	Language         string    `json:"language"`
	IsActive         bool      `json:"is_active"`
	HasAPIKey        bool      `json:"has_api_key"`
	CreatedAt        time.Time `json:"created_at"`
}

func (h HandlerSet) SaveSettings(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req saveSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setting, err := h.settingsService.Save(c.Request.Context(), user.ID, service.SaveSettingInput{
		ProfileName:      req.ProfileName,
		ProviderType:     models.ProviderType(req.ProviderType),
		DeploymentType:   models.DeploymentType(req.DeploymentType),
		ModelName:        req.ModelName,
		APIKey:           req.APIKey,
		APIEndpoint:      req.APIEndpoint,
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		SystemPrompt:     req.SystemPrompt,
		ResponseFormat:   req.ResponseFormat,
		Language:         req.Language,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"setting": toSettingResponse(setting, req.APIKey != "")})
}

func (h HandlerSet) ListSettings(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	settings, err := h.settingsService.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]settingResponse, 0, len(settings))
	for _, setting := range settings {
		resp = append(resp, toSettingResponse(setting, false))
	}
	c.JSON(http.StatusOK, gin.H{"settings": resp})
}

// CurrentSettings returns the active profile, falling back to the built-in
// default so a fresh account can chat immediately.
func (h HandlerSet) CurrentSettings(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	setting, stored, err := h.settingsService.Active(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	hasKey := setting.APIKeyEnc != ""
	setting.APIKeyEnc = ""
	c.JSON(http.StatusOK, gin.H{
		"setting": toSettingResponse(setting, hasKey),
		"stored":  stored,
	})
}

func (h HandlerSet) GetSetting(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	setting, err := h.settingsService.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"setting": toSettingResponse(setting, false)})
}

func (h HandlerSet) DeleteSetting(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.settingsService.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toSettingResponse(setting models.AISetting, hasKey bool) settingResponse {
	return settingResponse{
		ID:               setting.ID,
		ProfileName:      setting.ProfileName,
		ProviderType:     string(setting.ProviderType),
		DeploymentType:   string(setting.DeploymentType),
		ModelName:        setting.ModelName,
		APIEndpoint:      setting.APIEndpoint,
		Temperature:      setting.Temperature,
		MaxTokens:        setting.MaxTokens,
		TopP:             setting.TopP,
		PresencePenalty:  setting.PresencePenalty,
		FrequencyPenalty: setting.FrequencyPenalty,
		SystemPrompt:     setting.SystemPrompt,
		ResponseFormat:   setting.ResponseFormat,
		Language:         setting.Language,
		IsActive:         setting.IsActive,
		HasAPIKey:        hasKey,
		CreatedAt:        setting.CreatedAt,
	}
}
