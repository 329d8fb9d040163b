package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"personavault/api/internal/middleware"
	"personavault/api/internal/models"
	"personavault/api/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Theme    string `json:"theme"`
}

func (h HandlerSet) RegisterAccount(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, result.Session)
	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(result.User)})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, result.Session)
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(result.User)})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.CurrentSessionID(c)); err != nil {
		respondError(c, err)
		return
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) LogoutAll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}

	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// ValidateSession never 401s: a missing or dead cookie yields an
// unauthenticated payload with defaults so the frontend can render
// a logged-out shell without special-casing errors.
func (h HandlerSet) ValidateSession(c *gin.Context) {
	unauthenticated := gin.H{
		"authenticated": false,
		"theme":         models.DefaultTheme,
		"widgets":       models.DefaultWidgets,
	}

	sessionID, err := c.Cookie(middleware.SessionCookie)
	if err != nil || sessionID == "" {
		c.JSON(http.StatusOK, unauthenticated)
		return
	}

	user, err := h.authService.Validate(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusOK, unauthenticated)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          toUserResponse(user),
		"theme":         user.Theme,
		"widgets":       models.DefaultWidgets,
	})
}

func (h HandlerSet) GetTheme(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": user.Theme})
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

func (h HandlerSet) SetTheme(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.users.UpdateTheme(c.Request.Context(), user.ID, req.Theme); err != nil {
		h.log.Error().Err(err).Msg("update theme")
		respondError(c, service.ErrStoreUnavailable)
		return
	}

	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, session models.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.SessionCookie,
		session.ID,
		int(h.cfg.Security.SessionTTL.Seconds()),
		"/",
		h.cfg.Security.CookieDomain,
		h.cfg.Production(),
		true,
	)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.SessionCookie,
		"",
		-1,
		"/",
		h.cfg.Security.CookieDomain,
		h.cfg.Production(),
		true,
	)
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
		Theme:    user.Theme,
	}
}
