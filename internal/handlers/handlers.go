package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"personavault/api/internal/cache"
	"personavault/api/internal/config"
	"personavault/api/internal/middleware"
	"personavault/api/internal/repository"
	"personavault/api/internal/service"
	"personavault/api/internal/storage"
	"personavault/api/internal/vault"
	"personavault/api/internal/ws"
)

type HandlerSet struct {
	log             zerolog.Logger
	cfg             *config.AppConfig
	authService     *service.AuthService
	settingsService *service.SettingsService
	memoryService   *service.MemoryService
	chatService     *service.ChatService
	uploadService   *service.UploadService
	users           *repository.UserRepository
	hub             *ws.Hub
	loginLimiter    *cache.RateLimiter
	settingsLimiter *cache.RateLimiter
	db              *pgxpool.Pool
	cache           *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, store *storage.ObjectStore, secrets *vault.Vault, hub *ws.Hub, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	memoryRepo := repository.NewMemoryRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	guard := service.NewAccountGuard(userRepo, cfg.Security.MaxFailedLogins, cfg.Security.LockoutDuration, log)
	auth := service.NewAuthService(userRepo, sessionRepo, guard, cfg.Security.SessionTTL, cfg.Security.StoreTimeout, log)
	settings := service.NewSettingsService(settingsRepo, secrets, cfg.Security.StoreTimeout, log)
	memories := service.NewMemoryService(memoryRepo, cfg.Security.StoreTimeout, log)
	chat := service.NewChatService(settings, cfg.Chat.LocalEndpoint, cfg.Chat.RequestTimeout, log)
	uploads := service.NewUploadService(uploadRepo, store, cfg.Upload.MaxSizeBytes, cfg.Upload.AllowedExtensions, cfg.Security.StoreTimeout, log)

	return HandlerSet{
		log:             log,
		cfg:             cfg,
		authService:     auth,
		settingsService: settings,
		memoryService:   memories,
		chatService:     chat,
		uploadService:   uploads,
		users:           userRepo,
		hub:             hub,
		loginLimiter:    cache.NewRateLimiter(redisClient, "ratelimit:login"),
		settingsLimiter: cache.NewRateLimiter(redisClient, "ratelimit:settings"),
		db:              db,
		cache:           redisClient,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	loginLimit := middleware.RateLimit(h.loginLimiter, h.cfg.Security.LoginRateLimit, h.cfg.Security.LoginRateWindow, h.log)
	settingsLimit := middleware.RateLimit(h.settingsLimiter, h.cfg.Security.SettingsRateLimit, h.cfg.Security.SettingsRateWindow, h.log)
	sessionAuth := middleware.SessionAuth(h.authService)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", loginLimit, h.RegisterAccount)
		auth.POST("/login", loginLimit, h.Login)
		auth.POST("/validate-session", h.ValidateSession)

		protected := v1.Group("/auth")
		protected.Use(sessionAuth)
		protected.POST("/logout", h.Logout)
		protected.POST("/logout-all", h.LogoutAll)

		theme := v1.Group("/theme")
		theme.Use(sessionAuth)
		theme.GET("", h.GetTheme)
		theme.POST("", h.SetTheme)

		settings := v1.Group("/ai-settings")
		settings.Use(sessionAuth)
		settings.GET("", h.ListSettings)
		settings.POST("", settingsLimit, h.SaveSettings)
		settings.GET("/current", h.CurrentSettings)
		settings.GET("/:id", h.GetSetting)
		settings.DELETE("/:id", h.DeleteSetting)

		memories := v1.Group("/memories")
		memories.Use(sessionAuth)
		memories.GET("", h.ListMemories)
		memories.POST("", h.CreateMemory)
		memories.POST("/search", h.SearchMemories)
		memories.GET("/:id", h.GetMemory)
		memories.DELETE("/:id", h.DeleteMemory)

		chat := v1.Group("")
		chat.Use(sessionAuth)
		chat.POST("/chat", h.Chat)
		chat.GET("/models", h.Models)
		chat.POST("/test-connection", h.TestConnection)

		uploads := v1.Group("/uploads")
		uploads.Use(sessionAuth)
		uploads.POST("", h.Upload)
		uploads.GET("", h.ListUploads)
		uploads.DELETE("/:id", h.DeleteUpload)
	}

	router.GET("/ws", sessionAuth, h.ServeWS)
	router.GET("/ws-health", h.WSHealth)
}

// respondError translates domain sentinels into HTTP statuses. Anything
// unrecognized is a 500 with a generic body; internals stay internal.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrFileExtension):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateAccount):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
	}
}
