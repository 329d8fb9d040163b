package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketUploads string
	UseSSL        bool
	Region        string
}

type SecurityConfig struct {
	// EncryptionKey is the base64-encoded 32-byte vault key. Required in
	// production; a transient key is generated in any other environment.
	EncryptionKey   string
	SessionTTL      time.Duration
	MaxFailedLogins int
	LockoutDuration time.Duration
	LoginRateLimit  int
	LoginRateWindow time.Duration
	// Settings writes get their own budget so a login burst cannot starve
	// profile saves, and vice versa.
	SettingsRateLimit  int
	SettingsRateWindow time.Duration
	CookieDomain       string
	StoreTimeout       time.Duration
}

type ChatConfig struct {
	// LocalEndpoint is the default model server used by local deployments.
	LocalEndpoint  string
	RequestTimeout time.Duration
}

type CleanupConfig struct {
	Interval time.Duration
}

type UploadConfig struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Chat             ChatConfig
	Cleanup          CleanupConfig
	Upload           UploadConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) Production() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PERSONAVAULT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5001)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketuploads", "personavault-uploads")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.sessionttl", "1h")
	v.SetDefault("security.maxfailedlogins", 5)
	v.SetDefault("security.lockoutduration", "15m")
	v.SetDefault("security.loginratelimit", 10)
	v.SetDefault("security.loginratewindow", "1m")
	v.SetDefault("security.settingsratelimit", 30)
	v.SetDefault("security.settingsratewindow", "1m")
	v.SetDefault("security.storetimeout", "5s")

	v.SetDefault("chat.localendpoint", "http://localhost:11434")
	v.SetDefault("chat.requesttimeout", "60s")

	v.SetDefault("cleanup.interval", "6h")

	v.SetDefault("upload.maxsizebytes", 16*1024*1024)
	v.SetDefault("upload.allowedextensions", ".txt,.pdf,.png,.jpg,.jpeg,.gif")
}
