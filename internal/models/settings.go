package models

import "time"

type ProviderType string

const (
	ProviderOllama   ProviderType = "ollama"
	ProviderInternet ProviderType = "internet"
	ProviderHybrid   ProviderType = "hybrid"
)

type DeploymentType string

const (
	DeploymentLocal    DeploymentType = "local"
	DeploymentInternet DeploymentType = "internet"
	DeploymentHybrid   DeploymentType = "hybrid"
)

// AISetting is one AI configuration profile. At most one profile per user
// carries IsActive = true; saving a new profile deactivates the others.
type AISetting struct {
	ID               string
	UserID           string
	ProfileName      string
	ProviderType     ProviderType
	DeploymentType   DeploymentType
	ModelName        string
	APIKeyEnc        string
	APIEndpoint      string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	SystemPrompt     string
	ResponseFormat   string
	Language         string
	IsActive         bool
	CreatedAt        time.Time
}

// DefaultAISetting is returned when a user has no active profile. Absence of
// settings is never an error condition.
func DefaultAISetting() AISetting {
	return AISetting{
		ProfileName:    "Default Profile",
		ProviderType:   ProviderOllama,
		DeploymentType: DeploymentLocal,
		ModelName:      "default",
		Temperature:    0.7,
		MaxTokens:      100,
		SystemPrompt:   "You are a helpful personal assistant.",
	}
}
