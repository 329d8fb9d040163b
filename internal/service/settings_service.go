package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"personavault/api/internal/ids"
	"personavault/api/internal/models"
	"personavault/api/internal/repository"
)

// SettingsStore is what the settings service needs from the repository.
type SettingsStore interface {
	SaveActive(ctx context.Context, setting models.AISetting) error
	GetActive(ctx context.Context, userID string) (models.AISetting, error)
	GetByID(ctx context.Context, userID, settingID string) (models.AISetting, error)
	ListByUser(ctx context.Context, userID string) ([]models.AISetting, error)
	Delete(ctx context.Context, userID, settingID string) error
}

// Sealer encrypts stored API keys. Both directions map empty to empty.
type Sealer interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) string
}

type SettingsService struct {
	store        SettingsStore
	sealer       Sealer
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewSettingsService(store SettingsStore, sealer Sealer, storeTimeout time.Duration, log zerolog.Logger) *SettingsService {
	return &SettingsService{store: store, sealer: sealer, storeTimeout: storeTimeout, log: log}
}

type SaveSettingInput struct {
	ProfileName      string
	ProviderType     models.ProviderType
	DeploymentType   models.DeploymentType
	ModelName        string
	APIKey           string
	APIEndpoint      string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	SystemPrompt     string
	ResponseFormat   string
	Language         string
}

func validProvider(p models.ProviderType) bool {
	switch p {
	case models.ProviderOllama, models.ProviderInternet, models.ProviderHybrid:
		return true
	}
	return false
}

func validDeployment(d models.DeploymentType) bool {
	switch d {
	case models.DeploymentLocal, models.DeploymentInternet, models.DeploymentHybrid:
		return true
	}
	return false
}

// Save stores a new profile and makes it the active one. Internet deployment
// relies entirely on the hosted provider, so it must carry both an API key
// and an endpoint; local and hybrid deployments can fall back to Ollama.
func (s *SettingsService) Save(ctx context.Context, userID string, input SaveSettingInput) (models.AISetting, error) {
	if input.ProfileName == "" {
		return models.AISetting{}, fmt.Errorf("%w: profile name required", ErrValidation)
	}
	if !validProvider(input.ProviderType) {
		return models.AISetting{}, fmt.Errorf("%w: unknown provider type %q", ErrValidation, input.ProviderType)
	}
	if !validDeployment(input.DeploymentType) {
		return models.AISetting{}, fmt.Errorf("%w: unknown deployment type %q", ErrValidation, input.DeploymentType)
	}

	if input.DeploymentType == models.DeploymentInternet && (input.APIKey == "" || input.APIEndpoint == "") {
		return models.AISetting{}, ErrMissingCredentials
	}

	setting := models.AISetting{
		ID:               ids.New(),
		UserID:           userID,
		ProfileName:      input.ProfileName,
		ProviderType:     input.ProviderType,
		DeploymentType:   input.DeploymentType,
		ModelName:        input.ModelName,
		APIKeyEnc:        s.sealer.Encrypt(input.APIKey),
		APIEndpoint:      input.APIEndpoint,
		Temperature:      input.Temperature,
		MaxTokens:        input.MaxTokens,
		TopP:             input.TopP,
		PresencePenalty:  input.PresencePenalty,
		FrequencyPenalty: input.FrequencyPenalty,
		SystemPrompt:     input.SystemPrompt,
		ResponseFormat:   input.ResponseFormat,
		Language:         input.Language,
	}

	saveCtx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.SaveActive(saveCtx, setting); err != nil {
		s.log.Error().Err(err).Msg("save setting")
		return models.AISetting{}, ErrStoreUnavailable
	}

	setting.IsActive = true
	s.log.Info().Str("user_id", userID).Str("profile", setting.ProfileName).Msg("settings profile saved")
	return setting, nil
}

// Active returns the user's active profile with the API key decrypted, or the
// built-in default when no profile exists. The second return reports whether
// the profile came from the store.
func (s *SettingsService) Active(ctx context.Context, userID string) (models.AISetting, bool, error) {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	setting, err := s.store.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			def := models.DefaultAISetting()
			def.UserID = userID
			return def, false, nil
		}
		s.log.Error().Err(err).Msg("get active setting")
		return models.AISetting{}, false, ErrStoreUnavailable
	}

	setting.APIKeyEnc = s.sealer.Decrypt(setting.APIKeyEnc)
	return setting, true, nil
}

// List returns every profile the user owns, newest first, with API keys
// blanked: listings never expose secrets, even encrypted ones.
func (s *SettingsService) List(ctx context.Context, userID string) ([]models.AISetting, error) {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	settings, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("list settings")
		return nil, ErrStoreUnavailable
	}
	for i := range settings {
		settings[i].APIKeyEnc = ""
	}
	return settings, nil
}

// Get returns one profile by id, owner-scoped, with the API key blanked.
func (s *SettingsService) Get(ctx context.Context, userID, settingID string) (models.AISetting, error) {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	setting, err := s.store.GetByID(ctx, userID, settingID)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return models.AISetting{}, ErrNotFound
		}
		s.log.Error().Err(err).Msg("get setting")
		return models.AISetting{}, ErrStoreUnavailable
	}
	setting.APIKeyEnc = ""
	return setting, nil
}

// Delete removes a profile the user owns.
func (s *SettingsService) Delete(ctx context.Context, userID, settingID string) error {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, userID, settingID); err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Msg("delete setting")
		return ErrStoreUnavailable
	}
	return nil
}
