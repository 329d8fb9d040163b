package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"personavault/api/internal/models"
)

// ProfileSource resolves the active AI profile, API key already decrypted.
type ProfileSource interface {
	Active(ctx context.Context, userID string) (models.AISetting, bool, error)
}

// ChatService relays chat requests to the model provider the user's active
// profile points at: the local model server by default, a hosted API when the
// profile is deployed to the internet.
type ChatService struct {
	profiles      ProfileSource
	client        *http.Client
	localEndpoint string
	log           zerolog.Logger
}

func NewChatService(profiles ProfileSource, localEndpoint string, timeout time.Duration, log zerolog.Logger) *ChatService {
	return &ChatService{
		profiles:      profiles,
		client:        &http.Client{Timeout: timeout},
		localEndpoint: strings.TrimRight(localEndpoint, "/"),
		log:           log,
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type upstreamChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// Relay forwards the chat request to the active profile's provider and
// returns the upstream response body for streaming straight back to the
// client. The caller must close the body.
func (s *ChatService) Relay(ctx context.Context, userID string, req ChatRequest) (io.ReadCloser, string, error) {
	if len(req.Messages) == 0 {
		return nil, "", fmt.Errorf("%w: messages required", ErrValidation)
	}

	profile, _, err := s.profiles.Active(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	endpoint, apiKey := s.route(profile)

	upstream := upstreamChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Stream:      true,
		Temperature: profile.Temperature,
		MaxTokens:   profile.MaxTokens,
	}
	if upstream.Model == "" {
		upstream.Model = profile.ModelName
	}
	if profile.SystemPrompt != "" && req.Messages[0].Role != "system" {
		upstream.Messages = append([]ChatMessage{{Role: "system", Content: profile.SystemPrompt}}, upstream.Messages...)
	}

	body, err := json.Marshal(upstream)
	if err != nil {
		return nil, "", fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", endpoint).Msg("chat relay failed")
		return nil, "", ErrUpstream
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		s.log.Error().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("chat relay rejected")
		return nil, "", ErrUpstream
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	return resp.Body, contentType, nil
}

// route picks the upstream URL and credential for a profile. Hosted
// deployments use the profile's endpoint with its decrypted key; everything
// else goes to the local model server, no credential.
func (s *ChatService) route(profile models.AISetting) (endpoint, apiKey string) {
	hosted := profile.DeploymentType == models.DeploymentInternet ||
		profile.DeploymentType == models.DeploymentHybrid ||
		profile.ProviderType == models.ProviderInternet

	if hosted && profile.APIEndpoint != "" {
		return strings.TrimRight(profile.APIEndpoint, "/") + "/chat/completions", profile.APIKeyEnc
	}
	return s.localEndpoint + "/api/chat", ""
}

type ModelInfo struct {
	ModelName    string `json:"model_name"`
	ProviderType string `json:"provider_type"`
	Description  string `json:"description"`
}

type localTagsResponse struct {
	Models []struct {
		Name    string `json:"name"`
		Details struct {
			Family string `json:"family"`
		} `json:"details"`
	} `json:"models"`
}

// Models lists the models installed on the local model server.
func (s *ChatService) Models(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.localEndpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build models request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error().Err(err).Msg("local model server unreachable")
		return nil, ErrUpstream
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Error().Int("status", resp.StatusCode).Msg("model listing rejected")
		return nil, ErrUpstream
	}

	var tags localTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode model listing: %w", err)
	}

	infos := make([]ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		description := m.Details.Family
		if description == "" {
			description = "Local model"
		}
		infos = append(infos, ModelInfo{
			ModelName:    m.Name,
			ProviderType: "Ollama",
			Description:  description,
		})
	}
	return infos, nil
}

// TestConnection probes a hosted provider with a one-message completion.
func (s *ChatService) TestConnection(ctx context.Context, apiEndpoint, apiKey string) error {
	if apiEndpoint == "" {
		return fmt.Errorf("%w: api_endpoint required", ErrValidation)
	}

	probe := upstreamChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "Hi"}},
	}
	body, err := json.Marshal(probe)
	if err != nil {
		return fmt.Errorf("encode probe: %w", err)
	}

	url := strings.TrimRight(apiEndpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Str("endpoint", apiEndpoint).Msg("connection test failed")
		return ErrUpstream
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return ErrUpstream
	}
	return nil
}
