package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"personavault/api/internal/ids"
	"personavault/api/internal/models"
	"personavault/api/internal/repository"
)

// MemoryStore is what the memory service needs from the repository.
type MemoryStore interface {
	Create(ctx context.Context, memory models.Memory) error
	GetByID(ctx context.Context, userID, memoryID string) (models.Memory, error)
	ListByUser(ctx context.Context, userID, memoryType string) ([]models.Memory, error)
	Search(ctx context.Context, userID, text string) ([]models.Memory, error)
	Delete(ctx context.Context, userID, memoryID string) error
}

type MemoryService struct {
	store        MemoryStore
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewMemoryService(store MemoryStore, storeTimeout time.Duration, log zerolog.Logger) *MemoryService {
	return &MemoryService{store: store, storeTimeout: storeTimeout, log: log}
}

type CreateMemoryInput struct {
	MemoryType   string
	Content      string
	Tags         []string
	PrivacyLevel string
	ExpiryDays   int
}

func (s *MemoryService) Create(ctx context.Context, userID string, input CreateMemoryInput) (models.Memory, error) {
	if strings.TrimSpace(input.Content) == "" {
		return models.Memory{}, fmt.Errorf("%w: content required", ErrValidation)
	}
	if input.MemoryType == "" {
		input.MemoryType = "note"
	}
	if input.PrivacyLevel == "" {
		input.PrivacyLevel = "private"
	}
	if input.ExpiryDays < 0 {
		input.ExpiryDays = 0
	}

	memory := models.Memory{
		ID:           ids.New(),
		UserID:       userID,
		MemoryType:   input.MemoryType,
		Content:      input.Content,
		Tags:         input.Tags,
		PrivacyLevel: input.PrivacyLevel,
		ExpiryDays:   input.ExpiryDays,
	}

	createCtx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.Create(createCtx, memory); err != nil {
		s.log.Error().Err(err).Msg("create memory")
		return models.Memory{}, ErrStoreUnavailable
	}
	return memory, nil
}

// List returns the user's memories, newest first, optionally filtered by type.
func (s *MemoryService) List(ctx context.Context, userID, memoryType string) ([]models.Memory, error) {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	memories, err := s.store.ListByUser(ctx, userID, memoryType)
	if err != nil {
		s.log.Error().Err(err).Msg("list memories")
		return nil, ErrStoreUnavailable
	}
	return memories, nil
}

// Search matches the query text against memory content. A blank query returns
// nothing rather than everything.
func (s *MemoryService) Search(ctx context.Context, userID, query string) ([]models.Memory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	searchCtx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()
	memories, err := s.store.Search(searchCtx, userID, query)
	if err != nil {
		s.log.Error().Err(err).Msg("search memories")
		return nil, ErrStoreUnavailable
	}
	return memories, nil
}

func (s *MemoryService) Get(ctx context.Context, userID, memoryID string) (models.Memory, error) {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	memory, err := s.store.GetByID(ctx, userID, memoryID)
	if err != nil {
		if errors.Is(err, repository.ErrMemoryNotFound) {
			return models.Memory{}, ErrNotFound
		}
		s.log.Error().Err(err).Msg("get memory")
		return models.Memory{}, ErrStoreUnavailable
	}
	return memory, nil
}

func (s *MemoryService) Delete(ctx context.Context, userID, memoryID string) error {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Delete(ctx, userID, memoryID); err != nil {
		if errors.Is(err, repository.ErrMemoryNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Msg("delete memory")
		return ErrStoreUnavailable
	}
	return nil
}
