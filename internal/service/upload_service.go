package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"personavault/api/internal/ids"
	"personavault/api/internal/models"
	"personavault/api/internal/repository"
)

var (
	ErrFileTooLarge  = errors.New("file exceeds size limit")
	ErrFileExtension = errors.New("file extension not allowed")
)

// UploadStore is what the upload service needs from the repository.
type UploadStore interface {
	Create(ctx context.Context, upload models.Upload) error
	ListByUser(ctx context.Context, userID string) ([]models.Upload, error)
	GetByID(ctx context.Context, userID, uploadID string) (models.Upload, error)
	Delete(ctx context.Context, userID, uploadID string) error
}

// BlobStore is the object backend holding upload contents.
type BlobStore interface {
	Put(ctx context.Context, objectKey, contentType string, reader io.Reader, size int64) error
	Remove(ctx context.Context, objectKey string) error
}

type UploadService struct {
	uploads      UploadStore
	blobs        BlobStore
	maxSize      int64
	extensions   map[string]struct{}
	storeTimeout time.Duration
	log          zerolog.Logger
}

func NewUploadService(uploads UploadStore, blobs BlobStore, maxSize int64, allowedExtensions []string, storeTimeout time.Duration, log zerolog.Logger) *UploadService {
	extensions := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		extensions[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	return &UploadService{
		uploads:      uploads,
		blobs:        blobs,
		maxSize:      maxSize,
		extensions:   extensions,
		storeTimeout: storeTimeout,
		log:          log,
	}
}

type UploadInput struct {
	UserID string
	File   multipart.File
	Header *multipart.FileHeader
}

// Upload validates size and extension, stores the blob, then the metadata
// row. A metadata failure rolls the blob back so neither side leaks.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (models.Upload, error) {
	if input.File == nil || input.Header == nil || input.Header.Filename == "" {
		return models.Upload{}, fmt.Errorf("%w: file required", ErrValidation)
	}

	ext := strings.ToLower(filepath.Ext(input.Header.Filename))
	if _, ok := s.extensions[ext]; !ok {
		return models.Upload{}, ErrFileExtension
	}
	if input.Header.Size > s.maxSize {
		return models.Upload{}, ErrFileTooLarge
	}

	// The declared size is client-controlled; read through a capped reader
	// so an oversized body fails regardless of what the header claims.
	data, err := io.ReadAll(io.LimitReader(input.File, s.maxSize+1))
	if err != nil {
		return models.Upload{}, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return models.Upload{}, ErrFileTooLarge
	}
	if len(data) == 0 {
		return models.Upload{}, fmt.Errorf("%w: empty file", ErrValidation)
	}

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadID := ids.New()
	objectKey := path.Join(time.Now().UTC().Format("2006/01/02"), uploadID+ext)

	if err := s.blobs.Put(ctx, objectKey, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		s.log.Error().Err(err).Str("object_key", objectKey).Msg("store blob")
		return models.Upload{}, ErrStoreUnavailable
	}

	upload := models.Upload{
		ID:          uploadID,
		UserID:      input.UserID,
		FileName:    input.Header.Filename,
		ObjectKey:   objectKey,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
	}

	// Blob transfers scale with file size, so only the metadata row is held
	// to the store timeout.
	createCtx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()
	if err := s.uploads.Create(createCtx, upload); err != nil {
		s.log.Error().Err(err).Str("upload_id", uploadID).Msg("save upload metadata")
		if rmErr := s.blobs.Remove(ctx, objectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("orphaned blob left behind")
		}
		return models.Upload{}, ErrStoreUnavailable
	}

	return upload, nil
}

func (s *UploadService) List(ctx context.Context, userID string) ([]models.Upload, error) {
	ctx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	uploads, err := s.uploads.ListByUser(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("list uploads")
		return nil, ErrStoreUnavailable
	}
	return uploads, nil
}

// Delete removes the metadata row first, then the blob. A blob removal
// failure is logged; the sweep reconciles stragglers.
func (s *UploadService) Delete(ctx context.Context, userID, uploadID string) error {
	rowCtx, cancel := boundStore(ctx, s.storeTimeout)
	defer cancel()

	upload, err := s.uploads.GetByID(rowCtx, userID, uploadID)
	if err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Msg("get upload")
		return ErrStoreUnavailable
	}

	if err := s.uploads.Delete(rowCtx, userID, uploadID); err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			return ErrNotFound
		}
		s.log.Error().Err(err).Msg("delete upload")
		return ErrStoreUnavailable
	}

	if err := s.blobs.Remove(ctx, upload.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("object_key", upload.ObjectKey).Msg("remove blob")
	}
	return nil
}
