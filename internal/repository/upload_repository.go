package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personavault/api/internal/models"
)

var ErrUploadNotFound = errors.New("upload not found")

type UploadRepository struct {
	pool *pgxpool.Pool
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{pool: pool}
}

func (r *UploadRepository) Create(ctx context.Context, upload models.Upload) error {
	const query = `
		INSERT INTO uploads (id, user_id, file_name, object_key, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		upload.ID,
		upload.UserID,
		upload.FileName,
		upload.ObjectKey,
		upload.ContentType,
		upload.SizeBytes,
	)
	return err
}

func (r *UploadRepository) ListByUser(ctx context.Context, userID string) ([]models.Upload, error) {
	const query = `
		SELECT id, user_id, file_name, object_key, content_type, size_bytes, created_at
		FROM uploads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		var u models.Upload
		if err := rows.Scan(&u.ID, &u.UserID, &u.FileName, &u.ObjectKey, &u.ContentType, &u.SizeBytes, &u.CreatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

func (r *UploadRepository) GetByID(ctx context.Context, userID, uploadID string) (models.Upload, error) {
	const query = `
		SELECT id, user_id, file_name, object_key, content_type, size_bytes, created_at
		FROM uploads
		WHERE id = $1 AND user_id = $2
	`
	var u models.Upload
	if err := r.pool.QueryRow(ctx, query, uploadID, userID).Scan(
		&u.ID, &u.UserID, &u.FileName, &u.ObjectKey, &u.ContentType, &u.SizeBytes, &u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Upload{}, ErrUploadNotFound
		}
		return models.Upload{}, err
	}
	return u, nil
}

// ObjectKeys returns every object key with a metadata row, for reconciling
// the bucket against the table.
func (r *UploadRepository) ObjectKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT object_key FROM uploads`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func (r *UploadRepository) Delete(ctx context.Context, userID, uploadID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1 AND user_id = $2`, uploadID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}
