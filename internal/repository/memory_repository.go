package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personavault/api/internal/models"
)

var ErrMemoryNotFound = errors.New("memory not found")

const memoryColumns = `id, user_id, memory_type, content, tags, privacy_level, expiry_days, created_at`

type MemoryRepository struct {
	pool *pgxpool.Pool
}

func NewMemoryRepository(pool *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{pool: pool}
}

func scanMemory(row pgx.Row) (models.Memory, error) {
	var m models.Memory
	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.MemoryType,
		&m.Content,
		&m.Tags,
		&m.PrivacyLevel,
		&m.ExpiryDays,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Memory{}, ErrMemoryNotFound
		}
		return models.Memory{}, err
	}
	return m, nil
}

func (r *MemoryRepository) Create(ctx context.Context, memory models.Memory) error {
	const query = `
		INSERT INTO memories (id, user_id, memory_type, content, tags, privacy_level, expiry_days, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		memory.ID,
		memory.UserID,
		memory.MemoryType,
		memory.Content,
		memory.Tags,
		memory.PrivacyLevel,
		memory.ExpiryDays,
	)
	return err
}

func (r *MemoryRepository) GetByID(ctx context.Context, userID, memoryID string) (models.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE id = $1 AND user_id = $2`
	return scanMemory(r.pool.QueryRow(ctx, query, memoryID, userID))
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID, memoryType string) ([]models.Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE user_id = $1 AND ($2 = '' OR memory_type = $2)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, memoryType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMemories(rows)
}

// Search matches the query as a case-insensitive substring of memory content.
func (r *MemoryRepository) Search(ctx context.Context, userID, text string) ([]models.Memory, error) {
	query := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE user_id = $1 AND content ILIKE '%' || $2 || '%'
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMemories(rows)
}

func collectMemories(rows pgx.Rows) ([]models.Memory, error) {
	var memories []models.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, memory)
	}
	return memories, rows.Err()
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, memoryID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM memories WHERE id = $1 AND user_id = $2`, memoryID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemoryNotFound
	}
	return nil
}

// DeleteExpired removes records past their retention window. expiry_days <= 0
// means keep forever.
func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		DELETE FROM memories
		WHERE expiry_days > 0 AND created_at + expiry_days * INTERVAL '1 day' < $1
	`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
