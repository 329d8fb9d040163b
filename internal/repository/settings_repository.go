package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"personavault/api/internal/models"
)

var ErrSettingNotFound = errors.New("setting not found")

const settingColumns = `id, user_id, profile_name, provider_type, deployment_type,
	model_name, api_key_enc, api_endpoint, temperature, max_tokens, top_p,
	presence_penalty, frequency_penalty, system_prompt, response_format,
	language, is_active, created_at`

type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func scanSetting(row pgx.Row) (models.AISetting, error) {
	var s models.AISetting
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ProfileName,
		&s.ProviderType,
		&s.DeploymentType,
		&s.ModelName,
		&s.APIKeyEnc,
		&s.APIEndpoint,
		&s.Temperature,
		&s.MaxTokens,
		&s.TopP,
		&s.PresencePenalty,
		&s.FrequencyPenalty,
		&s.SystemPrompt,
		&s.ResponseFormat,
		&s.Language,
		&s.IsActive,
		&s.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AISetting{}, ErrSettingNotFound
		}
		return models.AISetting{}, err
	}
	return s, nil
}

// SaveActive deactivates every other profile the user owns and inserts the
// new one as active, in one transaction so exactly one profile stays active.
func (r *SettingsRepository) SaveActive(ctx context.Context, setting models.AISetting) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const deactivate = `UPDATE ai_settings SET is_active = FALSE WHERE user_id = $1 AND is_active`
		if _, err := tx.Exec(ctx, deactivate, setting.UserID); err != nil {
			return err
		}

		const insert = `
			INSERT INTO ai_settings (
				id, user_id, profile_name, provider_type, deployment_type, model_name,
				api_key_enc, api_endpoint, temperature, max_tokens, top_p,
				presence_penalty, frequency_penalty, system_prompt, response_format,
				language, is_active, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, TRUE, NOW()
			)
		`
		_, err := tx.Exec(ctx, insert,
			setting.ID,
			setting.UserID,
			setting.ProfileName,
			setting.ProviderType,
			setting.DeploymentType,
			setting.ModelName,
			setting.APIKeyEnc,
			setting.APIEndpoint,
			setting.Temperature,
			setting.MaxTokens,
			setting.TopP,
			setting.PresencePenalty,
			setting.FrequencyPenalty,
			setting.SystemPrompt,
			setting.ResponseFormat,
			setting.Language,
		)
		return err
	})
}

func (r *SettingsRepository) GetActive(ctx context.Context, userID string) (models.AISetting, error) {
	query := `
		SELECT ` + settingColumns + `
		FROM ai_settings
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanSetting(r.pool.QueryRow(ctx, query, userID))
}

func (r *SettingsRepository) GetByID(ctx context.Context, userID, settingID string) (models.AISetting, error) {
	query := `SELECT ` + settingColumns + ` FROM ai_settings WHERE id = $1 AND user_id = $2`
	return scanSetting(r.pool.QueryRow(ctx, query, settingID, userID))
}

func (r *SettingsRepository) ListByUser(ctx context.Context, userID string) ([]models.AISetting, error) {
	query := `SELECT ` + settingColumns + ` FROM ai_settings WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []models.AISetting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// Delete removes a profile only if the user owns it.
func (r *SettingsRepository) Delete(ctx context.Context, userID, settingID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ai_settings WHERE id = $1 AND user_id = $2`, settingID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSettingNotFound
	}
	return nil
}
