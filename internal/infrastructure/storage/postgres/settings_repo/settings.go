// Package settings_repo provides the PostgreSQL implementation of the
// settings key/value store.
package settings_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/security"
	"bottleworks/internal/domain/settings"
	"bottleworks/internal/infrastructure/storage/postgres"
)

const settingsTable = "sys_settings"

// Compile-time check that SettingsRepo implements settings.Repository.
var _ settings.Repository = (*SettingsRepo)(nil)

// SettingsRepo implements settings.Repository.
type SettingsRepo struct {
	txManager *postgres.TxManager
}

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo(txManager *postgres.TxManager) *SettingsRepo {
	return &SettingsRepo{txManager: txManager}
}

// Get returns the raw value for key.
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx,
		"SELECT value FROM "+settingsTable+" WHERE key = $1", key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperror.NewNotFound("setting", key)
		}
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// Set upserts the value for key.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	updatedBy := security.GetUserID(ctx)

	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO `+settingsTable+` (key, value, updated_at, updated_by)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW(), updated_by = EXCLUDED.updated_by
	`, key, value, updatedBy)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
