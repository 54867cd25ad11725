// Package singletons stores fixed-key records (hero, about, contact, cv).
package singletons

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/dbx"
	"github.com/dmitrijs2005/folio/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, key string) (*models.Singleton, error) {
	query := `SELECT value, updated_at FROM singletons WHERE key = $1`

	s := &models.Singleton{Key: key}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&raw, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.Value = json.RawMessage(raw)

	return s, nil
}

func (r *PostgresRepository) Put(ctx context.Context, key string, value json.RawMessage) (*models.Singleton, error) {
	if !json.Valid(value) {
		return nil, fmt.Errorf("%w: value is not valid JSON", common.ErrorValidation)
	}

	query :=
		`INSERT INTO singletons (key, value, updated_at)
		 VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		 RETURNING updated_at`

	s := &models.Singleton{Key: key, Value: value}
	if err := r.db.QueryRowContext(ctx, query, key, string(value)).Scan(&s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM singletons WHERE key = $1`

	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
