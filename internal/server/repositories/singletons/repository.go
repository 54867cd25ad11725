package singletons

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/folio/internal/server/models"
)

// Repository keeps one JSON value per fixed key.
type Repository interface {
	// Get returns common.ErrorNotFound when nothing is stored under key.
	Get(ctx context.Context, key string) (*models.Singleton, error)
	// Put overwrites the value under key in a single statement.
	Put(ctx context.Context, key string, value json.RawMessage) (*models.Singleton, error)
	Delete(ctx context.Context, key string) error
}
